package payout

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
)

// AllocatorRegistry is an in memory Allocators implementation. Allocator
// implementations are bound to addresses during application wiring, split
// configurations refer to them by that address.
type AllocatorRegistry struct {
	impls map[string]Allocator
}

var _ Allocators = (*AllocatorRegistry)(nil)

func NewAllocatorRegistry() *AllocatorRegistry {
	return &AllocatorRegistry{impls: make(map[string]Allocator)}
}

// Register binds an allocator implementation to an address. Meant to be
// called once per allocator during application construction.
func (r *AllocatorRegistry) Register(addr weave.Address, a Allocator) {
	if _, ok := r.impls[string(addr)]; ok {
		panic("duplicate allocator address: " + addr.String())
	}
	r.impls[string(addr)] = a
}

func (r *AllocatorRegistry) AllocatorOf(db weave.ReadOnlyKVStore, addr weave.Address) (Allocator, error) {
	a, ok := r.impls[string(addr)]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "allocator %q", addr)
	}
	return a, nil
}
