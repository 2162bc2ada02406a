package payout

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrNoEntryPoint is returned when a share targets a domain that has
	// no entry point registered.
	ErrNoEntryPoint = errors.Register(150, "no entry point")

	// ErrNoAllocator is returned when a share names an allocator address
	// that no allocator implementation is registered for.
	ErrNoAllocator = errors.Register(151, "no allocator")
)
