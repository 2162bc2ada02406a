package payout

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"

	"github.com/iov-one/splitpay/x/splits"
)

// Delivery moves value out of the distribution source to a single recipient.
// Implementations decide what moving value means, for example a cash transfer
// or minting of token store balance. The prefer claimed hint is meaningful
// only to minting deliveries and ignored otherwise.
type Delivery interface {
	Deliver(ctx weave.Context, db weave.KVStore, recipient weave.Address, amount coin.Coin, preferClaimed bool) error
}

// Payment describes value entering a domain through its entry point.
type Payment struct {
	DomainID    int64
	Payer       weave.Address
	Beneficiary weave.Address
	Amount      coin.Coin
	// PreferClaimed and PreferCredit are routing hints copied from the
	// split. An entry point is free to ignore hints it cannot honor.
	PreferClaimed bool
	PreferCredit  bool
	// Memo and Details are forwarded from the distribution request.
	Memo    string
	Details []byte
}

// EntryPoint accepts a payment on behalf of a domain. The implementation is
// responsible for moving the funds from the payer.
type EntryPoint interface {
	Pay(ctx weave.Context, db weave.KVStore, p Payment) error
}

// Directory resolves a domain to its registered entry point. ErrNotFound is
// returned for domains without one.
type Directory interface {
	EntryPointOf(db weave.ReadOnlyKVStore, domainID int64) (EntryPoint, error)
}

// Allocation carries a share together with its full split context, so that an
// allocator can apply custom routing logic.
type Allocation struct {
	Payer    weave.Address
	DomainID int64
	GroupID  int64
	Split    *splits.Split
	Amount   coin.Coin
}

// Allocator consumes a share that was already delivered to its address.
type Allocator interface {
	Allocate(ctx weave.Context, db weave.KVStore, a Allocation) error
}

// Allocators resolves an allocator address to its implementation. ErrNotFound
// is returned for addresses without one.
type Allocators interface {
	AllocatorOf(db weave.ReadOnlyKVStore, addr weave.Address) (Allocator, error)
}

// Engine distributes an amount between split recipients. Each split receives
// the floor of its proportional share and whatever the floors leave behind
// goes to the default recipient, so the full amount is always accounted for.
//
// The engine never moves funds itself. All movements go through the Delivery
// and EntryPoint collaborators, which gives the same distribution logic to
// both coin transfers and token minting.
type Engine struct {
	// TotalPercent is the denominator that split percents are expressed
	// in. Must be positive and not greater than coin.FracUnit, so that a
	// share is never smaller than what a coin can represent.
	TotalPercent uint32

	Directory  Directory
	Allocators Allocators
	Delivery   Delivery
}

// Request describes a single distribution.
type Request struct {
	// DomainID and GroupID identify the split configuration being
	// distributed, they are passed through to allocators.
	DomainID int64
	GroupID  int64
	// Payer is the account the distributed funds originate from.
	Payer weave.Address
	// Amount is the total value to distribute.
	Amount coin.Coin
	// Splits is the weighted recipient list. Percents must not sum to
	// more than the engine total.
	Splits []*splits.Split
	// Default receives the remainder and any share without a recipient.
	Default weave.Address
	// Caller is the identity that triggered the distribution, carried
	// into the emitted tags.
	Caller weave.Address
	// Memo is a free form note forwarded to entry points and tags.
	Memo string
	// Details is an opaque payload forwarded to entry points and tags.
	Details []byte
}

// Payout is the outcome of a single split.
type Payout struct {
	Split  *splits.Split
	Amount coin.Coin
	// Recipient is the address the share actually resolved to, which can
	// differ from the split beneficiary when a fallback applied. For cross
	// domain shares it is the beneficiary forwarded to the entry point.
	// Nil only for zero shares that skip delivery.
	Recipient weave.Address
}

// Result is a full account of a distribution. Distributed plus Remainder is
// always equal to the requested amount.
type Result struct {
	Distributed coin.Coin
	Remainder   coin.Coin
	Payouts     []Payout
}

func (e *Engine) Distribute(ctx weave.Context, db weave.KVStore, req Request) (*Result, error) {
	if e.TotalPercent == 0 || int64(e.TotalPercent) > coin.FracUnit {
		return nil, errors.Wrapf(errors.ErrState, "total percent %d out of range", e.TotalPercent)
	}
	if err := req.Amount.Validate(); err != nil {
		return nil, errors.Wrap(err, "amount")
	}
	if !req.Amount.IsNonNegative() {
		return nil, errors.Wrap(errors.ErrAmount, "negative amount")
	}
	if err := req.Default.Validate(); err != nil {
		return nil, errors.Wrap(err, "default recipient")
	}

	var percents uint64
	for _, s := range req.Splits {
		percents += uint64(s.SharePercent)
	}
	if percents > uint64(e.TotalPercent) {
		// Split configurations are validated on write, an oversubscribed
		// list here means corrupted state.
		return nil, errors.Wrapf(errors.ErrHuman, "split percents sum to %d of %d", percents, e.TotalPercent)
	}

	res := Result{
		Distributed: coin.Coin{Ticker: req.Amount.Ticker},
		Payouts:     make([]Payout, 0, len(req.Splits)),
	}

	for _, s := range req.Splits {
		share, err := shareOf(req.Amount, s.SharePercent, e.TotalPercent)
		if err != nil {
			return nil, errors.Wrap(err, "share")
		}
		if share.IsZero() {
			// Zero shares are accounted for but never delivered.
			res.Payouts = append(res.Payouts, Payout{Split: s, Amount: share})
			continue
		}
		// The running total is committed before the external delivery
		// call, so a reentrant distribution observes consistent
		// accounting.
		total, err := res.Distributed.Add(share)
		if err != nil {
			return nil, errors.Wrap(err, "distributed total")
		}
		res.Distributed = total
		p, err := e.deliver(ctx, db, req, s, share)
		if err != nil {
			return nil, err
		}
		res.Payouts = append(res.Payouts, p)
	}

	remainder, err := req.Amount.Subtract(res.Distributed)
	if err != nil {
		return nil, errors.Wrap(err, "remainder")
	}
	res.Remainder = remainder
	if !remainder.IsZero() {
		if err := e.Delivery.Deliver(ctx, db, req.Default, remainder, false); err != nil {
			return nil, errors.Wrap(err, "deliver remainder")
		}
	}

	total, err := res.Distributed.Add(res.Remainder)
	if err != nil || !total.Equals(req.Amount) {
		return nil, errors.Wrap(errors.ErrHuman, "distribution does not conserve the amount")
	}
	return &res, nil
}

// deliver routes a single share. Resolution order is allocator, then target
// domain entry point, then beneficiary, with the default recipient as the
// final fallback.
func (e *Engine) deliver(ctx weave.Context, db weave.KVStore, req Request, s *splits.Split, share coin.Coin) (Payout, error) {
	switch {
	case len(s.Allocator) != 0:
		if e.Allocators == nil {
			return Payout{}, errors.Wrapf(ErrNoAllocator, "allocator %q", s.Allocator)
		}
		alloc, err := e.Allocators.AllocatorOf(db, s.Allocator)
		if err != nil {
			return Payout{}, errors.Wrapf(ErrNoAllocator, "allocator %q: %v", s.Allocator, err)
		}
		// Fund the allocator address first, then let the allocator
		// route what it owns.
		if err := e.Delivery.Deliver(ctx, db, s.Allocator, share, s.PreferClaimed); err != nil {
			return Payout{}, errors.Wrap(err, "fund allocator")
		}
		a := Allocation{
			Payer:    req.Payer,
			DomainID: req.DomainID,
			GroupID:  req.GroupID,
			Split:    s,
			Amount:   share,
		}
		if err := alloc.Allocate(ctx, db, a); err != nil {
			return Payout{}, errors.Wrap(err, "allocate")
		}
		return Payout{Split: s, Amount: share, Recipient: s.Allocator}, nil

	case s.TargetDomainID != 0:
		if e.Directory == nil {
			return Payout{}, errors.Wrapf(ErrNoEntryPoint, "domain %d", s.TargetDomainID)
		}
		ep, err := e.Directory.EntryPointOf(db, s.TargetDomainID)
		if err != nil {
			return Payout{}, errors.Wrapf(ErrNoEntryPoint, "domain %d: %v", s.TargetDomainID, err)
		}
		beneficiary := s.Beneficiary
		if len(beneficiary) == 0 {
			beneficiary = req.Default
		}
		if len(beneficiary) == 0 {
			beneficiary = req.Caller
		}
		p := Payment{
			DomainID:      s.TargetDomainID,
			Payer:         req.Payer,
			Beneficiary:   beneficiary,
			Amount:        share,
			PreferClaimed: s.PreferClaimed,
			PreferCredit:  s.PreferCredit,
			Memo:          req.Memo,
			Details:       req.Details,
		}
		if err := ep.Pay(ctx, db, p); err != nil {
			return Payout{}, errors.Wrap(err, "entry point")
		}
		return Payout{Split: s, Amount: share, Recipient: beneficiary}, nil

	case len(s.Beneficiary) != 0:
		if err := e.Delivery.Deliver(ctx, db, s.Beneficiary, share, s.PreferClaimed); err != nil {
			return Payout{}, errors.Wrap(err, "deliver")
		}
		return Payout{Split: s, Amount: share, Recipient: s.Beneficiary}, nil

	default:
		if err := e.Delivery.Deliver(ctx, db, req.Default, share, s.PreferClaimed); err != nil {
			return Payout{}, errors.Wrap(err, "deliver")
		}
		return Payout{Split: s, Amount: share, Recipient: req.Default}, nil
	}
}
