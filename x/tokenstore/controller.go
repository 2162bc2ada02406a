package tokenstore

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// CoinMinter issues new coins to an account.
// Required functionality is implemented by the x/cash extension.
type CoinMinter interface {
	CoinMint(weave.KVStore, weave.Address, coin.Coin) error
}

// Controller manages token balances and reserved tallies without exposing the
// buckets.
type Controller struct {
	minter   CoinMinter
	accounts orm.ModelBucket
	tallies  orm.ModelBucket
}

func NewController(minter CoinMinter) *Controller {
	return &Controller{
		minter:   minter,
		accounts: NewTokenAccountBucket(),
		tallies:  NewReservedTallyBucket(),
	}
}

// Reserved returns the reserved tally of a domain. A domain that never
// reserved has a nil balance.
func (c *Controller) Reserved(db weave.ReadOnlyKVStore, domainID int64) (*coin.Coin, error) {
	var tally ReservedTally
	switch err := c.tallies.One(db, tallyKey(domainID), &tally); {
	case err == nil:
		return tally.Balance, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "cannot load reserved tally")
	}
}

// Reserve adds to the reserved tally of a domain.
func (c *Controller) Reserve(db weave.KVStore, domainID int64, amount coin.Coin) error {
	key := tallyKey(domainID)
	var tally ReservedTally
	switch err := c.tallies.One(db, key, &tally); {
	case err == nil:
		total, err := tally.Balance.Add(amount)
		if err != nil {
			return errors.Wrap(err, "cannot add to tally")
		}
		tally.Balance = &total
	case errors.ErrNotFound.Is(err):
		tally = ReservedTally{
			Metadata: &weave.Metadata{Schema: 1},
			Balance:  &amount,
		}
	default:
		return errors.Wrap(err, "cannot load reserved tally")
	}
	if _, err := c.tallies.Put(db, key, &tally); err != nil {
		return errors.Wrap(err, "cannot store reserved tally")
	}
	return nil
}

// ConsumeReserved removes the given amount from the reserved tally of a
// domain. It fails when the tally does not cover the amount.
func (c *Controller) ConsumeReserved(db weave.KVStore, domainID int64, amount coin.Coin) error {
	key := tallyKey(domainID)
	var tally ReservedTally
	if err := c.tallies.One(db, key, &tally); err != nil {
		return errors.Wrap(err, "cannot load reserved tally")
	}
	rest, err := tally.Balance.Subtract(amount)
	if err != nil {
		return errors.Wrap(err, "cannot subtract from tally")
	}
	if !rest.IsNonNegative() {
		return errors.Wrapf(errors.ErrAmount, "tally holds less than %s", amount)
	}
	tally.Balance = &rest
	if _, err := c.tallies.Put(db, key, &tally); err != nil {
		return errors.Wrap(err, "cannot store reserved tally")
	}
	return nil
}

// Mint issues tokens to a holder. Claimed tokens become regular coins in the
// holder wallet, unclaimed ones stay custodial in the token store until
// claimed.
func (c *Controller) Mint(db weave.KVStore, domainID int64, holder weave.Address, amount coin.Coin, claimed bool) error {
	if claimed {
		if err := c.minter.CoinMint(db, holder, amount); err != nil {
			return errors.Wrap(err, "cannot mint coins")
		}
		return nil
	}

	key := accountKey(domainID, holder)
	var acct TokenAccount
	switch err := c.accounts.One(db, key, &acct); {
	case err == nil:
		total, err := acct.Balance.Add(amount)
		if err != nil {
			return errors.Wrap(err, "cannot add to balance")
		}
		acct.Balance = &total
	case errors.ErrNotFound.Is(err):
		acct = TokenAccount{
			Metadata: &weave.Metadata{Schema: 1},
			Balance:  &amount,
		}
	default:
		return errors.Wrap(err, "cannot load token account")
	}
	if _, err := c.accounts.Put(db, key, &acct); err != nil {
		return errors.Wrap(err, "cannot store token account")
	}
	return nil
}

// Unclaimed returns the custodial balance of a holder within a domain.
func (c *Controller) Unclaimed(db weave.ReadOnlyKVStore, domainID int64, holder weave.Address) (*coin.Coin, error) {
	var acct TokenAccount
	switch err := c.accounts.One(db, accountKey(domainID, holder), &acct); {
	case err == nil:
		return acct.Balance, nil
	case errors.ErrNotFound.Is(err):
		return nil, nil
	default:
		return nil, errors.Wrap(err, "cannot load token account")
	}
}

// Claim converts unclaimed tokens of a holder into claimed ones. A nil amount
// claims the full unclaimed balance. It returns the claimed amount.
func (c *Controller) Claim(db weave.KVStore, domainID int64, holder weave.Address, amount *coin.Coin) (coin.Coin, error) {
	key := accountKey(domainID, holder)
	var acct TokenAccount
	if err := c.accounts.One(db, key, &acct); err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot load token account")
	}

	claim := *acct.Balance
	if amount != nil {
		claim = *amount
	}
	rest, err := acct.Balance.Subtract(claim)
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot subtract claim")
	}
	if !rest.IsNonNegative() {
		return coin.Coin{}, errors.Wrapf(errors.ErrAmount, "unclaimed balance is less than %s", claim)
	}
	acct.Balance = &rest
	if _, err := c.accounts.Put(db, key, &acct); err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot store token account")
	}
	if err := c.minter.CoinMint(db, holder, claim); err != nil {
		return coin.Coin{}, errors.Wrap(err, "cannot mint coins")
	}
	return claim, nil
}
