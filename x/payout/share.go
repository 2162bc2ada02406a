package payout

import (
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
)

// shareOf returns floor(amount * percent / total), computed exactly over the
// coin fractional units. Whole and fractional parts are processed separately
// so that no intermediate value overflows int64, even for the largest coin
// amounts.
func shareOf(amount coin.Coin, percent, total uint32) (coin.Coin, error) {
	if total == 0 || int64(total) > coin.FracUnit {
		return coin.Coin{}, errors.Wrapf(errors.ErrInput, "total percent %d out of range", total)
	}
	if percent > total {
		return coin.Coin{}, errors.Wrapf(errors.ErrInput, "percent %d greater than total %d", percent, total)
	}
	if !amount.IsNonNegative() {
		return coin.Coin{}, errors.Wrap(errors.ErrAmount, "negative amount")
	}

	w := amount.Whole
	f := amount.Fractional
	p := int64(percent)
	t := int64(total)

	// floor(w*p/t) without computing w*p, which can overflow. With
	// w = a*t + b this is a*p + floor(b*p/t), and b*p < t*p <= 10^18.
	whole := (w/t)*p + (w%t)*p/t
	// Remainder of the whole part division, expressed in fractional
	// units, plus the fractional part contribution.
	carry := ((w%t)*p%t)*coin.FracUnit + f*p
	units := carry / t
	whole += units / coin.FracUnit

	return coin.Coin{
		Whole:      whole,
		Fractional: units % coin.FracUnit,
		Ticker:     amount.Ticker,
	}, nil
}
