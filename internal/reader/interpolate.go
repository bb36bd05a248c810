package reader

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrPrecondition is returned when input violates a documented precondition
var ErrPrecondition = errors.New("precondition violation")

// FillGaps fills every interior run of nil values by linear interpolation
// between the nearest non-nil neighbors: step = (right - left) / (run + 1).
// The first and last value must be present; a nil at either boundary has no
// neighbor to interpolate from and is rejected.
func FillGaps(values []*decimal.Decimal) ([]decimal.Decimal, error) {
	n := len(values)
	if n == 0 {
		return nil, nil
	}
	if values[0] == nil || values[n-1] == nil {
		return nil, fmt.Errorf("%w: empty bucket at sequence boundary", ErrPrecondition)
	}

	out := make([]decimal.Decimal, n)
	i := 0
	for i < n {
		if values[i] != nil {
			out[i] = *values[i]
			i++
			continue
		}

		// nil run [i, j); values[n-1] != nil guarantees j stays in range
		j := i
		for values[j] == nil {
			j++
		}

		left := out[i-1]
		right := *values[j]
		step := right.Sub(left).Div(decimal.NewFromInt(int64(j - i + 1)))

		for m := i; m < j; m++ {
			out[m] = out[m-1].Add(step)
		}
		i = j
	}

	return out, nil
}
