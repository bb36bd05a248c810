package reader

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func nullable(values ...float64) []*decimal.Decimal {
	out := make([]*decimal.Decimal, len(values))
	for i, v := range values {
		d := decimal.NewFromFloat(v)
		out[i] = &d
	}
	return out
}

func TestFillGaps(t *testing.T) {
	tests := []struct {
		name  string
		input []*decimal.Decimal
		nils  []int
		want  []float64
	}{
		{"two gaps", nullable(1, 0, 0, 4), []int{1, 2}, []float64{1, 2, 3, 4}},
		{"single gap", nullable(2, 0, 8), []int{1}, []float64{2, 5, 8}},
		{"no gaps", nullable(1, 2, 3), nil, []float64{1, 2, 3}},
		{"separate runs", nullable(0, 0, 2, 0, 4), []int{1, 3}, []float64{0, 1, 2, 3, 4}},
		{"negative slope", nullable(10, 0, 0, 0, 2), []int{1, 2, 3}, []float64{10, 8, 6, 4, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, i := range tt.nils {
				tt.input[i] = nil
			}

			got, err := FillGaps(tt.input)
			if err != nil {
				t.Fatalf("FillGaps failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d values, want %d", len(got), len(tt.want))
			}
			for i, w := range tt.want {
				if !got[i].Equal(decimal.NewFromFloat(w)) {
					t.Errorf("got[%d] = %s, want %v", i, got[i], w)
				}
			}
		})
	}
}

func TestFillGapsEmpty(t *testing.T) {
	got, err := FillGaps(nil)
	if err != nil || got != nil {
		t.Errorf("FillGaps(nil) = %v, %v", got, err)
	}
}

func TestFillGapsBoundaryNil(t *testing.T) {
	leading := nullable(0, 1, 2)
	leading[0] = nil
	trailing := nullable(1, 2, 0)
	trailing[2] = nil

	for name, input := range map[string][]*decimal.Decimal{"leading": leading, "trailing": trailing} {
		t.Run(name, func(t *testing.T) {
			_, err := FillGaps(input)
			if !errors.Is(err, ErrPrecondition) {
				t.Errorf("FillGaps with %s nil: err = %v, want ErrPrecondition", name, err)
			}
		})
	}
}
