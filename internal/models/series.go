package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Point is a single raw observation read from the store
type Point struct {
	TS    time.Time       `json:"ts"`
	Value decimal.Decimal `json:"value"`
}

// Bucket is one fixed-width aggregation window. Value is nil for an empty
// bucket that has not been interpolated yet.
type Bucket struct {
	TS    time.Time        `json:"ts"`
	Value *decimal.Decimal `json:"value"`
}

// Series is an ordered run of filled buckets for one tracked series
type Series struct {
	Name       string            `json:"name"`
	Timestamps []time.Time       `json:"timestamps"`
	Values     []decimal.Decimal `json:"values"`
}

// BucketResponse represents API/stream format for a single bucket
type BucketResponse struct {
	Series string `json:"series"`
	TS     string `json:"ts"`
	Value  string `json:"value"`
}

// ToResponse converts a filled bucket to stream format
func ToResponse(series string, ts time.Time, value decimal.Decimal) *BucketResponse {
	return &BucketResponse{
		Series: series,
		TS:     FormatTS(ts),
		Value:  value.String(),
	}
}
