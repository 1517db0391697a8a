// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"

	"github.com/salesops/revenue-forecast/internal/variance"
)

// WithinPercent reports whether got is within pct percent of want.
func WithinPercent(got, want, pct float64) bool {
	if want == 0 {
		return got == 0
	}
	return math.Abs(got-want) <= math.Abs(want)*pct/100
}

// FindDriver finds a driver by key in the results slice.
// Returns a pointer to the driver if found, nil otherwise.
func FindDriver(drivers []variance.Driver, key string) *variance.Driver {
	for i := range drivers {
		if drivers[i].Key == key {
			return &drivers[i]
		}
	}
	return nil
}
