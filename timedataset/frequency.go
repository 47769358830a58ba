package timedataset

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownFrequency = errors.New("unknown frequency")

// Frequency is the fixed sampling interval of a series
type Frequency time.Duration

const (
	Hourly = Frequency(time.Hour)
	Daily  = Frequency(24 * time.Hour)
)

// ParseFrequency accepts the pandas style aliases "D" and "h" as well as the spelled out
// names "daily" and "hourly".
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "d", "day", "daily":
		return Daily, nil
	case "h", "hour", "hourly":
		return Hourly, nil
	}
	return 0, fmt.Errorf("%q is not a supported frequency, %w", s, ErrUnknownFrequency)
}

// Duration returns the interval as a time.Duration
func (f Frequency) Duration() time.Duration {
	return time.Duration(f)
}

func (f Frequency) String() string {
	switch f {
	case Daily:
		return "D"
	case Hourly:
		return "h"
	}
	return time.Duration(f).String()
}

// Valid reports whether the frequency is a positive interval
func (f Frequency) Valid() bool {
	return f > 0
}
