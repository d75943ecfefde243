package hedge

import (
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ontiyonke/quantdsl/internal/errors"
)

// NegationPrefix marks the downward perturbation of a key. For every key used
// in finite differencing both the key and its negated counterpart must be
// present in the result's perturbed values.
const NegationPrefix = "-"

// Key identifies one perturbed valuation bucket. A bare commodity name is the
// spot (non-dated) bucket; "NAME-YEAR-MONTH" or "NAME-YEAR-MONTH-DAY" is a
// dated bucket.
type Key struct {
	Raw       string
	Commodity string
	Year      int
	Month     int
	Day       int
	Dated     bool
	// Daily reports whether the key carried day resolution. Monthly keys
	// default to the first of the month.
	Daily bool
}

// Date returns the bucket's delivery date. Spot keys report ok=false.
func (k Key) Date() (time.Time, bool) {
	if !k.Dated {
		return time.Time{}, false
	}
	return time.Date(k.Year, time.Month(k.Month), k.Day, 0, 0, 0, 0, time.UTC), true
}

// Negated returns the key of the downward perturbation.
func Negated(raw string) string { return NegationPrefix + raw }

// IsNegated reports whether raw names a downward perturbation.
func IsNegated(raw string) bool { return strings.HasPrefix(raw, NegationPrefix) }

// ParseKey parses a non-negated perturbation key.
func ParseKey(raw string) (Key, error) {
	if raw == "" || IsNegated(raw) {
		return Key{}, apperrors.ValidationError{Field: "perturbation key", Message: "empty or negated key " + strconv.Quote(raw)}
	}
	parts := strings.Split(raw, "-")
	key := Key{Raw: raw, Commodity: parts[0]}
	switch len(parts) {
	case 1:
		return key, nil
	case 3, 4:
		key.Dated = true
		key.Day = 1
	default:
		return Key{}, apperrors.ValidationError{Field: "perturbation key", Message: "malformed key " + strconv.Quote(raw)}
	}
	for i, field := range []*int{&key.Year, &key.Month, &key.Day}[:len(parts)-1] {
		n, err := strconv.Atoi(parts[i+1])
		if err != nil {
			return Key{}, apperrors.ValidationError{Field: "perturbation key", Message: "non-numeric date in key " + strconv.Quote(raw)}
		}
		*field = n
	}
	key.Daily = len(parts) == 4
	return key, nil
}

// sortKeys orders keys for aggregation: spot buckets first (by commodity),
// then dated buckets in strictly non-decreasing (year, month, day) order.
func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Dated != b.Dated {
			return !a.Dated
		}
		if !a.Dated {
			return a.Commodity < b.Commodity
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		return a.Commodity < b.Commodity
	})
}
