// Package ticket recovers ticket tiers from event pages and ranks them.
package ticket

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Status is the availability of a ticket tier as reported by the platform
type Status string

const (
	StatusValid          Status = "VALID"
	StatusSoldOut        Status = "SOLDOUT"
	StatusNoLongerOnSale Status = "NOLONGERONSALE"
	StatusUpcoming       Status = "UPCOMING"
)

// ParseStatus maps a raw validType to a Status; unknown values become "".
func ParseStatus(raw string) Status {
	switch s := Status(strings.ToUpper(strings.TrimSpace(raw))); s {
	case StatusValid, StatusSoldOut, StatusNoLongerOnSale, StatusUpcoming:
		return s
	}
	return ""
}

// Unavailable reports whether the tier can no longer be bought
func (s Status) Unavailable() bool {
	return s == StatusSoldOut || s == StatusNoLongerOnSale
}

// Raw is a ticket as scraped, before normalisation.
type Raw struct {
	ID        string
	Title     string
	Price     *float64
	Status    Status
	IsAddOn   bool
	SourceURL string
}

// Ticket is the canonical ticket shape consumed by the row builder.
type Ticket struct {
	Title   string
	Price   *float64
	Status  Status
	IsAddOn bool
	URL     string
}

var decimalNumber = regexp.MustCompile(`(\d+[.,]?\d*)`)

// parseDecimal reads an amount that may use ',' as decimal separator
func parseDecimal(text string) *float64 {
	text = strings.TrimSpace(strings.Replace(text, ",", ".", 1))
	if text == "" {
		return nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	return finite(v)
}

// finite drops NaN and infinities, which would break price ordering
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// firstDecimal parses the first number found in free text
func firstDecimal(text string) *float64 {
	m := decimalNumber.FindStringSubmatch(text)
	if len(m) < 2 {
		return nil
	}
	return parseDecimal(m[1])
}
