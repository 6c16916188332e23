package ticket

import (
	"fmt"
	"sort"
)

// Normalize maps raw tickets to the canonical shape, drops repeats of the
// same tier (the same object often appears in several script blocks) and
// sorts by price.
func Normalize(raws []Raw) []Ticket {
	seen := make(map[string]struct{}, len(raws))
	out := make([]Ticket, 0, len(raws))

	for _, r := range raws {
		key := dedupKey(r)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, Ticket{
			Title:   r.Title,
			Price:   r.Price,
			Status:  r.Status,
			IsAddOn: r.IsAddOn,
			URL:     r.SourceURL,
		})
	}

	SortByPrice(out)
	return out
}

func dedupKey(r Raw) string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	price := "-"
	if r.Price != nil {
		price = fmt.Sprintf("%g", *r.Price)
	}
	return fmt.Sprintf("%s|%s|%s|%t", r.Title, price, r.Status, r.IsAddOn)
}

// SortByPrice orders tickets by ascending price, tickets without a price
// last; equal prices keep their extraction order.
func SortByPrice(tickets []Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return priceLess(tickets[i].Price, tickets[j].Price)
	})
}

func priceLess(a, b *float64) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

// CurrentRelease is the title of the cheapest valid tier that is not an add-on.
func CurrentRelease(tickets []Ticket) string {
	var valid []Ticket
	for _, t := range tickets {
		if t.Status == StatusValid && !t.IsAddOn {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		return ""
	}

	SortByPrice(valid)
	return valid[0].Title
}
