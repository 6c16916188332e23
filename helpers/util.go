package helpers

import (
	"context"
	mathrand "math/rand"
	"regexp"
	"time"
)

var eventLinkPattern = regexp.MustCompile(`/events/(\d+)`)

// ExtractEventIDs returns the event ids linked from a listing page, in
// first-seen order without repeats. limit <= 0 means no cap.
func ExtractEventIDs(html string, limit int) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, match := range eventLinkPattern.FindAllStringSubmatch(html, -1) {
		id := match[1]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids
}

// SleepJitter waits a random duration in [min, max] or until ctx is done.
func SleepJitter(ctx context.Context, min, max time.Duration) error {
	if max < min {
		max = min
	}
	d := min
	if max > min {
		d += time.Duration(mathrand.Int63n(int64(max - min)))
	}
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
