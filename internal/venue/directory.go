// Package venue maps platform venue identifiers to display names.
package venue

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/titanous/json5"
)

// nameMatchThreshold is the minimum Jaro-Winkler similarity for a location
// name to be resolved to a known venue.
const nameMatchThreshold = 0.9

// Entry is one venue of the directory
type Entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Directory is the injected id -> display name table.
type Directory struct {
	entries []Entry
	byID    map[string]string
}

// NewDirectory builds a directory keeping the given order. Later duplicates
// of an id are ignored.
func NewDirectory(entries []Entry) *Directory {
	d := &Directory{byID: make(map[string]string, len(entries))}
	for _, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		e.Name = strings.TrimSpace(e.Name)
		if e.ID == "" {
			continue
		}
		if _, exists := d.byID[e.ID]; exists {
			continue
		}
		d.byID[e.ID] = e.Name
		d.entries = append(d.entries, e)
	}
	return d
}

// Parse decodes a json5 array of {id, name} objects.
func Parse(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json5.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse venue directory: %w", err)
	}
	return entries, nil
}

// Entries returns the venues in directory order
func (d *Directory) Entries() []Entry {
	if d == nil {
		return nil
	}
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns the display name registered for id.
func (d *Directory) Lookup(id string) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.byID[strings.TrimSpace(id)]
	return name, ok
}

// Subset returns a directory restricted to ids, in the order given. Unknown
// ids are kept with an empty name so they can still be crawled.
func (d *Directory) Subset(ids []string) *Directory {
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		name, _ := d.Lookup(id)
		entries = append(entries, Entry{ID: id, Name: name})
	}
	return NewDirectory(entries)
}

// Resolve returns the display name for a venue: the directory name for id,
// else the known venue whose name matches locationName, else locationName.
func (d *Directory) Resolve(id, locationName string) string {
	if name, ok := d.Lookup(id); ok && name != "" {
		return name
	}
	location := strings.TrimSpace(locationName)
	if location == "" {
		return ""
	}
	if d == nil {
		return location
	}

	needle := strings.ToLower(location)
	best, bestScore := "", 0.0
	for _, e := range d.entries {
		if e.Name == "" {
			continue
		}
		candidate := strings.ToLower(e.Name)
		if strings.Contains(needle, candidate) || strings.Contains(candidate, needle) {
			return e.Name
		}
		if score := matchr.JaroWinkler(needle, candidate, false); score > bestScore {
			best, bestScore = e.Name, score
		}
	}
	if bestScore >= nameMatchThreshold {
		return best
	}
	return location
}
