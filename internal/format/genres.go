package format

import "strings"

// Genres joins genre names with ", ", dropping blanks and case-insensitive
// repeats while keeping the first spelling seen.
func Genres(names []string) string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return strings.Join(out, ", ")
}
