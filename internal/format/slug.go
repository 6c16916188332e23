package format

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

	// letters that do not decompose into ASCII base + combining mark
	ligatures = strings.NewReplacer(
		"ß", "ss", "æ", "ae", "Æ", "AE", "œ", "oe", "Œ", "OE",
		"ø", "o", "Ø", "O", "ł", "l", "Ł", "L", "đ", "d", "Đ", "D", "þ", "th",
	)
)

// Slugify transliterates to ASCII, lowercases and hyphenates:
// "Razzmatazz Club!" -> "razzmatazz-club".
func Slugify(text string) string {
	if text == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, ligatures.Replace(text))
	if err != nil {
		ascii = text
	}

	slug := nonAlphanumeric.ReplaceAllString(strings.ToLower(ascii), "-")
	return strings.Trim(slug, "-")
}
