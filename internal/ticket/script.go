package ticket

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

var ticketMarker = regexp.MustCompile(`"__typename"\s*:\s*"Ticket"`)

// PageScriptTickets scans every <script> block of a page in document order.
func PageScriptTickets(doc *goquery.Document) []Raw {
	var out []Raw
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, ScriptTickets(s.Text())...)
	})
	return out
}

// ScriptTickets returns every embedded Ticket object found in script text.
// Malformed objects are skipped and scanning continues after them.
func ScriptTickets(script string) []Raw {
	var out []Raw

	pos := 0
	for pos < len(script) {
		loc := ticketMarker.FindStringIndex(script[pos:])
		if loc == nil {
			break
		}
		anchor := pos + loc[0]
		afterMarker := pos + loc[1]

		obj, end, ok := enclosingTicket(script, anchor, afterMarker)
		if !ok {
			pos = afterMarker
			continue
		}

		if raw, ok := rawFromObject(obj); ok {
			out = append(out, raw)
		}
		pos = end + 1
	}

	return out
}

// maxCandidates bounds how many '{' enclosingTicket tries per marker.
const maxCandidates = 32

// enclosingTicket tries every '{' before anchor, nearest first, and returns
// the first object that closes after the marker and decodes as a Ticket.
// A '{' or '}' inside a string literal can only produce a candidate that
// fails to close or decode, so the search moves on to the next one.
func enclosingTicket(text string, anchor, afterMarker int) (map[string]interface{}, int, bool) {
	start := strings.LastIndexByte(text[:anchor], '{')
	for tried := 0; start >= 0 && tried < maxCandidates; tried++ {
		if end, ok := objectEnd(text, start); ok && end >= afterMarker {
			if obj, ok := decodeObject(text[start : end+1]); ok && stringField(obj, "__typename") == "Ticket" {
				return obj, end, true
			}
		}
		start = strings.LastIndexByte(text[:start], '{')
	}
	return nil, 0, false
}

// objectEnd finds the '}' closing the object opened at start. Braces inside
// string literals do not count.
func objectEnd(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	var quote byte

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				inString = false
			}
			continue
		}

		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// decodeObject tries strict JSON, then JSON with repaired escapes, then json5.
func decodeObject(candidate string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}

	obj = nil
	if err := json.Unmarshal([]byte(repairEscapes(candidate)), &obj); err == nil {
		return obj, true
	}

	obj = nil
	if err := json5.Unmarshal([]byte(candidate), &obj); err == nil {
		return obj, true
	}
	return nil, false
}

// repairEscapes rewrites escape sequences JSON rejects (\x41, \', stray
// backslashes) and raw control characters inside strings.
func repairEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			next := s[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't':
				b.WriteByte(c)
				b.WriteByte(next)
			case 'u':
				if i+6 <= len(s) && isHex(s[i+2:i+6]) {
					b.WriteString(s[i : i+6])
					i += 4
				} else {
					b.WriteByte(next)
				}
			case 'x':
				if i+4 <= len(s) && isHex(s[i+2:i+4]) {
					b.WriteString(`\u00`)
					b.WriteString(s[i+2 : i+4])
					i += 2
				} else {
					b.WriteByte(next)
				}
			default:
				b.WriteByte(next)
			}
			i++
		case c == '\\':
		case c == '"':
			inString = !inString
			b.WriteByte(c)
		case c < 0x20 && inString:
			fmt.Fprintf(&b, `\u%04x`, c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

func rawFromObject(obj map[string]interface{}) (Raw, bool) {
	if stringField(obj, "__typename") != "Ticket" {
		return Raw{}, false
	}

	isAddOn := false
	switch v := obj["isAddOn"].(type) {
	case bool:
		isAddOn = v
	case string:
		isAddOn = strings.EqualFold(v, "true")
	}

	return Raw{
		ID:        stringField(obj, "id"),
		Title:     strings.TrimSpace(stringField(obj, "title")),
		Price:     numberField(obj, "priceRetail"),
		Status:    ParseStatus(stringField(obj, "validType")),
		IsAddOn:   isAddOn,
		SourceURL: strings.TrimSpace(stringField(obj, "url")),
	}, true
}

func stringField(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func numberField(obj map[string]interface{}, key string) *float64 {
	switch v := obj[key].(type) {
	case float64:
		return finite(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return finite(f)
		}
	case string:
		return parseDecimal(v)
	}
	return nil
}
