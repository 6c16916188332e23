// Package event extracts event metadata from detail pages and GraphQL payloads.
package event

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/titanous/json5"
)

// Image is one promotional asset of an event
type Image struct {
	Type     string
	Filename string
}

// Meta holds the metadata fields the row builder needs. Empty strings mean
// the value was not found.
type Meta struct {
	ID            string
	Name          string
	Start         string
	End           string
	LocationName  string
	VenueID       string
	Images        []Image
	FallbackImage string
	Genres        []string
}

// Empty reports whether nothing usable was extracted
func (m Meta) Empty() bool {
	return m.Name == "" && m.Start == "" && m.End == ""
}

var clubIDPattern = regexp.MustCompile(`/clubs/(\d+)`)

// FromPage reads JSON-LD, og:image and genre links from an event detail page.
func FromPage(doc *goquery.Document) Meta {
	m := fromJSONLD(doc)
	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		m.FallbackImage = strings.TrimSpace(og)
	}
	m.Genres = genreLinks(doc)
	return m
}

func genreLinks(doc *goquery.Document) []string {
	var genres []string
	doc.Find(`a[href*="/genre/"]`).Each(func(_ int, s *goquery.Selection) {
		if name := strings.Join(strings.Fields(s.Text()), " "); name != "" {
			genres = append(genres, name)
		}
	})
	return genres
}

func fromJSONLD(doc *goquery.Document) Meta {
	var meta Meta
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, obj := range jsonLDObjects(s.Text()) {
			if m := metaFromJSONLD(obj); !m.Empty() {
				meta = m
				return false
			}
		}
		return true
	})
	return meta
}

// jsonLDObjects flattens top-level objects, arrays and @graph containers.
func jsonLDObjects(text string) []map[string]interface{} {
	var data interface{}
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		data = nil
		if err := json5.Unmarshal([]byte(text), &data); err != nil {
			return nil
		}
	}

	var out []map[string]interface{}
	var walk func(v interface{})
	walk = func(v interface{}) {
		switch t := v.(type) {
		case map[string]interface{}:
			out = append(out, t)
			if graph, ok := t["@graph"]; ok {
				walk(graph)
			}
		case []interface{}:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(data)
	return out
}

func metaFromJSONLD(obj map[string]interface{}) Meta {
	m := Meta{
		Name:  str(obj["name"]),
		Start: str(obj["startDate"]),
		End:   str(obj["endDate"]),
	}

	if loc := firstObject(obj["location"]); loc != nil {
		m.LocationName = str(loc["name"])
		if match := clubIDPattern.FindStringSubmatch(str(loc["url"])); len(match) == 2 {
			m.VenueID = match[1]
		}
	} else {
		m.LocationName = str(obj["location"])
	}

	for _, url := range imageURLs(obj["image"]) {
		m.Images = append(m.Images, Image{Filename: url})
	}
	return m
}

func imageURLs(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
	case map[string]interface{}:
		return imageURLs(t["url"])
	case []interface{}:
		var out []string
		for _, item := range t {
			out = append(out, imageURLs(item)...)
		}
		return out
	}
	return nil
}

func firstObject(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return t
	case []interface{}:
		for _, item := range t {
			if obj, ok := item.(map[string]interface{}); ok {
				return obj
			}
		}
	}
	return nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// SelectImage picks the flyer-front asset, else the first asset with a
// filename, else the page-level fallback.
func SelectImage(images []Image, fallback string) string {
	for _, img := range images {
		if img.Filename != "" && isFlyerFront(img.Type) {
			return img.Filename
		}
	}
	for _, img := range images {
		if img.Filename != "" {
			return img.Filename
		}
	}
	return fallback
}

func isFlyerFront(kind string) bool {
	var b strings.Builder
	for _, r := range strings.ToUpper(kind) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String() == "FLYERFRONT"
}
