// Package row assembles the flat event row emitted by the worker.
package row

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Slots is the fixed number of release columns of a row
const Slots = 6

// Release is one ticket column group of a row.
type Release struct {
	Name  string
	Price string
	URL   string
}

// Row is one event with its ranked releases. Every field is a string and
// missing values are empty strings.
type Row struct {
	Venue          string
	VenueName      string
	EventName      string
	URL            string
	Date           string
	Time           string
	ImageURL       string
	CurrentRelease string
	EventDate      string
	Genres         string
	Releases       [Slots]Release
}

// Field is a single key/value pair of a row in output order
type Field struct {
	Key   string
	Value string
}

// Fields lists the row in its fixed output key order.
func (r Row) Fields() []Field {
	fields := []Field{
		{"venue", r.Venue},
		{"venueName", r.VenueName},
		{"eventName", r.EventName},
		{"url", r.URL},
		{"date", r.Date},
		{"time", r.Time},
		{"imageUrl", r.ImageURL},
		{"currentRelease", r.CurrentRelease},
		{"event_date", r.EventDate},
		{"generos", r.Genres},
	}
	for i, rel := range r.Releases {
		n := strconv.Itoa(i + 1)
		fields = append(fields,
			Field{"releaseName" + n, rel.Name},
			Field{"price" + n, rel.Price},
			Field{"releaseUrl" + n, rel.URL},
		)
	}
	return fields
}

// MarshalJSON encodes the row as an object whose keys keep the Fields order.
func (r Row) MarshalJSON() ([]byte, error) {
	var out bytes.Buffer
	out.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			out.WriteByte(',')
		}
		if err := writeString(&out, f.Key); err != nil {
			return nil, err
		}
		out.WriteByte(':')
		if err := writeString(&out, f.Value); err != nil {
			return nil, err
		}
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

func writeString(out *bytes.Buffer, s string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
	return nil
}

// UnmarshalJSON reads a row written by MarshalJSON. Unknown keys are ignored.
func (r *Row) UnmarshalJSON(data []byte) error {
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}

	*r = Row{
		Venue:          values["venue"],
		VenueName:      values["venueName"],
		EventName:      values["eventName"],
		URL:            values["url"],
		Date:           values["date"],
		Time:           values["time"],
		ImageURL:       values["imageUrl"],
		CurrentRelease: values["currentRelease"],
		EventDate:      values["event_date"],
		Genres:         values["generos"],
	}
	for i := range r.Releases {
		n := strconv.Itoa(i + 1)
		r.Releases[i] = Release{
			Name:  values["releaseName"+n],
			Price: values["price"+n],
			URL:   values["releaseUrl"+n],
		}
	}
	return nil
}
