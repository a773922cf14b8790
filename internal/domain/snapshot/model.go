package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"frontporch/internal/domain/signup"
	"frontporch/internal/domain/slot"
)

// FormatVersion is the version written into every exported Document.
const FormatVersion = 1

// Format constants for snapshot sources.
const (
	FormatHTML = "html"
	FormatJSON = "json"
)

// Domain errors.
var (
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrUnknownFormat      = errors.New("snapshot format must be 'html' or 'json'")
)

// Record is one recovered (day, hour, name) triple.
type Record struct {
	Day  string `json:"day"`
	Hour int    `json:"hour"`
	Name string `json:"name"`
}

// Slot returns the grid position of the record.
func (r Record) Slot() slot.Slot {
	return slot.Slot{Day: r.Day, Hour: r.Hour}
}

// Document is the explicit, versioned backup format for signups.
type Document struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Capacity   int       `json:"capacity"`
	Signups    []Record  `json:"signups"`
}

// NewDocument builds a Document from live signups, ordered by grid position.
// PRE: signups may be empty
// POST: Returns a Document stamped with FormatVersion and exportedAt
func NewDocument(signups []signup.Signup, exportedAt time.Time) Document {
	records := make([]Record, 0, len(signups))
	for _, s := range signups {
		records = append(records, Record{Day: s.Day, Hour: s.Hour, Name: s.Name})
	}
	SortRecords(records)
	return Document{
		Version:    FormatVersion,
		ExportedAt: exportedAt.UTC(),
		Capacity:   slot.Capacity,
		Signups:    records,
	}
}

// ToJSON serializes the Document to indented JSON.
func (d *Document) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// DecodeJSON reads a Document and returns its records.
// PRE: r yields a JSON Document
// POST: Returns records or an error for malformed input / unknown versions
func DecodeJSON(r io.Reader) ([]Record, error) {
	var doc Document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	for i := range doc.Signups {
		doc.Signups[i].Name = signup.NormalizeName(doc.Signups[i].Name)
	}
	return doc.Signups, nil
}

// SortRecords orders records by weekday, hour, then name.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if di, dj := slot.DayIndex(a.Day), slot.DayIndex(b.Day); di != dj {
			return di < dj
		}
		if a.Hour != b.Hour {
			return a.Hour < b.Hour
		}
		return a.Name < b.Name
	})
}
