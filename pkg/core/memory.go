// pkg/core/memory.go
package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in persisted snapshots and AI output.
const DateLayout = "2006-01-02"

// Coordinates is a WGS84 latitude/longitude pair in degrees
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Date is a calendar date without time of day
type Date struct {
	time.Time
}

// NewDate returns the date at UTC midnight.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON writes the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts "YYYY-MM-DD", an empty string or null.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Memory is one recorded visit to a place
type Memory struct {
	ID           string      `json:"id"`
	LocationName string      `json:"locationName"`
	Coordinates  Coordinates `json:"coordinates"`
	Date         Date        `json:"date"`
	Companions   []string    `json:"companions"`
	Description  string      `json:"description"`
	FunFact      string      `json:"funFact,omitempty"`
	Photos       []string    `json:"photos"` // inline data URLs or remote URLs
	Tags         []string    `json:"tags"`
}

// CoverPhoto returns the first photo reference, or "" if there is none.
func (m Memory) CoverPhoto() string {
	if len(m.Photos) == 0 {
		return ""
	}
	return m.Photos[0]
}

// EnrichedData is the structured record extracted from free text by the AI service.
// It is also the draft a user reviews and edits before the first save.
type EnrichedData struct {
	LocationName string      `json:"locationName"`
	Coordinates  Coordinates `json:"coordinates"`
	Date         *Date       `json:"date,omitempty"`
	Companions   []string    `json:"companions,omitempty"`
	Description  string      `json:"description"`
	FunFact      string      `json:"funFact"`
	Tags         []string    `json:"tags"`
}
