// Package logsheet defines the licensing domain records consumed by the
// performance engine: log sheets (usage records), the work references they
// select, and catalogue works.
//
// Decoding is tolerant. Optional fields may be absent or null, identifiers
// may arrive as numbers or numeric strings, and timestamps that cannot be
// parsed degrade to the zero time instead of failing the whole payload.
//
// Example usage:
//
//	p := logsheet.NewParser(logger.Default())
//	sheets, skipped, err := p.ParseLogSheets("/exports/logsheets.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d log sheets (%d malformed lines skipped)\n", len(sheets), skipped)
package logsheet

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status names used by the licensing workflow.
const (
	StatusApproved = "APPROVED"
	StatusPending  = "PENDING"
	StatusRejected = "REJECTED"
)

// ID is a numeric identifier that also accepts numeric strings and null.
// Any other value decodes to 0, the "no id" value that aggregation skips,
// so one bad reference never rejects the surrounding document.
type ID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	*id = 0

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			*id = ID(n)
		}
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*id = ID(n)
	}
	return nil
}

// Company is the licensee that submitted a log sheet.
type Company struct {
	ID          ID     `json:"id,omitempty"`
	CompanyName string `json:"companyName"`
}

// User is the account that owns a work.
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email,omitempty"`
}

// Status is the approval state of a work or profile. The API has used both
// statusName and status for the same value.
type Status struct {
	StatusName string `json:"statusName,omitempty"`
	Status     string `json:"status,omitempty"`
}

// Name returns the status name, defaulting to PENDING.
func (s *Status) Name() string {
	if s == nil {
		return StatusPending
	}
	if s.StatusName != "" {
		return strings.ToUpper(s.StatusName)
	}
	if s.Status != "" {
		return strings.ToUpper(s.Status)
	}
	return StatusPending
}

// WorkReference is a work selected inside a log sheet.
type WorkReference struct {
	ID     ID     `json:"id"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
	User   *User  `json:"user,omitempty"`
}

// OwnerID returns the owning user id, or 0 when the owner is unknown.
func (w WorkReference) OwnerID() int64 {
	if w.User == nil {
		return 0
	}
	return int64(w.User.ID)
}

// UsageRecord is a log sheet: the works one company selected at one time.
//
// Invariant: SelectedMusic keeps the order in which the company listed the
// works.
type UsageRecord struct {
	ID            ID              `json:"id"`
	Name          string          `json:"logSheetName,omitempty"`
	CreatedDate   string          `json:"createdDate"`
	Company       *Company        `json:"company,omitempty"`
	SelectedMusic []WorkReference `json:"selectedMusic"`
}

// CompanyName returns the licensee name, or "" when absent.
func (r UsageRecord) CompanyName() string {
	if r.Company == nil {
		return ""
	}
	return strings.TrimSpace(r.Company.CompanyName)
}

// CreatedAt parses CreatedDate in loc. Timestamps without a zone are
// interpreted in loc; unparseable values yield the zero time.
func (r UsageRecord) CreatedAt(loc *time.Location) time.Time {
	return ParseTimestamp(r.CreatedDate, loc)
}

// Work is a catalogue entry uploaded by an artist.
type Work struct {
	ID           ID      `json:"id"`
	Title        string  `json:"title"`
	Artist       string  `json:"artist,omitempty"`
	AlbumName    string  `json:"albumName,omitempty"`
	Duration     string  `json:"duration,omitempty"`
	FileType     string  `json:"fileType,omitempty"`
	FileURL      string  `json:"fileUrl,omitempty"`
	UploadedDate string  `json:"uploadedDate,omitempty"`
	Status       *Status `json:"status,omitempty"`
	User         *User   `json:"user,omitempty"`
}

// OwnerID returns the owning user id, or 0 when unknown.
func (w Work) OwnerID() int64 {
	if w.User == nil {
		return 0
	}
	return int64(w.User.ID)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats the API emits.
func ParseTimestamp(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t
		}
	}

	return time.Time{}
}
