package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cyberaid/internal/canon"
)

// Payload keys. These are part of the fingerprint preimage; renaming one
// changes every fingerprint computed afterwards.
const (
	FieldReportID      = "report_id"
	FieldName          = "name"
	FieldMobile        = "mobile"
	FieldPlace         = "place"
	FieldIncidentDate  = "incident_date"
	FieldReportingDate = "reporting_date"
	FieldDescription   = "description"
	FieldCrimeType     = "crime_type"
	FieldExtractedText = "extracted_text"
)

// DateLayout is the format for incident and reporting dates.
const DateLayout = "2006-01-02"

// Fields is a report as submitted, before it is finalized.
// ExtractedText carries OCR evidence and is optional.
type Fields struct {
	ReportID      string `json:"report_id" yaml:"report_id" toml:"report_id"`
	Name          string `json:"name" yaml:"name" toml:"name"`
	Mobile        string `json:"mobile" yaml:"mobile" toml:"mobile"`
	Place         string `json:"place" yaml:"place" toml:"place"`
	IncidentDate  string `json:"incident_date" yaml:"incident_date" toml:"incident_date"`
	ReportingDate string `json:"reporting_date" yaml:"reporting_date" toml:"reporting_date"`
	Description   string `json:"description" yaml:"description" toml:"description"`
	CrimeType     string `json:"crime_type" yaml:"crime_type" toml:"crime_type"`
	ExtractedText string `json:"extracted_text,omitempty" yaml:"extracted_text,omitempty" toml:"extracted_text,omitempty"`
}

// Map returns the fields keyed by payload name. ExtractedText is omitted
// when empty; required fields are always present, even when empty.
func (f Fields) Map() map[string]string {
	m := map[string]string{
		FieldReportID:      f.ReportID,
		FieldName:          f.Name,
		FieldMobile:        f.Mobile,
		FieldPlace:         f.Place,
		FieldIncidentDate:  f.IncidentDate,
		FieldReportingDate: f.ReportingDate,
		FieldDescription:   f.Description,
		FieldCrimeType:     f.CrimeType,
	}
	if f.ExtractedText != "" {
		m[FieldExtractedText] = f.ExtractedText
	}
	return m
}

// Trimmed returns a copy with surrounding whitespace removed from every field
// and every field in Unicode normalization form C, the only form a block
// payload may hold.
func (f Fields) Trimmed() Fields {
	clean := func(s string) string { return canon.NFC(strings.TrimSpace(s)) }
	return Fields{
		ReportID:      clean(f.ReportID),
		Name:          clean(f.Name),
		Mobile:        clean(f.Mobile),
		Place:         clean(f.Place),
		IncidentDate:  clean(f.IncidentDate),
		ReportingDate: clean(f.ReportingDate),
		Description:   clean(f.Description),
		CrimeType:     clean(f.CrimeType),
		ExtractedText: clean(f.ExtractedText),
	}
}

// Snapshot is a finalized report: every required field present and every
// value a plain string. A Snapshot can only be built through New, so code
// holding one never needs ad-hoc field-presence checks.
type Snapshot struct {
	fields Fields
}

// New trims, NFC-normalizes and validates f against RequiredFields and
// returns the snapshot.
func New(f Fields) (Snapshot, error) {
	f = f.Trimmed()
	if err := RequiredFields.Validate(f); err != nil {
		return Snapshot{}, err
	}
	return Snapshot{fields: f}, nil
}

// MustNew is like New but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNew(f Fields) Snapshot {
	s, err := New(f)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the report identifier.
func (s Snapshot) ID() string { return s.fields.ReportID }

// Fields returns a copy of the snapshot's fields.
func (s Snapshot) Fields() Fields { return s.fields }

// IsZero reports whether s was not built through New.
func (s Snapshot) IsZero() bool { return s.fields == Fields{} }

// Payload renders the snapshot as a block payload.
func (s Snapshot) Payload() canon.Object {
	m := s.fields.Map()
	obj := make(canon.Object, len(m))
	for k, v := range m {
		obj[k] = canon.String(v)
	}
	return obj
}

// FromPayload rebuilds a snapshot from a block payload.
func FromPayload(v canon.Value) (Snapshot, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		return Snapshot{}, fmt.Errorf("report payload: expected object, got %T", v)
	}

	get := func(key string) (string, error) {
		raw, ok := obj[key]
		if !ok {
			return "", nil
		}
		s, ok := raw.(canon.String)
		if !ok {
			return "", fmt.Errorf("report payload: field %q is %T, want string", key, raw)
		}
		return string(s), nil
	}

	var f Fields
	targets := []struct {
		key string
		dst *string
	}{
		{FieldReportID, &f.ReportID},
		{FieldName, &f.Name},
		{FieldMobile, &f.Mobile},
		{FieldPlace, &f.Place},
		{FieldIncidentDate, &f.IncidentDate},
		{FieldReportingDate, &f.ReportingDate},
		{FieldDescription, &f.Description},
		{FieldCrimeType, &f.CrimeType},
		{FieldExtractedText, &f.ExtractedText},
	}
	for _, tgt := range targets {
		val, err := get(tgt.key)
		if err != nil {
			return Snapshot{}, err
		}
		*tgt.dst = val
	}
	return New(f)
}

// NewID returns a time-sortable UUIDv7 report identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Date formats t as a report date.
func Date(t time.Time) string {
	return t.Format(DateLayout)
}
