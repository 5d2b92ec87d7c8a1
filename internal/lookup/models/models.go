// Package models holds the value types that flow through the lookup pipeline.
package models

import (
	"time"
)

// IdentifierKind is the kind of identifier being resolved.
type IdentifierKind string

const (
	KindPhone IdentifierKind = "phone"
	KindEmail IdentifierKind = "email"
)

// Region is the detected calling region of a phone query. Empty when none matched.
type Region string

const (
	RegionNone      Region = ""
	RegionUS        Region = "US"
	RegionIndonesia Region = "ID"
)

// Query is an immutable, normalized lookup request.
type Query struct {
	Raw        string         `json:"raw"`
	Normalized string         `json:"normalized"`
	Kind       IdentifierKind `json:"kind"`
	Region     Region         `json:"region,omitempty"`
}

// Digits returns the normalized phone number without its leading "+".
func (q Query) Digits() string {
	if q.Kind != KindPhone || len(q.Normalized) == 0 {
		return ""
	}
	if q.Normalized[0] == '+' {
		return q.Normalized[1:]
	}
	return q.Normalized
}

// ResultStatus is the terminal state of one adapter invocation.
type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusError   ResultStatus = "error"
	StatusSkipped ResultStatus = "skipped"
)

// LookupStatus is the adapter's own found/not_found verdict on an ok result.
type LookupStatus string

const (
	LookupFound    LookupStatus = "found"
	LookupNotFound LookupStatus = "not_found"
)

// SourceResult is the outcome of one adapter invocation.
type SourceResult struct {
	Source   string         `json:"source"`
	Status   ResultStatus   `json:"status"`
	Lookup   LookupStatus   `json:"lookup,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
	Error    string         `json:"error,omitempty"`
	Category string         `json:"error_category,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// OK reports whether the adapter produced a usable payload.
func (r SourceResult) OK() bool {
	return r.Status == StatusOK
}

// Absent marks a field the source did not provide.
const Absent = "N/A"

// NormalizedFields is the common shape projected from one source payload.
type NormalizedFields struct {
	Source        string          `json:"source"`
	DisplayName   string          `json:"display_name"`
	Carrier       string          `json:"carrier"`
	Location      string          `json:"location"`
	BreachSources []string        `json:"breach_sources,omitempty"`
	Handles       map[string]bool `json:"handles,omitempty"`
	// Missing lists mapped fields the payload did not contain.
	Missing []string `json:"missing,omitempty"`
	// Raw carries the payload through for sources without a mapping.
	Raw map[string]any `json:"raw,omitempty"`
}

// Summary unions the normalized fields across every source.
type Summary struct {
	Succeeded     int             `json:"succeeded"`
	Failed        int             `json:"failed"`
	Skipped       int             `json:"skipped"`
	DisplayNames  []string        `json:"display_names,omitempty"`
	Carriers      []string        `json:"carriers,omitempty"`
	Locations     []string        `json:"locations,omitempty"`
	BreachSources []string        `json:"breach_sources,omitempty"`
	Handles       map[string]bool `json:"handles,omitempty"`
}

// CandidateScore reports how one bulk-store record was scored.
type CandidateScore struct {
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	OriginStore string   `json:"origin_store,omitempty"`
	Pool        string   `json:"pool"`
	Score       int      `json:"score"`
	Accepted    bool     `json:"accepted"`
	Rules       []string `json:"rules,omitempty"`
}

// Contacts are the contact details retained after confidence filtering.
type Contacts struct {
	Emails     []string         `json:"emails"`
	Phones     []string         `json:"phones"`
	Candidates []CandidateScore `json:"candidates,omitempty"`
}

// MergedProfile is the aggregated view for one identifier. It is the cache value.
type MergedProfile struct {
	Identifier  string             `json:"identifier"`
	Kind        IdentifierKind     `json:"kind"`
	Region      Region             `json:"region,omitempty"`
	Sources     []SourceResult     `json:"sources"`
	Fields      []NormalizedFields `json:"fields"`
	Summary     Summary            `json:"summary"`
	Contacts    *Contacts          `json:"contacts,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// CandidateRecord is a transient bulk-store record considered by the filter.
type CandidateRecord struct {
	Name        string            `json:"name"`
	FirstName   string            `json:"first_name,omitempty"`
	LastName    string            `json:"last_name,omitempty"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Extra       map[string]string `json:"extra,omitempty"`
	OriginStore string            `json:"origin_store"`
}

// FullName returns Name, or "First Last" when only the parts are set.
func (c CandidateRecord) FullName() string {
	if c.Name != "" {
		return c.Name
	}
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}
