// Package router decides which adapters a query fans out to. It is pure: no
// I/O, no clock, no randomness.
package router

import (
	"strings"

	"lookout/internal/lookup/adapters"
	"lookout/internal/lookup/models"
)

// Mode says how a region's adapters combine with the universal set.
type Mode int

const (
	// ModeNone detects the region but keeps the universal set.
	ModeNone Mode = iota
	// ModeAdd appends region adapters after the universal set.
	ModeAdd
	// ModeReplace uses only the region adapters.
	ModeReplace
)

// RegionProfile is one calling-code predicate plus its routing rule.
type RegionProfile struct {
	Region    models.Region
	Prefix    string
	MinDigits int
	MaxDigits int
	Mode      Mode
	Adapters  []adapters.Kind
}

// Matches reports whether normalized phone digits fall in this region.
func (p RegionProfile) Matches(digits string) bool {
	n := len(digits)
	return strings.HasPrefix(digits, p.Prefix) && n >= p.MinDigits && n <= p.MaxDigits
}

// UniversalPhone is queried for every phone number outside a replacing region.
var UniversalPhone = []adapters.Kind{
	adapters.KindTruecaller,
	adapters.KindInstagram,
	adapters.KindIPQualityScore,
	adapters.KindMicrosoftPhone,
	adapters.KindDataBreach,
	adapters.KindSnapchat,
	adapters.KindMessengerPresence,
	adapters.KindPeopleIndex,
}

// UniversalEmail is queried for every email address.
var UniversalEmail = []adapters.Kind{
	adapters.KindOSINTIndustries,
	adapters.KindHIBP,
}

// DefaultRegions are evaluated in order; the first match wins.
var DefaultRegions = []RegionProfile{
	{
		Region:    models.RegionIndonesia,
		Prefix:    "62",
		MinDigits: 10,
		MaxDigits: 15,
		Mode:      ModeReplace,
		Adapters:  []adapters.Kind{adapters.KindIndonesiaInvestigate},
	},
	{
		Region:    models.RegionUS,
		Prefix:    "1",
		MinDigits: 11,
		MaxDigits: 11,
		Mode:      ModeNone,
	},
}

// Router maps a query to an ordered list of adapter kinds.
type Router struct {
	phone   []adapters.Kind
	email   []adapters.Kind
	regions []RegionProfile
}

// Option configures a Router.
type Option func(*Router)

// WithRegions replaces the region table.
func WithRegions(regions ...RegionProfile) Option {
	return func(r *Router) {
		r.regions = regions
	}
}

// WithUniversalPhone replaces the universal phone set. Empty input is ignored.
func WithUniversalPhone(kinds ...adapters.Kind) Option {
	return func(r *Router) {
		if len(kinds) > 0 {
			r.phone = kinds
		}
	}
}

// New builds a Router over the default tables.
func New(opts ...Option) *Router {
	r := &Router{
		phone:   UniversalPhone,
		email:   UniversalEmail,
		regions: DefaultRegions,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Detect returns the region whose predicate matches q, or RegionNone.
func (r *Router) Detect(q models.Query) models.Region {
	if p, ok := r.profile(q); ok {
		return p.Region
	}
	return models.RegionNone
}

// Resolve returns q with its Region filled in.
func (r *Router) Resolve(q models.Query) models.Query {
	q.Region = r.Detect(q)
	return q
}

// Route returns the adapters to invoke for q. The result is never empty and
// never aliases the router's tables.
func (r *Router) Route(q models.Query) []adapters.Kind {
	if q.Kind == models.KindEmail {
		return clone(r.email)
	}

	p, ok := r.profile(q)
	if !ok {
		return clone(r.phone)
	}
	switch p.Mode {
	case ModeReplace:
		if len(p.Adapters) == 0 {
			return clone(r.phone)
		}
		return clone(p.Adapters)
	case ModeAdd:
		out := clone(r.phone)
		for _, k := range p.Adapters {
			if !contains(out, k) {
				out = append(out, k)
			}
		}
		return out
	default:
		return clone(r.phone)
	}
}

func (r *Router) profile(q models.Query) (RegionProfile, bool) {
	if q.Kind != models.KindPhone {
		return RegionProfile{}, false
	}
	digits := q.Digits()
	for _, p := range r.regions {
		if p.Matches(digits) {
			return p, true
		}
	}
	return RegionProfile{}, false
}

func clone(kinds []adapters.Kind) []adapters.Kind {
	out := make([]adapters.Kind, len(kinds))
	copy(out, kinds)
	return out
}

func contains(kinds []adapters.Kind, k adapters.Kind) bool {
	for _, existing := range kinds {
		if existing == k {
			return true
		}
	}
	return false
}
