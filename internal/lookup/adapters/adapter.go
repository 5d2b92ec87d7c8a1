package adapters

import (
	"context"
	"fmt"
	"sort"

	"lookout/internal/lookup/models"
)

// Kind identifies one upstream lookup source.
type Kind string

// Phone sources.
const (
	KindTruecaller        Kind = "truecaller"
	KindInstagram         Kind = "instagram"
	KindIPQualityScore    Kind = "ipqualityscore"
	KindMicrosoftPhone    Kind = "microsoft_phone"
	KindDataBreach        Kind = "data_breach"
	KindSnapchat          Kind = "snapchat"
	KindMessengerPresence Kind = "messenger_presence"
	// KindPeopleIndex is the bulk-indexed store whose records feed the
	// confidence filter.
	KindPeopleIndex          Kind = "people_index"
	KindIndonesiaInvestigate Kind = "indonesia_investigate"
)

// Email sources.
const (
	KindOSINTIndustries Kind = "osint_industries"
	KindHIBP            Kind = "hibp"
)

func (k Kind) String() string { return string(k) }

// Response is what every adapter hands back. Success=false carries Error;
// Success=true carries Data and an optional found/not_found Status.
type Response struct {
	Success bool                `json:"success"`
	Source  string              `json:"source"`
	Data    map[string]any      `json:"data,omitempty"`
	Error   string              `json:"error,omitempty"`
	Status  models.LookupStatus `json:"status,omitempty"`
}

// Adapter is the contract every lookup source implements. Invoke must return
// within the deadline carried by ctx.
type Adapter interface {
	Kind() Kind
	Invoke(ctx context.Context, identifier string) (Response, error)
}

// Registry is the static Kind to Adapter table built at startup.
type Registry struct {
	adapters map[Kind]Adapter
}

// NewRegistry builds a registry. Registering the same kind twice is an error.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{adapters: make(map[Kind]Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			continue
		}
		if _, exists := r.adapters[a.Kind()]; exists {
			return nil, fmt.Errorf("adapter %s already registered", a.Kind())
		}
		r.adapters[a.Kind()] = a
	}
	return r, nil
}

// Get retrieves an adapter by kind.
func (r *Registry) Get(kind Kind) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.adapters[kind]
	return a, ok
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.adapters))
	for k := range r.adapters {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Ok builds a successful response.
func Ok(kind Kind, data map[string]any, status models.LookupStatus) Response {
	return Response{Success: true, Source: kind.String(), Data: data, Status: status}
}

// Fail builds a failed response.
func Fail(kind Kind, msg string) Response {
	return Response{Success: false, Source: kind.String(), Error: msg}
}
