// Package normalizer projects heterogeneous source payloads onto a common
// field set. Every function here is total: malformed payloads yield absent
// fields, never errors.
package normalizer

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lookout/internal/lookup/models"
	pkgstrings "lookout/pkg/platform/strings"
)

const (
	fieldDisplayName = "display_name"
	fieldCarrier     = "carrier"
	fieldLocation    = "location"
	fieldBreaches    = "breach_sources"
	fieldHandles     = "handles"
)

// Normalize maps one SourceResult. Non-ok results and unmapped sources yield
// every field absent; unmapped sources carry their payload in Raw.
func Normalize(res models.SourceResult) models.NormalizedFields {
	out := models.NormalizedFields{
		Source:      res.Source,
		DisplayName: models.Absent,
		Carrier:     models.Absent,
		Location:    models.Absent,
	}
	if !res.OK() {
		return out
	}

	m, ok := mappings[res.Source]
	if !ok {
		out.Raw = res.Payload
		return out
	}

	payload := res.Payload
	if len(m.name) > 0 {
		if v := first(payload, m.name); v != "" {
			out.DisplayName = displayName(v)
		} else {
			out.Missing = append(out.Missing, fieldDisplayName)
		}
	}
	if len(m.carrier) > 0 {
		if v := first(payload, m.carrier); v != "" {
			out.Carrier = v
		} else {
			out.Missing = append(out.Missing, fieldCarrier)
		}
	}
	if len(m.location) > 0 {
		if v := joined(payload, m.location); v != "" {
			out.Location = v
		} else {
			out.Missing = append(out.Missing, fieldLocation)
		}
	}
	if len(m.breaches) > 0 {
		var names []string
		for _, p := range m.breaches {
			names = append(names, strs(resolve(payload, p))...)
		}
		out.BreachSources = pkgstrings.DedupeFold(names)
		if len(out.BreachSources) == 0 {
			out.BreachSources = nil
			if !present(payload, m.breaches) {
				out.Missing = append(out.Missing, fieldBreaches)
			}
		}
	}
	if len(m.handles) > 0 || m.handleList != "" {
		out.Handles = handles(payload, m)
		if len(out.Handles) == 0 {
			out.Handles = nil
			out.Missing = append(out.Missing, fieldHandles)
		}
	}
	return out
}

// NormalizeAll maps every result, preserving order.
func NormalizeAll(results []models.SourceResult) []models.NormalizedFields {
	out := make([]models.NormalizedFields, len(results))
	for i, r := range results {
		out[i] = Normalize(r)
	}
	return out
}

// Summarize unions normalized fields and counts result statuses.
func Summarize(results []models.SourceResult, fields []models.NormalizedFields) models.Summary {
	var sum models.Summary
	for _, r := range results {
		switch r.Status {
		case models.StatusOK:
			sum.Succeeded++
		case models.StatusError:
			sum.Failed++
		case models.StatusSkipped:
			sum.Skipped++
		}
	}

	var names, carriers, locations, breaches []string
	for _, f := range fields {
		if f.DisplayName != models.Absent {
			names = append(names, f.DisplayName)
		}
		if f.Carrier != models.Absent {
			carriers = append(carriers, f.Carrier)
		}
		if f.Location != models.Absent {
			locations = append(locations, f.Location)
		}
		breaches = append(breaches, f.BreachSources...)
		for platform, exists := range f.Handles {
			if sum.Handles == nil {
				sum.Handles = make(map[string]bool)
			}
			sum.Handles[platform] = sum.Handles[platform] || exists
		}
	}
	sum.DisplayNames = pkgstrings.DedupeFold(names)
	sum.Carriers = pkgstrings.DedupeFold(carriers)
	sum.Locations = pkgstrings.DedupeFold(locations)
	sum.BreachSources = pkgstrings.DedupeFold(breaches)
	sort.Strings(sum.BreachSources)
	return sum
}

func handles(payload map[string]any, m mapping) map[string]bool {
	out := make(map[string]bool)
	for platform, path := range m.handles {
		vals := resolve(payload, path)
		if len(vals) == 0 {
			continue
		}
		out[platform] = truthy(vals[0])
	}
	if m.handleList != "" {
		for _, name := range strs(resolve(payload, m.handleList)) {
			out[strings.ToLower(name)] = true
		}
	}
	return out
}

func first(payload map[string]any, paths []string) string {
	for _, p := range paths {
		if s := strs(resolve(payload, p)); len(s) > 0 {
			return s[0]
		}
	}
	return ""
}

func joined(payload map[string]any, paths []string) string {
	var parts []string
	for _, p := range paths {
		if s := strs(resolve(payload, p)); len(s) > 0 {
			parts = append(parts, s[0])
		}
	}
	return strings.Join(pkgstrings.DedupeFold(parts), ", ")
}

func present(payload map[string]any, paths []string) bool {
	for _, p := range paths {
		head, _, _ := strings.Cut(p, ".*")
		if len(resolve(payload, head)) > 0 {
			return true
		}
	}
	return false
}

// resolve walks a dot-path from node.
func resolve(node any, path string) []any {
	if path == "" {
		if node == nil {
			return nil
		}
		return []any{node}
	}
	seg, rest, _ := strings.Cut(path, ".")
	switch t := node.(type) {
	case map[string]any:
		if seg == "*" {
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			var out []any
			for _, k := range keys {
				out = append(out, resolve(t[k], rest)...)
			}
			return out
		}
		child, ok := t[seg]
		if !ok {
			return nil
		}
		return resolve(child, rest)
	case []any:
		if seg == "*" {
			var out []any
			for _, el := range t {
				out = append(out, resolve(el, rest)...)
			}
			return out
		}
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(t) {
			return nil
		}
		return resolve(t[i], rest)
	default:
		return nil
	}
}

// strs keeps the scalar values that render to a non-empty string.
func strs(vals []any) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		}
		if s != "" && !strings.EqualFold(s, models.Absent) {
			out = append(out, s)
		}
	}
	return out
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "found":
			return true
		}
	}
	return false
}

// displayName collapses whitespace and title-cases names sent in a single case.
func displayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == strings.ToUpper(name) || name == strings.ToLower(name) {
		return cases.Title(language.Und).String(strings.ToLower(name))
	}
	return name
}
