package filter

import (
	"fmt"
	"sort"
	"strings"

	"lookout/internal/lookup/models"
	pkgstrings "lookout/pkg/platform/strings"
)

// listSeparator joins multi-valued profile fields in bulk-store payloads.
const listSeparator = " / "

// Candidates is what the bulk-indexed store returned for one phone number.
type Candidates struct {
	Direct    []models.CandidateRecord
	ByName    []models.CandidateRecord
	RawEmails []string
	RawPhones []string
}

// Empty reports whether there is nothing to filter.
func (c Candidates) Empty() bool {
	return len(c.Direct) == 0 && len(c.ByName) == 0 && len(c.RawEmails) == 0 && len(c.RawPhones) == 0
}

// ExtractCandidates reads a bulk-store payload of the form
//
//	{"user_profile": {"emails_all": "a / b", "phones_all": "..."},
//	 "phone_records": {"<store>": {"Data": [{"Phone": ..., "Email": ..., "FullName": ...}]}},
//	 "name_records":  {...}}
//
// Unknown shapes yield empty pools.
func ExtractCandidates(payload map[string]any) Candidates {
	var c Candidates
	if profile, ok := payload["user_profile"].(map[string]any); ok {
		c.RawEmails = pkgstrings.SplitList(str(profile["emails_all"]), listSeparator)
		c.RawPhones = pkgstrings.SplitList(str(profile["phones_all"]), listSeparator)
	}
	c.Direct = records(payload["phone_records"])
	c.ByName = records(payload["name_records"])
	return c
}

func records(node any) []models.CandidateRecord {
	stores, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []models.CandidateRecord
	for _, store := range names {
		info, ok := stores[store].(map[string]any)
		if !ok {
			continue
		}
		rows, ok := info["Data"].([]any)
		if !ok {
			continue
		}
		for _, row := range rows {
			fields, ok := row.(map[string]any)
			if !ok {
				continue
			}
			rec := models.CandidateRecord{
				Name:        strings.TrimSpace(str(fields["FullName"])),
				FirstName:   strings.TrimSpace(str(fields["FirstName"])),
				LastName:    strings.TrimSpace(str(fields["LastName"])),
				Email:       strings.TrimSpace(str(fields["Email"])),
				Phone:       strings.TrimSpace(str(fields["Phone"])),
				OriginStore: store,
			}
			for k, v := range fields {
				switch k {
				case "FullName", "FirstName", "LastName", "Email", "Phone":
					continue
				}
				if s := str(v); s != "" {
					if rec.Extra == nil {
						rec.Extra = make(map[string]string)
					}
					rec.Extra[k] = s
				}
			}
			out = append(out, rec)
		}
	}
	return out
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

// Redact returns a copy of a bulk-store payload holding only accepted
// contact details: emails_all is rewritten to emails and by-name rows whose
// email was rejected are removed. The input is not modified.
func Redact(payload map[string]any, res Result, emails []string) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	if profile, ok := payload["user_profile"].(map[string]any); ok {
		cp := make(map[string]any, len(profile))
		for k, v := range profile {
			cp[k] = v
		}
		cp["emails_all"] = strings.Join(emails, listSeparator)
		out["user_profile"] = cp
	}
	if stores, ok := payload["name_records"].(map[string]any); ok {
		kept := make(map[string]any, len(stores))
		for store, node := range stores {
			info, ok := node.(map[string]any)
			if !ok {
				continue
			}
			rows, _ := info["Data"].([]any)
			var keep []any
			for _, row := range rows {
				fields, ok := row.(map[string]any)
				if ok && res.Allows(str(fields["Email"])) {
					keep = append(keep, row)
				}
			}
			if len(keep) == 0 {
				continue
			}
			cp := make(map[string]any, len(info))
			for k, v := range info {
				cp[k] = v
			}
			cp["Data"] = keep
			kept[store] = cp
		}
		out["name_records"] = kept
	}
	return out
}
