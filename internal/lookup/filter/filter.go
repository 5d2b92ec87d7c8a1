// Package filter scores bulk-store records against the person a phone number
// belongs to and drops contact details that belong to someone else.
//
// Records come in two pools. Direct records were found by phone number and
// are trusted; by-name records were found through a shared name and must
// earn a confidence score of at least Threshold to be retained.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"lookout/internal/lookup/identifier"
	"lookout/internal/lookup/models"
	pkgstrings "lookout/pkg/platform/strings"
)

// Threshold is the inclusive minimum score for a by-name record.
const Threshold = 30

// Rule weights.
const (
	WeightPhoneOverlap   = 50
	WeightFullName       = 40
	WeightFirstName      = 30
	WeightLastName       = 10
	WeightSurnameOnly    = -40
	WeightDifferentName  = -30
	WeightEmailFirstName = 20
	WeightTrustedStore   = 10
)

// Pool labels reported on CandidateScore.
const (
	PoolDirect = "direct"
	PoolByName = "by_name"
)

// TrustedStores are origin stores whose records earn WeightTrustedStore.
var TrustedStores = map[string]struct{}{
	"Apollo":      {},
	"Acxiom":      {},
	"EatStreet":   {},
	"ChatBooks":   {},
	"MGM Resorts": {},
	"Havenly":     {},
	"ScentBird":   {},
	"StockX":      {},
	"Twitter":     {},
	"Arteza.com":  {},
}

// Accept reports whether score clears the threshold.
func Accept(score int) bool {
	return score >= Threshold
}

// Result is the outcome of scoring one target.
type Result struct {
	AnchorFirst string
	AnchorLast  string
	Scores      []models.CandidateScore
	accepted    map[string]struct{}
}

// Allows reports whether email belongs to the accepted set.
func (r Result) Allows(email string) bool {
	_, ok := r.accepted[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// AcceptedEmails returns the accepted set in scoring order.
func (r Result) AcceptedEmails() []string {
	var out []string
	seen := make(map[string]struct{}, len(r.accepted))
	for _, s := range r.Scores {
		key := strings.ToLower(s.Email)
		if !s.Accepted || key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Score evaluates both pools for target. Direct records only count when
// their phone contains the target digits.
func Score(target string, direct, byName []models.CandidateRecord) Result {
	fold := cases.Fold()
	targetDigits := identifier.Digits(target)
	res := Result{accepted: make(map[string]struct{})}

	names := make(map[string]struct{})
	for _, rec := range direct {
		phone := identifier.Digits(rec.Phone)
		if phone == "" || targetDigits == "" || !strings.Contains(phone, targetDigits) {
			continue
		}
		email := strings.ToLower(strings.TrimSpace(rec.Email))
		name := rec.FullName()
		if email != "" {
			res.accepted[email] = struct{}{}
			res.Scores = append(res.Scores, models.CandidateScore{
				Email:       email,
				Name:        name,
				OriginStore: rec.OriginStore,
				Pool:        PoolDirect,
				Accepted:    true,
				Rules:       []string{"direct_phone_match"},
			})
		}
		if name != "" {
			names[fold.String(name)] = struct{}{}
			if res.AnchorFirst == "" {
				res.AnchorFirst, res.AnchorLast = splitName(fold, name)
			}
		}
	}

	if res.AnchorFirst == "" {
		return res
	}

	for _, rec := range byName {
		email := strings.ToLower(strings.TrimSpace(rec.Email))
		if email == "" {
			continue
		}
		cs := scoreRecord(fold, targetDigits, names, res.AnchorFirst, res.AnchorLast, rec)
		cs.Email = email
		cs.Accepted = Accept(cs.Score)
		if cs.Accepted {
			res.accepted[email] = struct{}{}
		}
		res.Scores = append(res.Scores, cs)
	}
	return res
}

func scoreRecord(fold cases.Caser, target string, names map[string]struct{}, anchorFirst, anchorLast string, rec models.CandidateRecord) models.CandidateScore {
	name := rec.FullName()
	cs := models.CandidateScore{Name: name, OriginStore: rec.OriginStore, Pool: PoolByName}
	add := func(rule string, weight int) {
		cs.Score += weight
		cs.Rules = append(cs.Rules, rule)
	}

	if phone := identifier.Digits(rec.Phone); phone != "" && target != "" {
		if strings.Contains(phone, target) || strings.Contains(target, phone) {
			add("phone_overlap", WeightPhoneOverlap)
		}
	}
	if name != "" {
		if _, ok := names[fold.String(name)]; ok {
			add("full_name", WeightFullName)
		}
	}

	first, last := splitName(fold, name)
	switch {
	case first == anchorFirst:
		add("first_name", WeightFirstName)
		if last != "" && anchorLast != "" && last == anchorLast {
			add("last_name", WeightLastName)
		}
	case first != "":
		if last != "" && anchorLast != "" && last == anchorLast {
			add("surname_only", WeightSurnameOnly)
		} else {
			add("different_name", WeightDifferentName)
		}
	}

	if strings.Contains(fold.String(localPart(rec.Email)), anchorFirst) {
		add("email_first_name", WeightEmailFirstName)
	}
	if _, ok := TrustedStores[rec.OriginStore]; ok {
		add("trusted_store", WeightTrustedStore)
	}
	return cs
}

// Apply keeps the raw emails in the accepted set, preserving their order and
// original casing. Phones pass through de-duplicated.
func Apply(res Result, rawEmails, rawPhones []string) models.Contacts {
	emails := make([]string, 0, len(rawEmails))
	for _, e := range pkgstrings.DedupeFold(rawEmails) {
		if res.Allows(e) {
			emails = append(emails, e)
		}
	}
	phones := pkgstrings.DedupeAndTrim(rawPhones)
	if phones == nil {
		phones = []string{}
	}
	return models.Contacts{
		Emails:     emails,
		Phones:     phones,
		Candidates: res.Scores,
	}
}

// Counts returns accepted and rejected totals per pool.
func (r Result) Counts() map[string][2]int {
	out := map[string][2]int{}
	for _, s := range r.Scores {
		c := out[s.Pool]
		if s.Accepted {
			c[0]++
		} else {
			c[1]++
		}
		out[s.Pool] = c
	}
	return out
}
