package filter

import (
	"strings"

	"golang.org/x/text/cases"
)

// SplitName returns the case-folded first and last name. "Last, First" is
// recognised before "First ... Last"; a single word has no last name.
func SplitName(full string) (first, last string) {
	return splitName(cases.Fold(), full)
}

func splitName(fold cases.Caser, full string) (first, last string) {
	name := strings.Join(strings.Fields(full), " ")
	if name == "" {
		return "", ""
	}
	if before, after, ok := strings.Cut(name, ","); ok {
		last = fold.String(strings.TrimSpace(before))
		if words := strings.Fields(after); len(words) > 0 {
			first = fold.String(words[0])
		}
		return first, last
	}
	words := strings.Fields(name)
	first = fold.String(words[0])
	if len(words) >= 2 {
		last = fold.String(words[len(words)-1])
	}
	return first, last
}

// localPart returns the part of an email before "@".
func localPart(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}
