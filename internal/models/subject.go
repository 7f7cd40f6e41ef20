package models

import (
	"sort"
	"strings"
)

type Subject string

// Form is the school grade level a question is pitched at.
type Form string

var subjectNames = map[Subject]string{
	"mathematics":            "Mathematics",
	"english":                "English",
	"malay":                  "Malay",
	"chinese":                "Chinese",
	"history":                "History",
	"tamil":                  "Tamil",
	"physics":                "Physics",
	"biology":                "Biology",
	"chemistry":              "Chemistry",
	"science":                "Science",
	"modern_mathematics":     "Modern Mathematics",
	"additional_mathematics": "Additional Mathematics",
}

var forms = map[Form]bool{
	"transition": true,
	"one":        true,
	"two":        true,
	"three":      true,
	"four":       true,
	"five":       true,
}

// MaxTags is the number of tags a question may carry.
const MaxTags = 5

func (s Subject) Valid() bool {
	_, ok := subjectNames[s]
	return ok
}

// Label returns the display name of the subject.
func (s Subject) Label() string {
	return subjectNames[s]
}

func (f Form) Valid() bool {
	return forms[f]
}

// Subjects returns every known subject in stable order.
func Subjects() []Subject {
	out := make([]Subject, 0, len(subjectNames))
	for s := range subjectNames {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NormalizeTags trims, lowercases and de-duplicates tag names, dropping blanks.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
