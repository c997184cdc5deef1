package domain

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Coordinates locate content in the curriculum. Chapter may be empty for
// requests that span a whole subject.
type Coordinates struct {
	Section string `json:"section"`
	Subject string `json:"subject"`
	Chapter string `json:"chapter,omitempty"`
}

// Validate checks that the section and subject are set.
func (c Coordinates) Validate() error {
	if strings.TrimSpace(c.Section) == "" {
		return fmt.Errorf("%w: section cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("%w: subject cannot be empty", ErrValidation)
	}
	return nil
}

// String renders the coordinates as "section / subject / chapter".
func (c Coordinates) String() string {
	parts := []string{c.Section, c.Subject}
	if c.Chapter != "" {
		parts = append(parts, c.Chapter)
	}
	return strings.Join(parts, " / ")
}

// Profile is the learner profile kept alongside the local account.
type Profile struct {
	Name            string   `json:"name"`
	Grade           string   `json:"grade,omitempty"`
	ExamPreferences []string `json:"exam_preferences,omitempty"`
}

// Fingerprint returns the normalized exam preferences: trimmed,
// lower-cased, de-duplicated, sorted, escaped and comma-joined. It is the only
// profile input that changes generated notes.
func (p Profile) Fingerprint() string {
	return Fingerprint(p.ExamPreferences)
}

// Fingerprint normalizes a variable list input so that reorderings of the
// same values produce the same string. Each value is query-escaped, so a
// value containing a comma never matches two separate values.
func Fingerprint(values []string) string {
	set := NormalizeSet(values, true)
	for i, v := range set {
		set[i] = url.QueryEscape(v)
	}
	return strings.Join(set, ",")
}

// NormalizeSet trims values, drops empties and duplicates, and sorts the
// result. When fold is set values are lower-cased first. The input slice is
// not modified.
func NormalizeSet(values []string, fold bool) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if fold {
			v = strings.ToLower(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
