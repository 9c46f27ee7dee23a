// Package normalize converts answer values between the form an author types into the grid and
// the form the answer key stores, according to the answer kind of the module.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

// Stored is the persisted representation of an answer. For single choice answers Index is the
// position of the chosen candidate (0 means none); other kinds keep Text.
type Stored struct {
	Kind  models.AnswerKind
	Index int
	Text  string
}

func (s Stored) String() string {
	if s.Kind == models.SingleChoice {
		return strconv.Itoa(s.Index)
	}
	return s.Text
}

// ParseStored reads a persisted value. A single choice value that is not a number yields index 0.
func ParseStored(raw string, kind models.AnswerKind) Stored {
	raw = strings.TrimSpace(raw)
	if kind != models.SingleChoice {
		return Stored{Kind: kind, Text: raw}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		n = 0
	}
	return Stored{Kind: kind, Index: n}
}

// ToStoredValue never fails: an unknown single choice candidate maps to index 0.
func ToStoredValue(human string, kind models.AnswerKind, candidates []string) Stored {
	human = strings.TrimSpace(human)
	if kind != models.SingleChoice {
		return Stored{Kind: kind, Text: human}
	}
	for i, c := range candidates {
		if c == human {
			return Stored{Kind: kind, Index: i}
		}
	}
	return Stored{Kind: kind, Index: 0}
}

// ToHumanValue is the inverse of ToStoredValue. A single choice index of 0 is the placeholder and
// yields "", as does an index outside the candidate list.
func ToHumanValue(stored Stored, kind models.AnswerKind, candidates []string) string {
	if kind != models.SingleChoice {
		if stored.Kind == models.SingleChoice {
			return strconv.Itoa(stored.Index)
		}
		return strings.TrimSpace(stored.Text)
	}
	idx := stored.Index
	if stored.Kind != models.SingleChoice {
		n, err := strconv.Atoi(strings.TrimSpace(stored.Text))
		if err != nil {
			return ""
		}
		idx = n
	}
	if idx <= 0 || idx >= len(candidates) {
		return ""
	}
	return candidates[idx]
}

// StoredString is ToStoredValue followed by String.
func StoredString(human string, kind models.AnswerKind, candidates []string) string {
	return ToStoredValue(human, kind, candidates).String()
}

// HumanString is ParseStored followed by ToHumanValue.
func HumanString(raw string, kind models.AnswerKind, candidates []string) string {
	return ToHumanValue(ParseStored(raw, kind), kind, candidates)
}

// CandidatesFromJSON decodes the options column. Invalid JSON yields nil.
func CandidatesFromJSON(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err == nil {
		return names
	}
	var opts []models.Option
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		return nil
	}
	names = make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.Name
	}
	return names
}

func CandidatesJSON(candidates []string) string {
	if candidates == nil {
		candidates = []string{}
	}
	b, _ := json.Marshal(candidates)
	return string(b)
}

// Indicator is the short description of a module shown next to its name.
func Indicator(kind models.AnswerKind, optionCount int) string {
	switch kind {
	case models.SingleChoice:
		if optionCount <= 0 {
			return "0"
		}
		last := string(rune('A' + optionCount - 1))
		return strconv.Itoa(optionCount) + " ( A - " + last + " )"
	case models.LetterSequence:
		return strconv.Itoa(optionCount) + " letters"
	case models.FreeText:
		return "Free text"
	}
	return ""
}

// Equivalent compares two answers ignoring case, surrounding whitespace and accents.
func Equivalent(a, b string) bool {
	return strings.EqualFold(fold(a), fold(b))
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(out)
}
