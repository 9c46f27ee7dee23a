package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/answersheet-service/internal/models"
)

var fiveCandidates = []string{"-", "A", "B", "C", "D"}

func TestSingleChoiceRoundTrip(t *testing.T) {
	stored := ToStoredValue("B", models.SingleChoice, fiveCandidates)
	assert.Equal(t, 2, stored.Index)
	assert.Equal(t, "2", stored.String())

	assert.Equal(t, "B", ToHumanValue(Stored{Kind: models.SingleChoice, Index: 2}, models.SingleChoice, fiveCandidates))
	assert.Equal(t, "B", HumanString("2", models.SingleChoice, fiveCandidates))
}

func TestSingleChoiceFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		human string
		want  int
	}{
		{"absent candidate", "Z", 0},
		{"empty", "", 0},
		{"placeholder", "-", 0},
		{"trimmed", "  C ", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToStoredValue(tt.human, models.SingleChoice, fiveCandidates).Index)
		})
	}

	assert.Equal(t, "", HumanString("9", models.SingleChoice, fiveCandidates))
	assert.Equal(t, "", HumanString("-1", models.SingleChoice, fiveCandidates))
	assert.Equal(t, "", HumanString("garbage", models.SingleChoice, fiveCandidates))
	assert.Equal(t, "", HumanString("0", models.SingleChoice, fiveCandidates))
	assert.Equal(t, "", ToHumanValue(ToStoredValue("-", models.SingleChoice, fiveCandidates), models.SingleChoice, fiveCandidates))
}

func TestNonChoiceKindsTrim(t *testing.T) {
	for _, kind := range []models.AnswerKind{models.LetterSequence, models.FreeText} {
		for _, v := range []string{"ABC", "  spaced  ", "", "Éléphant "} {
			stored := ToStoredValue(v, kind, fiveCandidates)
			assert.Equal(t, trimmed(v), ToHumanValue(stored, kind, fiveCandidates), "kind %s value %q", kind, v)
		}
	}
}

func trimmed(s string) string {
	out := s
	for len(out) > 0 && out[0] == ' ' {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == ' ' {
		out = out[:len(out)-1]
	}
	return out
}

func TestParseStored(t *testing.T) {
	assert.Equal(t, Stored{Kind: models.SingleChoice, Index: 3}, ParseStored(" 3 ", models.SingleChoice))
	assert.Equal(t, Stored{Kind: models.SingleChoice}, ParseStored("x", models.SingleChoice))
	assert.Equal(t, Stored{Kind: models.FreeText, Text: "abc"}, ParseStored("abc ", models.FreeText))
}

func TestCandidatesJSON(t *testing.T) {
	raw := CandidatesJSON(fiveCandidates)
	assert.Equal(t, `["-","A","B","C","D"]`, raw)
	assert.Equal(t, fiveCandidates, CandidatesFromJSON(raw))

	assert.Equal(t, []string{"-", "A"}, CandidatesFromJSON(`[{"name":"-","selected":true},{"name":"A","selected":false}]`))
	assert.Nil(t, CandidatesFromJSON("not json"))
	assert.Nil(t, CandidatesFromJSON(""))
	assert.Equal(t, "[]", CandidatesJSON(nil))
}

func TestIndicator(t *testing.T) {
	assert.Equal(t, "4 ( A - D )", Indicator(models.SingleChoice, 4))
	assert.Equal(t, "6 letters", Indicator(models.LetterSequence, 6))
	assert.Equal(t, "Free text", Indicator(models.FreeText, 4))
}

func TestEquivalent(t *testing.T) {
	assert.True(t, Equivalent("Éléphant", " elephant "))
	assert.True(t, Equivalent("abc", "ABC"))
	assert.False(t, Equivalent("abc", "abd"))
}
