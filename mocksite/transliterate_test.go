package mocksite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestTransliterateConvertsWordByWord(t *testing.T) {
	result := Transliterate("mama gedhara yanavaa.", DefaultDictionary())
	assert.Equal(t, []string{
		"මම",
		"මම ගෙදර",
		"මම ගෙදර යනවා",
		"මම ගෙදර යනවා.",
	}, result.Steps)
	assert.Equal(t, "මම ගෙදර යනවා.", result.Final())
}

func TestTransliterateKeepsUnknownWordsAndDigits(t *testing.T) {
	result := Transliterate("mama Zoom 2025", DefaultDictionary())
	assert.Equal(t, "මම Zoom 2025", result.Final())
}

func TestTransliterateIgnoresCaseForLookup(t *testing.T) {
	assert.Equal(t, "මම", Transliterate("Mama", DefaultDictionary()).Final())
}

func TestTransliterateBlankInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		result := Transliterate(input, DefaultDictionary())
		assert.Empty(t, result.Steps)
		assert.Equal(t, "", result.Final())
	}
}

func TestTransliterateStepsGrowByAppending(t *testing.T) {
	words := []string{"mama", "oyaa", "gedhara", "xyz", "Abc"}
	rapid.Check(t, func(t *rapid.T) {
		parts := rapid.SliceOfN(rapid.SampledFrom(words), 1, 8).Draw(t, "words")
		sep := rapid.SampledFrom([]string{" ", ", ", "  ", "\n"}).Draw(t, "sep")
		result := Transliterate(strings.Join(parts, sep), DefaultDictionary())

		if len(result.Steps) != len(parts) {
			t.Fatalf("expected %d steps, got %d", len(parts), len(result.Steps))
		}
		for i := 1; i < len(result.Steps); i++ {
			if !strings.HasPrefix(result.Steps[i], result.Steps[i-1]) {
				t.Fatalf("step %d %q does not extend %q", i, result.Steps[i], result.Steps[i-1])
			}
		}
	})
}

func TestTransliterateWithEmptyDictionaryIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		input := rapid.StringMatching(`[a-z ,.]{1,30}`).Draw(t, "input")
		if strings.TrimSpace(input) == "" {
			t.Skip("blank")
		}
		if got := Transliterate(input, map[string]string{}).Final(); got != input {
			t.Fatalf("expected %q, got %q", input, got)
		}
	})
}

func TestLearnDictionary(t *testing.T) {
	pairs := func(yield func(string, string) bool) {
		_ = yield("eyaa gedhara giyaa.", "එයා ගෙදර ගියා.") &&
			yield("eyaa heta", "ඔහු") &&
			yield("eyaa enna", "වෙනත් එන්න") &&
			yield("2025", "2025")
	}
	dict := LearnDictionary(pairs)
	assert.Equal(t, map[string]string{
		"eyaa":    "එයා",
		"gedhara": "ගෙදර",
		"giyaa":   "ගියා",
		"enna":    "එන්න",
	}, dict)
	assert.Equal(t, "එයා ගෙදර ගියා.", Transliterate("eyaa gedhara giyaa.", dict).Final())
}
