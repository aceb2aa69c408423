package mocksite

import (
	"iter"
	"regexp"
	"strings"
)

// DefaultDictionary covers the words used by the built-in fixtures and a few more.
func DefaultDictionary() map[string]string {
	return map[string]string{
		"mama":     "මම",
		"oyaa":     "ඔයා",
		"eyaa":     "එයා",
		"api":      "අපි",
		"gedhara":  "ගෙදර",
		"giyaa":    "ගියා",
		"yanavaa":  "යනවා",
		"enavadha": "එනවද",
		"thaama":   "තාම",
		"kanavaa":  "කනවා",
		"kaeema":   "කෑම",
		"kannavaa": "කන්නවා",
		"heta":     "හෙට",
		"udhee":    "උදේ",
		"ta":       "ට",
		"yanna":    "යන්න",
		"enna":     "එන්න",
		"hari":     "හරි",
		"ov":       "ඔව්",
		"eeka":     "ඒක",
		"adha":     "අද",
		"mata":     "මට",
		"ekak":     "එකක්",
		"eka":      "එක",
	}
}

var wordRegex = regexp.MustCompile(`[A-Za-z]+`) //nolint:gochecknoglobals

// Transliteration is the output for one input, as the sequence of texts the page shows while
// the conversion proceeds word by word. The last step is the complete output.
type Transliteration struct {
	Steps []string
}

// Final is the complete output, or "" for empty input.
func (t Transliteration) Final() string {
	if len(t.Steps) == 0 {
		return ""
	}
	return t.Steps[len(t.Steps)-1]
}

// Transliterate converts every known word of input and leaves everything else, including
// unknown words, digits, and punctuation, as it is.
func Transliterate(input string, dictionary map[string]string) Transliteration {
	if strings.TrimSpace(input) == "" {
		return Transliteration{}
	}
	var steps []string
	var sb strings.Builder
	last := 0
	for _, loc := range wordRegex.FindAllStringIndex(input, -1) {
		sb.WriteString(input[last:loc[0]])
		sb.WriteString(convertWord(input[loc[0]:loc[1]], dictionary))
		last = loc[1]
		steps = append(steps, sb.String())
	}
	sb.WriteString(input[last:])
	final := sb.String()
	if len(steps) == 0 || steps[len(steps)-1] != final {
		steps = append(steps, final)
	}
	return Transliteration{Steps: steps}
}

func convertWord(word string, dictionary map[string]string) string {
	if s, ok := dictionary[word]; ok {
		return s
	}
	if s, ok := dictionary[strings.ToLower(word)]; ok {
		return s
	}
	return word
}

var sinhalaWordRegex = regexp.MustCompile(`[\p{Sinhala}\x{200C}\x{200D}]+`) //nolint:gochecknoglobals

// LearnDictionary builds a dictionary from input/expected-output pairs. Pairs whose word counts
// differ are ignored, and the first translation seen for a word wins.
func LearnDictionary(pairs iter.Seq2[string, string]) map[string]string {
	ret := make(map[string]string)
	for input, expected := range pairs {
		words := wordRegex.FindAllString(input, -1)
		translated := sinhalaWordRegex.FindAllString(expected, -1)
		if len(words) == 0 || len(words) != len(translated) {
			continue
		}
		for i, w := range words {
			if _, ok := ret[w]; !ok {
				ret[w] = translated[i]
			}
		}
	}
	return ret
}
