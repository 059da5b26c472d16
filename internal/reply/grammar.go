package reply

import (
	"strings"
	"unicode"

	"github.com/phrazzld/scry-tagger/internal/domain"
)

// Results holds one tag list per window position.
type Results [][]string

// Len returns the number of positions with a result.
func (r Results) Len() int { return len(r) }

// unknownAnswer is the prompt's escape hatch for cards without enough detail.
const unknownAnswer = "i don't know"

// Parse decodes text with the grammar of kind. Unknown kinds yield no results.
func Parse(kind domain.TaskKind, text string) Results {
	switch kind {
	case domain.TaskTagSuggestion:
		return ParseTags(text)
	case domain.TaskDefinition:
		return ParseClassification(text)
	default:
		return Results{}
	}
}

// ParseTags applies the tag-suggestion grammar: every non-blank line of a
// segment is one tag.
func ParseTags(text string) Results {
	segments := Segments(text)
	results := make(Results, len(segments))
	for i, lines := range segments {
		tags := make([]string, 0, len(lines))
		for _, line := range lines {
			if tag := NormalizeTag(line); tag != "" {
				tags = append(tags, tag)
			}
		}
		results[i] = tags
	}
	return results
}

// ParseClassification applies the yes/no grammar: the first line mentioning
// "No" or "Yes" decides the segment, with "No" checked first on each line.
// A segment without a verdict yields no label.
func ParseClassification(text string) Results {
	segments := Segments(text)
	results := make(Results, len(segments))
	for i, lines := range segments {
		results[i] = []string{}
		for _, line := range lines {
			if strings.Contains(line, "No") {
				break
			}
			if strings.Contains(line, "Yes") {
				results[i] = []string{domain.DefinitionTag}
				break
			}
		}
	}
	return results
}

// NormalizeTag turns one reply line into a tag: list markers are stripped,
// hyphens removed and whitespace runs replaced by a single underscore.
// It returns "" for lines that carry no tag.
func NormalizeTag(line string) string {
	s := stripListMarker(strings.TrimSpace(line))
	s = strings.Trim(s, "*`\"'")
	if strings.EqualFold(strings.ReplaceAll(strings.TrimRight(s, "."), "’", "'"), unknownAnswer) {
		return ""
	}

	s = strings.ReplaceAll(s, "-", "")
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), "_")
}

// stripListMarker removes a leading "-", "*", "•", "3." or "3)" marker.
func stripListMarker(s string) string {
	for _, bullet := range []string{"-", "*", "•"} {
		if rest, ok := strings.CutPrefix(s, bullet+" "); ok {
			return strings.TrimSpace(rest)
		}
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' ' {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
