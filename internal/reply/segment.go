package reply

import (
	"strconv"
	"strings"
)

// delimiterWord starts every segment heading.
const delimiterWord = "question"

type segmenterState int

const (
	// stateLeading: before the first delimiter; lines are preamble.
	stateLeading segmenterState = iota
	// stateSegment: collecting lines for the current segment.
	stateSegment
	// stateDiscarding: after an out-of-sequence delimiter; lines are dropped
	// until the next valid delimiter.
	stateDiscarding
)

// Segments splits text into the line groups that follow each sequential
// "Question N" delimiter. Segment i (0-based) belongs to "Question i+1".
// Lines are returned trimmed, blank lines dropped.
func Segments(text string) [][]string {
	var (
		segments [][]string
		state    = stateLeading
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)

		if n, ok := delimiterNumber(line); ok {
			if n == len(segments)+1 {
				segments = append(segments, []string{})
				state = stateSegment
			} else {
				state = stateDiscarding
			}
			continue
		}

		if state != stateSegment || line == "" {
			continue
		}
		last := len(segments) - 1
		segments[last] = append(segments[last], line)
	}

	return segments
}

// delimiterNumber reports whether line is a segment heading and returns its
// number. Accepted forms include "Question 3", "Question 3:", "## Question 3"
// and "**Question 3:**".
func delimiterNumber(line string) (int, bool) {
	s := strings.TrimLeft(line, "# ")
	s = strings.Trim(s, "*_ ")
	s = strings.TrimSuffix(s, ":")
	s = strings.Trim(s, "*_ ")

	if len(s) <= len(delimiterWord) || !strings.EqualFold(s[:len(delimiterWord)], delimiterWord) {
		return 0, false
	}

	rest := s[len(delimiterWord):]
	digits := strings.TrimLeft(rest, " \t")
	if len(digits) == len(rest) || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
