// Package reply decodes the numbered free-text replies of the completion
// service into one result per window position.
//
// A reply is a sequence of segments, each introduced by a "Question N"
// delimiter line (N counting from 1). The segmenter is a small line-oriented
// state machine; the per-task grammars then turn each segment into a list of
// tags. Parsing never fails: malformed or missing delimiters only make the
// result shorter, which the reconciler reports as a count mismatch.
package reply
