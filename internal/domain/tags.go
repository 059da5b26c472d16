package domain

import "strings"

// TagSet is an insertion-ordered set of tags. The zero value is an empty set
// ready to use. Empty and whitespace-only tags are ignored.
type TagSet struct {
	order []string
	index map[string]struct{}
}

// NewTagSet builds a TagSet from tags, dropping duplicates after the first.
func NewTagSet(tags ...string) TagSet {
	var s TagSet
	for _, tag := range tags {
		s.Add(tag)
	}
	return s
}

// Add inserts tag at the end of the set. It returns false when the tag was
// already present or is blank.
func (s *TagSet) Add(tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[tag]; ok {
		return false
	}
	s.index[tag] = struct{}{}
	s.order = append(s.order, tag)
	return true
}

// Remove deletes tag from the set, keeping the order of the remaining tags.
func (s *TagSet) Remove(tag string) bool {
	if _, ok := s.index[tag]; !ok {
		return false
	}
	delete(s.index, tag)
	for i, t := range s.order {
		if t == tag {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether tag is in the set.
func (s TagSet) Contains(tag string) bool {
	_, ok := s.index[tag]
	return ok
}

// Len returns the number of tags in the set.
func (s TagSet) Len() int { return len(s.order) }

// Values returns a copy of the tags in insertion order.
func (s TagSet) Values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
