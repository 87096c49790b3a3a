package form

import "strings"

const optionSeparator = ", "

// OptionSet is an insertion-ordered set of checked option labels.
type OptionSet struct {
	items []string
}

// Add appends value unless it is already present. It reports whether the
// set changed.
func (s *OptionSet) Add(value string) bool {
	if s.Has(value) {
		return false
	}
	s.items = append(s.items, value)
	return true
}

// Remove deletes the single matching value. Removing an absent value leaves
// the set untouched.
func (s *OptionSet) Remove(value string) bool {
	for i, v := range s.items {
		if v == value {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *OptionSet) Has(value string) bool {
	for _, v := range s.items {
		if v == value {
			return true
		}
	}
	return false
}

// Values returns a copy of the set in insertion order.
func (s *OptionSet) Values() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Join renders the set the way the mail template expects it.
func (s *OptionSet) Join() string {
	return strings.Join(s.items, optionSeparator)
}
