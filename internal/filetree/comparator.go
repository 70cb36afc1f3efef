package filetree

import "strings"

// Comparator orders and compares child names. Exactly one instance is
// configured per FileTree and used consistently by find/add/reorder/
// iteration/marker-search, per the glossary's "Comparator" entry: an
// implementation must pick one rule and use it everywhere.
type Comparator struct {
	ignoreCase bool
}

// NewComparator returns a Comparator using ordinal (case-sensitive) or
// ordinal-ignore-case comparison.
func NewComparator(ignoreCase bool) Comparator {
	return Comparator{ignoreCase: ignoreCase}
}

// IgnoreCase reports whether this comparator folds case.
func (c Comparator) IgnoreCase() bool { return c.ignoreCase }

// fold returns the form of s used for comparison. Case-insensitive mode
// folds using Unicode case rules (strings.ToUpper), matching the ordinal
// ignore-case table a host driver's own comparator would use; the
// original spelling is always retained separately as the child's stored
// (canonical) name.
func (c Comparator) fold(s string) string {
	if c.ignoreCase {
		return strings.ToUpper(s)
	}
	return s
}

// Equal reports whether a and b compare equal under this comparator.
func (c Comparator) Equal(a, b string) bool {
	return c.fold(a) == c.fold(b)
}

// Compare returns -1, 0, or 1 as a is less than, equal to, or greater than
// b, under this comparator's ordering.
func (c Comparator) Compare(a, b string) int {
	return strings.Compare(c.fold(a), c.fold(b))
}

// Less reports whether a sorts strictly before b.
func (c Comparator) Less(a, b string) bool {
	return c.Compare(a, b) < 0
}
