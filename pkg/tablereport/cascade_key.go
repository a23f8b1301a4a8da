package tablereport

import "sort"

// CascadeKeyTree is the prefix tree of nested-array paths read by the cascade
// columns of a table. A key mapped to an empty tree is terminal: its nested
// rows hold fields only.
type CascadeKeyTree map[string]CascadeKeyTree

// IsTerminal reports whether t has no further nesting.
func (t CascadeKeyTree) IsTerminal() bool { return len(t) == 0 }

// Keys returns the keys of t in sorted order.
func (t CascadeKeyTree) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// BuildCascadeKeyTree merges nesting paths into one tree. Shared prefixes are
// merged, so the result does not depend on the order of paths and inserting a
// path twice changes nothing.
func BuildCascadeKeyTree(paths [][]string) CascadeKeyTree {
	tree := CascadeKeyTree{}
	for _, p := range paths {
		node := tree
		for _, seg := range p {
			child, ok := node[seg]
			if !ok {
				child = CascadeKeyTree{}
				node[seg] = child
			}
			node = child
		}
	}
	return tree
}

// ExtractCascadeKeys builds the cascade key tree of the given leaf columns.
// The last segment of each path names a field of the deepest row and is
// dropped; single-segment paths contribute nothing.
func ExtractCascadeKeys(leaves []DataColumn) CascadeKeyTree {
	var paths [][]string
	for _, l := range leaves {
		p := l.Path()
		if len(p) > 1 {
			paths = append(paths, p[:len(p)-1])
		}
	}
	return BuildCascadeKeyTree(paths)
}
