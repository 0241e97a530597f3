package groups

// BuildKeys returns the key path for a group and an optional sub-group.
// The values of groupKey and then subKey are joined with one NestedMarker
// between successive values, so N values yield N-1 markers. A nil subKey
// adds no dimension. The aggregate and attribute names are appended by the
// caller.
func BuildKeys(groupKey, subKey Key) []string {
	n := len(groupKey) + len(subKey)
	if n == 0 {
		return nil
	}

	path := make([]string, 0, 2*n+1)
	for _, v := range groupKey {
		path = appendDimension(path, v)
	}
	for _, v := range subKey {
		path = appendDimension(path, v)
	}
	return path
}

func appendDimension(path []string, v interface{}) []string {
	if len(path) > 0 {
		path = append(path, NestedMarker)
	}
	return append(path, FormatKey(v))
}

// Fold wraps value in one single-branch mapping per path element, the last
// element innermost. An empty path yields an empty tree.
func Fold(path []string, value interface{}) Tree {
	if len(path) == 0 {
		return Tree{}
	}
	var acc interface{} = value
	for i := len(path) - 1; i >= 0; i-- {
		acc = Tree{path[i]: acc}
	}
	return acc.(Tree)
}

// leafPath appends names to a copy of the dimension path.
func leafPath(dims []string, names ...string) []string {
	path := make([]string, 0, len(dims)+len(names))
	path = append(path, dims...)
	return append(path, names...)
}
