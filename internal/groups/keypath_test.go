package groups

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		groupKey Key
		subKey   Key
		want     []string
	}{
		{name: "absent both", want: nil},
		{name: "single group value", groupKey: NewKey("2023-01-01"), want: []string{"2023-01-01"}},
		{
			name:     "group and sub",
			groupKey: NewKey("2023-01"),
			subKey:   NewKey("2023-01-01"),
			want:     []string{"2023-01", NestedMarker, "2023-01-01"},
		},
		{
			name:     "multi column group",
			groupKey: NewKey("Alice", "2023-01"),
			want:     []string{"Alice", NestedMarker, "2023-01"},
		},
		{
			name:     "three columns and sub",
			groupKey: NewKey("a", "b", "c"),
			subKey:   NewKey("d"),
			want:     []string{"a", NestedMarker, "b", NestedMarker, "c", NestedMarker, "d"},
		},
		{
			name:   "absent group with sub",
			subKey: NewKey("2023-01-01"),
			want:   []string{"2023-01-01"},
		},
		{
			name:     "nil component",
			groupKey: Key{nil},
			want:     []string{NullKey},
		},
		{
			name:     "numeric components",
			groupKey: NewKey(2023, 1),
			want:     []string{"2023", NestedMarker, "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BuildKeys(tt.groupKey, tt.subKey))
		})
	}
}

func TestBuildKeys_MarkerCount(t *testing.T) {
	t.Parallel()

	for n := 1; n <= 5; n++ {
		values := make([]interface{}, n)
		for i := range values {
			values[i] = i
		}
		path := BuildKeys(NewKey(values...), nil)

		markers := 0
		for i, p := range path {
			if p == NestedMarker {
				markers++
				assert.Equal(t, 1, i%2, "markers sit between values")
			}
		}
		assert.Equal(t, n-1, markers)
		assert.Len(t, path, 2*n-1)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Tree{}, Fold(nil, 1))
	assert.Equal(t, Tree{"count": 5}, Fold([]string{"count"}, 5))
	assert.Equal(t,
		Tree{"a": Tree{NestedMarker: Tree{"b": Tree{"count": 1}}}},
		Fold([]string{"a", NestedMarker, "b", "count"}, 1),
	)
}

func TestNewKey(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewKey())
	assert.Equal(t, Key{"a", 1}, NewKey("a", 1))
}

func TestLeafPathDoesNotAlias(t *testing.T) {
	t.Parallel()

	dims := make([]string, 1, 8)
	dims[0] = "g"
	a := leafPath(dims, "min")
	b := leafPath(dims, "max")

	assert.Equal(t, []string{"g", "min"}, a)
	assert.Equal(t, []string{"g", "max"}, b)
}
