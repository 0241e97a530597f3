package groups

import (
	"errors"

	"github.com/vyrodovalexey/avagroups/internal/transform"
)

// NestedMarker separates successive grouping dimensions in a key path.
const NestedMarker = "nested"

// ErrInvalidInput indicates input that does not describe a group result set.
var ErrInvalidInput = errors.New("invalid group result input")

// Tree is the nested output mapping.
type Tree = transform.Tree

// Key holds the values of the grouping columns for one group. A nil or
// empty Key is the absent (ungrouped) key.
type Key []interface{}

// NewKey builds a Key from grouping column values.
func NewKey(values ...interface{}) Key {
	if len(values) == 0 {
		return nil
	}
	return Key(values)
}

// AggregateValue is one of Scalar, Breakdown or AttributeBreakdown.
type AggregateValue interface {
	aggregateValue()
}

// Scalar is a flat aggregate result such as a count.
type Scalar struct {
	Value interface{}
}

// Breakdown is an aggregate split by a further grouping dimension, one
// scalar per sub-group.
type Breakdown []SubGroup

// SubGroup is one entry of a Breakdown.
type SubGroup struct {
	Key   Key
	Value interface{}
}

// AttributeBreakdown is an aggregate split by a further grouping dimension
// where each sub-group carries several named attributes.
type AttributeBreakdown []AttributeGroup

// AttributeGroup is one entry of an AttributeBreakdown.
type AttributeGroup struct {
	Key        Key
	Attributes []Attribute
}

// Attribute is a named scalar within an AttributeGroup.
type Attribute struct {
	Name  string
	Value interface{}
}

func (Scalar) aggregateValue()             {}
func (Breakdown) aggregateValue()          {}
func (AttributeBreakdown) aggregateValue() {}

// Aggregate is a named aggregate of one group.
type Aggregate struct {
	Name  string
	Value AggregateValue
}

// GroupResult is one row of a grouped query.
type GroupResult struct {
	Key        Key
	Aggregates []Aggregate
}

// GroupResultSet is the ordered output of a grouped query.
type GroupResultSet []GroupResult
