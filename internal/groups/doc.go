// Package groups reshapes grouped-aggregate query results into nested trees.
//
// A grouped query returns one row per group: the values of the grouping
// columns and a set of named aggregates. Some aggregates break down further
// by a second dimension, optionally into named attributes. ResultTransformer
// turns an ordered GroupResultSet into a single Tree in which every grouping
// dimension is one level, successive dimensions are separated by the
// NestedMarker key, and aggregates sit at the leaves:
//
//	key "2023-01", aggregates {count: {"2023-01-01": 3, "2023-01-02": 2}}
//
//	{"2023-01": {"nested": {
//	    "2023-01-01": {"count": 3},
//	    "2023-01-02": {"count": 2}}}}
//
// A group without aggregates is kept as an empty list so that an empty
// group can be told apart from a missing one.
//
// The typed model distinguishes Scalar, Breakdown and AttributeBreakdown
// aggregates up front. Decode and FromValue build that model from JSON and
// classify each aggregate by shape.
package groups
