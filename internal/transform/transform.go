// Package transform holds the tree type produced by the groups service and
// the merge operations used to compose trees.
package transform

import (
	"context"
	"errors"
)

// Merge strategies.
const (
	MergeStrategyDeep    = "deep"
	MergeStrategyShallow = "shallow"
	MergeStrategyReplace = "replace"
)

var (
	// ErrUnknownStrategy indicates a merge strategy other than deep, shallow or replace.
	ErrUnknownStrategy = errors.New("unknown merge strategy")

	// ErrNilData indicates that the input data is nil.
	ErrNilData = errors.New("input data is nil")
)

// Tree is a nested mapping from string keys to subtrees or leaf values.
type Tree = map[string]interface{}

// Transformer turns arbitrary input into output data.
type Transformer interface {
	Transform(ctx context.Context, data interface{}) (interface{}, error)
}
