package transform

import (
	"fmt"
	"time"

	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// DeepMerge merges src into dst in place and returns dst. Mappings present
// on both sides are merged recursively; any other collision takes the src
// value. A nil dst is allocated. Subtrees copied from src are cloned so dst
// never aliases src.
func DeepMerge(dst, src Tree) Tree {
	if dst == nil {
		dst = make(Tree, len(src))
	}
	for key, srcVal := range src {
		srcMap, srcIsMap := srcVal.(map[string]interface{})
		if dstMap, ok := dst[key].(map[string]interface{}); ok && srcIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
			continue
		}
		dst[key] = deepCopyValue(srcVal)
	}
	return dst
}

// TreeMerger combines several trees with a named strategy.
type TreeMerger struct {
	logger  observability.Logger
	metrics *MergeMetrics
}

// NewTreeMerger creates a TreeMerger. A nil logger discards output.
func NewTreeMerger(logger observability.Logger) *TreeMerger {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &TreeMerger{
		logger:  logger,
		metrics: GetMergeMetrics(),
	}
}

// Merge combines trees using strategy. An empty strategy means deep.
// The inputs are never modified; the result is always non-nil.
func (m *TreeMerger) Merge(trees []Tree, strategy string) (Tree, error) {
	if strategy == "" {
		strategy = MergeStrategyDeep
	}

	start := time.Now()
	var result Tree
	switch strategy {
	case MergeStrategyDeep:
		result = m.deepMerge(trees)
	case MergeStrategyShallow:
		result = m.shallowMerge(trees)
	case MergeStrategyReplace:
		result = m.replaceMerge(trees)
	default:
		m.metrics.RecordMerge("unknown", "error", time.Since(start))
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	m.metrics.RecordMerge(strategy, "success", time.Since(start))
	m.logger.Debug("merged trees",
		observability.String("strategy", strategy),
		observability.Int("count", len(trees)),
	)
	return result, nil
}

func (m *TreeMerger) deepMerge(trees []Tree) Tree {
	result := make(Tree)
	for _, t := range trees {
		DeepMerge(result, t)
	}
	return result
}

// shallowMerge replaces top-level keys without recursing.
func (m *TreeMerger) shallowMerge(trees []Tree) Tree {
	result := make(Tree)
	for _, t := range trees {
		for k, v := range t {
			result[k] = deepCopyValue(v)
		}
	}
	return result
}

// replaceMerge returns a copy of the last non-nil tree.
func (m *TreeMerger) replaceMerge(trees []Tree) Tree {
	for i := len(trees) - 1; i >= 0; i-- {
		if trees[i] != nil {
			return deepCopyMap(trees[i])
		}
	}
	return make(Tree)
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}
