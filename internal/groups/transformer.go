package groups

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avagroups/internal/observability"
	"github.com/vyrodovalexey/avagroups/internal/transform"
)

const (
	sourceTyped   = "typed"
	sourceDecoded = "decoded"
)

// groupsTracer is package level so tests can swap the provider.
var groupsTracer = otel.Tracer("avagroups/groups")

// emptyGroup marks a group that has no aggregate data.
func emptyGroup() interface{} {
	return []interface{}{}
}

// ResultTransformer reshapes grouped query results into a Tree. It holds no
// per-call state and is safe for concurrent use.
type ResultTransformer struct {
	logger  observability.Logger
	metrics *TransformMetrics
	decoder *Decoder
}

var _ transform.Transformer = (*ResultTransformer)(nil)

// Option configures a ResultTransformer.
type Option func(*ResultTransformer)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(t *ResultTransformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(metrics *TransformMetrics) Option {
	return func(t *ResultTransformer) {
		if metrics != nil {
			t.metrics = metrics
		}
	}
}

// NewResultTransformer creates a ResultTransformer.
func NewResultTransformer(opts ...Option) *ResultTransformer {
	t := &ResultTransformer{
		logger:  observability.NopLogger(),
		metrics: GetTransformMetrics(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.decoder = NewDecoder(t.logger, t.metrics)
	return t
}

// Run transforms results into one tree. Per-group trees are deep merged in
// input order, so later groups win leaf collisions.
func (t *ResultTransformer) Run(ctx context.Context, results GroupResultSet) Tree {
	return t.run(ctx, results, sourceTyped)
}

func (t *ResultTransformer) run(ctx context.Context, results GroupResultSet, source string) Tree {
	_, span := groupsTracer.Start(ctx, "groups.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("groups.count", len(results)),
			attribute.String("groups.source", source),
		),
	)
	defer span.End()

	start := time.Now()
	tree := make(Tree)
	empty := 0
	for i := range results {
		groupTree, isEmpty := t.transformResult(&results[i])
		if isEmpty {
			empty++
		}
		transform.DeepMerge(tree, groupTree)
	}

	duration := time.Since(start)
	t.metrics.RecordRun(source, len(results), empty, duration)
	span.SetAttributes(
		attribute.Int("groups.empty", empty),
		attribute.Int("groups.top_level_keys", len(tree)),
	)

	t.logger.WithContext(ctx).Debug("transformed group results",
		observability.Int("groups", len(results)),
		observability.Int("empty_groups", empty),
		observability.Duration("duration", duration),
	)
	return tree
}

// transformResult builds the tree of one group and reports whether the
// group carried no aggregate data.
func (t *ResultTransformer) transformResult(r *GroupResult) (Tree, bool) {
	acc := make(Tree)
	for _, agg := range r.Aggregates {
		switch v := agg.Value.(type) {
		case Scalar:
			transform.DeepMerge(acc, Fold(leafPath(BuildKeys(r.Key, nil), agg.Name), v.Value))
		case Breakdown:
			t.transformBreakdown(acc, r.Key, agg.Name, v)
		case AttributeBreakdown:
			t.transformAttributes(acc, r.Key, agg.Name, v)
		}
	}

	if len(acc) > 0 {
		return acc, false
	}
	path := BuildKeys(r.Key, nil)
	if len(path) == 0 {
		// The null group still gets its key.
		return Tree{NullKey: emptyGroup()}, true
	}
	return Fold(path, emptyGroup()), true
}

func (t *ResultTransformer) transformBreakdown(acc Tree, key Key, name string, b Breakdown) {
	for _, sub := range b {
		path := leafPath(BuildKeys(key, sub.Key), name)
		transform.DeepMerge(acc, Fold(path, sub.Value))
	}
}

func (t *ResultTransformer) transformAttributes(acc Tree, key Key, name string, b AttributeBreakdown) {
	for _, group := range b {
		dims := BuildKeys(key, group.Key)
		for _, attr := range group.Attributes {
			transform.DeepMerge(acc, Fold(leafPath(dims, name, attr.Name), attr.Value))
		}
	}
}

// Transform accepts a GroupResultSet, a []GroupResult, raw JSON as []byte,
// an io.Reader of JSON, or an already decoded JSON value, and returns the
// resulting Tree.
func (t *ResultTransformer) Transform(ctx context.Context, data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case GroupResultSet:
		return t.Run(ctx, v), nil
	case []GroupResult:
		return t.Run(ctx, GroupResultSet(v)), nil
	case nil:
		t.metrics.RecordError(sourceDecoded)
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, transform.ErrNilData)
	}

	results, err := t.decode(data)
	if err != nil {
		t.metrics.RecordError(sourceDecoded)
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}
	return t.run(ctx, results, sourceDecoded), nil
}

func (t *ResultTransformer) decode(data interface{}) (GroupResultSet, error) {
	switch v := data.(type) {
	case []byte:
		return t.decoder.Decode(bytes.NewReader(v))
	case io.Reader:
		return t.decoder.Decode(v)
	default:
		return t.decoder.FromValue(v)
	}
}
