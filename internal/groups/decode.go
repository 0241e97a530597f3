package groups

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/vyrodovalexey/avagroups/internal/observability"
)

// Decoder builds a GroupResultSet from JSON.
//
// Accepted documents:
//
//	{"results": [{"key": ..., "aggregates": {...}}, ...]}
//	[{"key": ..., "aggregates": {...}}, ...]
//	[[key, {...}], ...]
//
// A key is a scalar, an array of scalars for multi-column groupings, or
// null. Numbers keep their literal text. Objects read by Decode are visited
// in document order; Go maps handed to FromValue or Classify have none, so
// their keys are visited in sorted order.
type Decoder struct {
	logger  observability.Logger
	metrics *TransformMetrics
}

// NewDecoder creates a Decoder. A nil logger discards output; nil metrics
// uses the package metrics.
func NewDecoder(logger observability.Logger, metrics *TransformMetrics) *Decoder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = GetTransformMetrics()
	}
	return &Decoder{logger: logger, metrics: metrics}
}

// Decode reads one JSON document from r.
func Decode(r io.Reader) (GroupResultSet, error) {
	return NewDecoder(nil, nil).Decode(r)
}

// FromValue converts an already decoded JSON value.
func FromValue(v interface{}) (GroupResultSet, error) {
	return NewDecoder(nil, nil).FromValue(v)
}

// Classify converts one decoded aggregate value into its typed form.
func Classify(v interface{}) AggregateValue {
	return NewDecoder(nil, nil).Classify(v)
}

// Decode reads one JSON document from r.
func (d *Decoder) Decode(r io.Reader) (GroupResultSet, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := readValue(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed JSON: %w", ErrInvalidInput, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after JSON document", ErrInvalidInput)
	}
	return d.FromValue(v)
}

// FromValue converts an already decoded JSON value.
func (d *Decoder) FromValue(v interface{}) (GroupResultSet, error) {
	if obj, ok := asObject(v); ok {
		results, ok := obj.values["results"]
		if !ok {
			return nil, fmt.Errorf("%w: object must have a \"results\" field", ErrInvalidInput)
		}
		if results == nil {
			return GroupResultSet{}, nil
		}
		list, ok := results.([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: \"results\" must be an array", ErrInvalidInput)
		}
		return d.fromList(list)
	}
	if list, ok := v.([]interface{}); ok {
		return d.fromList(list)
	}
	return nil, fmt.Errorf("%w: expected an object or array, got %T", ErrInvalidInput, v)
}

func (d *Decoder) fromList(list []interface{}) (GroupResultSet, error) {
	set := make(GroupResultSet, 0, len(list))
	for i, item := range list {
		result, err := d.fromItem(item)
		if err != nil {
			return nil, fmt.Errorf("results[%d]: %w", i, err)
		}
		set = append(set, result)
	}
	return set, nil
}

func (d *Decoder) fromItem(item interface{}) (GroupResult, error) {
	var rawKey, rawAggs interface{}

	if obj, ok := asObject(item); ok {
		rawKey = obj.values["key"]
		rawAggs = obj.values["aggregates"]
	} else if pair, ok := item.([]interface{}); ok {
		if len(pair) != 2 {
			return GroupResult{}, fmt.Errorf("%w: pair must have exactly 2 elements, got %d",
				ErrInvalidInput, len(pair))
		}
		rawKey, rawAggs = pair[0], pair[1]
	} else {
		return GroupResult{}, fmt.Errorf("%w: result must be an object or a [key, aggregates] pair",
			ErrInvalidInput)
	}

	key, err := toKey(rawKey)
	if err != nil {
		return GroupResult{}, err
	}

	result := GroupResult{Key: key}
	if rawAggs == nil {
		return result, nil
	}
	aggs, ok := asObject(rawAggs)
	if !ok {
		return GroupResult{}, fmt.Errorf("%w: aggregates must be an object", ErrInvalidInput)
	}

	for _, name := range aggs.keys {
		result.Aggregates = append(result.Aggregates, Aggregate{
			Name:  name,
			Value: d.Classify(aggs.values[name]),
		})
	}
	return result, nil
}

func toKey(v interface{}) (Key, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		key := make(Key, 0, len(val))
		for _, component := range val {
			if !isScalar(component) {
				return nil, fmt.Errorf("%w: key components must be scalars", ErrInvalidInput)
			}
			key = append(key, component)
		}
		return key, nil
	case map[string]interface{}, *object:
		return nil, fmt.Errorf("%w: key must be a scalar, an array or null", ErrInvalidInput)
	default:
		return Key{val}, nil
	}
}

// Classify converts one decoded aggregate value into its typed form. A
// mapping with at least one mapping value is attribute-shaped and its
// scalar entries are dropped; any other mapping is a Breakdown. An array
// of {"key","value"} objects is a breakdown with array keys. Everything
// else is a Scalar.
func (d *Decoder) Classify(v interface{}) AggregateValue {
	if obj, ok := asObject(v); ok {
		return d.classifyObject(obj)
	}
	if list, ok := v.([]interface{}); ok {
		if entries, ok := keyedEntries(list); ok {
			return d.classifyEntries(entries)
		}
	}
	return Scalar{Value: plain(v)}
}

type keyedEntry struct {
	key   Key
	value interface{}
}

func (d *Decoder) classifyObject(obj *object) AggregateValue {
	entries := make([]keyedEntry, 0, len(obj.keys))
	for _, k := range obj.keys {
		entries = append(entries, keyedEntry{key: Key{k}, value: obj.values[k]})
	}
	return d.classifyEntries(entries)
}

func (d *Decoder) classifyEntries(entries []keyedEntry) AggregateValue {
	attributeShaped := false
	for _, e := range entries {
		if _, ok := asObject(e.value); ok {
			attributeShaped = true
			break
		}
	}

	if !attributeShaped {
		breakdown := make(Breakdown, 0, len(entries))
		for _, e := range entries {
			breakdown = append(breakdown, SubGroup{Key: e.key, Value: plain(e.value)})
		}
		return breakdown
	}

	dropped := 0
	breakdown := make(AttributeBreakdown, 0, len(entries))
	for _, e := range entries {
		attrs, ok := asObject(e.value)
		if !ok {
			dropped++
			d.logger.Debug("skipping scalar inside attribute-shaped aggregate",
				observability.String("sub_key", formatKeyPath(e.key)),
			)
			continue
		}
		group := AttributeGroup{Key: e.key}
		for _, name := range attrs.keys {
			group.Attributes = append(group.Attributes, Attribute{Name: name, Value: plain(attrs.values[name])})
		}
		breakdown = append(breakdown, group)
	}
	d.metrics.RecordDropped(dropped)
	return breakdown
}

// keyedEntries recognizes [{"key": k, "value": v}, ...]. Empty arrays are
// scalars.
func keyedEntries(list []interface{}) ([]keyedEntry, bool) {
	if len(list) == 0 {
		return nil, false
	}
	entries := make([]keyedEntry, 0, len(list))
	for _, item := range list {
		obj, ok := asObject(item)
		if !ok || len(obj.keys) != 2 {
			return nil, false
		}
		rawKey, hasKey := obj.values["key"]
		value, hasValue := obj.values["value"]
		if !hasKey || !hasValue {
			return nil, false
		}
		key, err := toKey(rawKey)
		if err != nil {
			return nil, false
		}
		entries = append(entries, keyedEntry{key: key, value: value})
	}
	return entries, true
}

func isScalar(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, *object, []interface{}:
		return false
	default:
		return true
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatKeyPath(k Key) string {
	return strings.Join(BuildKeys(k, nil), ".")
}

// object is a decoded JSON object that remembers its key order.
type object struct {
	keys   []string
	values map[string]interface{}
}

// asObject views v as an object. Go maps get their keys in sorted order.
func asObject(v interface{}) (*object, bool) {
	switch val := v.(type) {
	case *object:
		return val, true
	case map[string]interface{}:
		return &object{keys: sortedKeys(val), values: val}, true
	default:
		return nil, false
	}
}

// readValue reads one JSON value token by token so objects keep their
// document order. A repeated key keeps its first position and its last
// value.
func readValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{values: make(map[string]interface{})}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
			}
			value, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			if _, seen := obj.values[key]; !seen {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = value
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := make([]interface{}, 0)
		for dec.More() {
			value, err := readValue(dec)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.ErrUnexpectedEOF
		}
		return err
	}
	if tok != want {
		return fmt.Errorf("expected %v, got %v", want, tok)
	}
	return nil
}

// plain turns order-keeping objects back into maps for use as leaf values.
func plain(v interface{}) interface{} {
	switch val := v.(type) {
	case *object:
		m := make(map[string]interface{}, len(val.values))
		for k, inner := range val.values {
			m[k] = plain(inner)
		}
		return m
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = plain(inner)
		}
		return out
	default:
		return v
	}
}
