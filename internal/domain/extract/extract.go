// Package extract parses raw record text and pulls numeric sequences out of
// it.
//
// A record is a JSON object. One of its properties holds an array of
// objects; one property of each element holds the numeric value:
//
//	{"samples": [{"t": 0, "v": 1.5}, {"t": 1, "v": 2.0}]}
//
// With array field "samples" and value field "v" this yields [1.5, 2.0].
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/sketchmatch/internal/domain/model"
)

// Record is a parsed JSON object.
type Record = map[string]any

// Input is one raw file-like input: a name and its textual content.
type Input struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Fields names the array property of a record and the numeric property of
// each array element.
type Fields struct {
	Array string
	Value string
}

// Extractor turns a raw input into a candidate sequence.
type Extractor interface {
	Extract(ctx context.Context, in Input, fields Fields) (model.Sequence, error)
}

// JSONExtractor implements Extractor for JSON records.
type JSONExtractor struct{}

// NewJSONExtractor creates the default extractor.
func NewJSONExtractor() *JSONExtractor { return &JSONExtractor{} }

// Extract parses in and returns the sequence found under fields.
func (JSONExtractor) Extract(_ context.Context, in Input, fields Fields) (model.Sequence, error) {
	rec, err := Parse(in.Name, []byte(in.Content))
	if err != nil {
		return model.Sequence{}, err
	}
	return Sequence(in.Name, rec, fields)
}

// Parse decodes content into a record. Numbers keep their textual form until
// extraction so that large integers are not silently rounded.
func Parse(name string, content []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s: top-level value is not an object", ErrParse, name)
	}
	return rec, nil
}

// Sequence extracts the numeric values of fields.Value from every element of
// the array under fields.Array.
func Sequence(name string, rec Record, fields Fields) (model.Sequence, error) {
	raw, ok := rec[fields.Array]
	if !ok {
		return model.Sequence{}, fmt.Errorf("%w: %s: no field %q", ErrFieldMissing, name, fields.Array)
	}
	items, ok := raw.([]any)
	if !ok {
		return model.Sequence{}, fmt.Errorf("%w: %s: field %q is not an array", ErrFieldMissing, name, fields.Array)
	}

	values := make([]float64, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return model.Sequence{}, fmt.Errorf("%w: %s: %s[%d] is not an object", ErrFieldMissing, name, fields.Array, i)
		}
		v, ok := obj[fields.Value]
		if !ok {
			return model.Sequence{}, fmt.Errorf("%w: %s: %s[%d] has no field %q", ErrFieldMissing, name, fields.Array, i, fields.Value)
		}
		f, ok := toFloat(v)
		if !ok {
			return model.Sequence{}, fmt.Errorf("%w: %s: %s[%d].%s is not numeric", ErrFieldMissing, name, fields.Array, i, fields.Value)
		}
		values = append(values, f)
	}

	return model.Sequence{Name: name, Values: values}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ArrayKeys lists the properties of rec whose value is a non-empty array
// starting with an object or a nested array, sorted. A leading null, number,
// string or bool disqualifies the array.
func ArrayKeys(rec Record) []string {
	keys := make([]string, 0, len(rec))
	for k, v := range rec {
		items, ok := v.([]any)
		if !ok || len(items) == 0 {
			continue
		}
		switch items[0].(type) {
		case map[string]any, []any:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// ElementKeys lists the properties of the first element of the array under
// arrayField, sorted. It returns nil when the field is not an array of
// objects, including arrays of arrays, whose elements have no named values.
func ElementKeys(rec Record, arrayField string) []string {
	items, ok := rec[arrayField].([]any)
	if !ok || len(items) == 0 {
		return nil
	}
	first, ok := items[0].(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(first))
	for k := range first {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
