package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
)

// Value is an untrusted input field. Validators switch on the concrete shape
// instead of inspecting runtime types of decoded JSON.
type Value interface {
	shape() string
}

type (
	// Text is a textual field (JSON string or any form value).
	Text string
	// Number is a JSON number.
	Number float64
	// Bool is a JSON boolean.
	Bool bool
	// List is a JSON array or a repeated form field.
	List []Value
	// Object is a nested JSON object.
	Object map[string]Value
	// Null is an explicit JSON null.
	Null struct{}
)

func (Text) shape() string   { return "text" }
func (Number) shape() string { return "number" }
func (Bool) shape() string   { return "bool" }
func (List) shape() string   { return "list" }
func (Object) shape() string { return "object" }
func (Null) shape() string   { return "null" }

// Fields is a decoded submission, independent of transport.
type Fields map[string]Value

// Has reports whether key was submitted.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Missing returns the keys absent from f, in the order given.
func (f Fields) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !f.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// FieldsFromJSON decodes a JSON object body.
func FieldsFromJSON(data []byte) (Fields, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json body: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode json body: expected an object")
	}

	fields := make(Fields, len(raw))
	for k, v := range raw {
		fields[k] = fromJSON(v)
	}
	return fields, nil
}

func fromJSON(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null{}
	case string:
		return Text(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String())
		}
		return Number(f)
	case bool:
		return Bool(t)
	case []any:
		list := make(List, 0, len(t))
		for _, item := range t {
			list = append(list, fromJSON(item))
		}
		return list
	case map[string]any:
		obj := make(Object, len(t))
		for k, item := range t {
			obj[k] = fromJSON(item)
		}
		return obj
	default:
		return Text(fmt.Sprint(t))
	}
}

// FieldsFromForm converts form values. Keys named in listKeys always become a
// List; other keys keep their first value as Text.
func FieldsFromForm(form url.Values, listKeys ...string) Fields {
	fields := make(Fields, len(form))
	for k, values := range form {
		if slices.Contains(listKeys, k) {
			list := make(List, 0, len(values))
			for _, v := range values {
				list = append(list, Text(v))
			}
			fields[k] = list
			continue
		}
		if len(values) > 0 {
			fields[k] = Text(values[0])
		}
	}
	return fields
}
