package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ValueKind tells which scalar a Value holds.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
)

// Value is a record cell: either text or a number.
type Value struct {
	Kind   ValueKind
	Text   string
	Number float64
}

// Text returns a text Value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Number: f} }

// IsNumber reports whether v holds a number.
func (v Value) IsNumber() bool { return v.Kind == KindNumber }

// String returns the textual representation used for display, filtering and sorting.
func (v Value) String() string {
	if v.Kind == KindNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Interface returns the plain Go value (string or float64).
func (v Value) Interface() any {
	if v.Kind == KindNumber {
		return v.Number
	}
	return v.Text
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = ValueOf(raw)
	return nil
}

// ValueOf converts a decoded JSON value or a database driver value into a Value.
// Booleans become "true"/"false", nil becomes empty text, and nested
// objects/arrays are kept as their compact JSON text.
func ValueOf(x any) Value {
	switch t := x.(type) {
	case nil:
		return Text("")
	case Value:
		return t
	case string:
		return Text(t)
	case []byte:
		return Text(string(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Text(t.String())
		}
		return Number(f)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int8:
		return Number(float64(t))
	case int16:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint:
		return Number(float64(t))
	case uint8:
		return Number(float64(t))
	case uint16:
		return Number(float64(t))
	case uint32:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case bool:
		return Text(strconv.FormatBool(t))
	case time.Time:
		return Text(t.Format(time.RFC3339))
	case fmt.Stringer:
		return Text(t.String())
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Text(fmt.Sprint(t))
		}
		return Text(string(b))
	}
}

// Field is one named cell of a Record.
type Field struct {
	Name  string
	Value Value
}

// FieldOf builds a Field from any scalar accepted by ValueOf.
func FieldOf(name string, v any) Field {
	return Field{Name: name, Value: ValueOf(v)}
}

// Record is a schema-less row: an ordered mapping of field name to Value.
// The zero Record is empty and ready to use.
type Record struct {
	fields []Field
}

// NewRecord builds a record from fields in order. A repeated name overwrites
// the earlier value in place.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Keys returns field names in first-seen order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the ordered fields.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Get returns the value stored under name.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Text returns the textual value of name, or "" when missing.
func (r Record) Text(name string) string {
	v, _ := r.Get(name)
	return v.String()
}

// Set stores v under name. Existing fields keep their position; new ones are appended.
func (r *Record) Set(name string, v Value) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = v
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Delete removes name from the record.
func (r *Record) Delete(name string) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields = append(r.fields[:i:i], r.fields[i+1:]...)
			return
		}
	}
}

// Clone returns an independent copy.
func (r Record) Clone() Record {
	return Record{fields: r.Fields()}
}

// Merge returns a shallow merge of r and other; other's values win.
func (r Record) Merge(other Record) Record {
	out := r.Clone()
	for _, f := range other.fields {
		out.Set(f.Name, f.Value)
	}
	return out
}

// ID returns the textual identifier stored under idField, or "" if absent.
func (r Record) ID(idField string) string {
	v, ok := r.Get(idField)
	if !ok {
		return ""
	}
	return v.String()
}

// Map returns the record as a plain map of string/float64 values.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		m[f.Name] = f.Value.Interface()
	}
	return m
}

// Equal reports whether both records hold the same fields in the same order.
func (r Record) Equal(other Record) bool {
	if len(r.fields) != len(other.fields) {
		return false
	}
	for i := range r.fields {
		if r.fields[i] != other.fields[i] {
			return false
		}
	}
	return true
}

// MarshalJSON writes the record as a JSON object, keeping field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, keeping key order.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	rec, err := decodeObject(dec)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// DecodeObject reads one JSON object from dec, keeping key order.
// The decoder should have UseNumber enabled.
func DecodeObject(dec *json.Decoder) (Record, error) {
	return decodeObject(dec)
}

func decodeObject(dec *json.Decoder) (Record, error) {
	tok, err := dec.Token()
	if err != nil {
		return Record{}, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Record{}, fmt.Errorf("expected object, got %v", tok)
	}
	rec := Record{fields: []Field{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Record{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Record{}, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return Record{}, fmt.Errorf("field %s: %w", key, err)
		}
		rec.Set(key, ValueOf(raw))
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, err
	}
	return rec, nil
}
