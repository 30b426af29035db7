package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"datadesk/internal/domain"
)

// DecodeRecords normalises a JSON payload into records.
// An array passes through in order (non-object elements are dropped), a bare
// object becomes a one-element list, and any other JSON value gives an empty
// list. Malformed JSON, including an empty body, is a *ParseError.
func DecodeRecords(source string, data []byte) ([]domain.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Source: source, Err: io.ErrUnexpectedEOF}
	}
	if !json.Valid(trimmed) {
		var raw any
		err := json.Unmarshal(trimmed, &raw)
		if err == nil {
			err = errors.New("invalid json")
		}
		return nil, &ParseError{Source: source, Err: err}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	switch trimmed[0] {
	case '{':
		rec, err := domain.DecodeObject(dec)
		if err != nil {
			return nil, &ParseError{Source: source, Err: err}
		}
		return []domain.Record{rec}, nil
	case '[':
		records, err := decodeArray(dec)
		if err != nil {
			return nil, &ParseError{Source: source, Err: err}
		}
		return records, nil
	default:
		return []domain.Record{}, nil
	}
}

func decodeArray(dec *json.Decoder) ([]domain.Record, error) {
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	records := []domain.Record{}
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		elem := bytes.TrimSpace(raw)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var rec domain.Record
		if err := rec.UnmarshalJSON(elem); err != nil {
			return nil, fmt.Errorf("element %d: %w", len(records), err)
		}
		records = append(records, rec)
	}
	if _, err := dec.Token(); err != nil && err != io.EOF {
		return nil, err
	}
	return records, nil
}

// encodeArray writes elems as a JSON array, one element per line. Each
// element is written exactly as given.
func encodeArray(elems []json.RawMessage) []byte {
	if len(elems) == 0 {
		return []byte("[]\n")
	}
	var buf bytes.Buffer
	buf.WriteString("[\n")
	for i, e := range elems {
		buf.WriteString("  ")
		buf.Write(bytes.TrimSpace(e))
		if i < len(elems)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")
	return buf.Bytes()
}

// mergeObject renders after as a JSON object, reusing the original bytes of
// every field whose value is unchanged from before. Nested values, booleans
// and nulls the user did not touch are written back as they were.
func mergeObject(orig json.RawMessage, before, after domain.Record) (json.RawMessage, error) {
	rawFields, err := objectFields(orig)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range after.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if old, ok := before.Get(f.Name); ok && old == f.Value {
			if raw, ok := rawFields[f.Name]; ok {
				buf.Write(raw)
				continue
			}
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// objectFields splits a JSON object into its raw field values.
func objectFields(data json.RawMessage) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		fields[key] = raw
	}
	return fields, nil
}
