package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"datadesk/internal/domain"
)

// ── JSON File Gateway ───────────────────────────────────────
// Keeps the record list in a local JSON file.

// JSONFile reads and rewrites a JSON array file.
type JSONFile struct {
	path string
	mu   sync.Mutex
}

// NewJSONFile creates a gateway over the file at path.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the backing file path.
func (f *JSONFile) Path() string { return f.path }

// ErrNotArray is returned when a write is attempted on a file whose top level
// is not a JSON array.
var ErrNotArray = errors.New("file is not a JSON array")

func (f *JSONFile) Load(ctx context.Context) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readFile()
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []domain.Record{}, nil
	}
	return DecodeRecords(f.path, data)
}

// Persist splices the mutation into the file. Elements other than the target
// are written back byte-for-byte.
func (f *JSONFile) Persist(ctx context.Context, m domain.Mutation) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readDocument()
	if err != nil {
		return Result{}, err
	}

	rec := m.Record.Clone()
	switch m.Action {
	case domain.ActionCreate:
		if len(doc.records) > 0 {
			if _, hasID := doc.records[0].Get(domain.DefaultIDField); hasID && rec.ID(domain.DefaultIDField) == "" {
				rec.Set(domain.DefaultIDField, domain.Text(uuid.New().String()))
			}
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return Result{}, fmt.Errorf("encode record: %w", err)
		}
		doc.elems = append(doc.elems, raw)
	case domain.ActionUpdate, domain.ActionDelete:
		i := locate(doc.records, rec, m.Index)
		if i < 0 {
			return Result{}, &RemoteStoreError{Op: string(m.Action), Err: errors.New("record not found")}
		}
		pos := doc.objects[i]
		if m.Action == domain.ActionUpdate {
			raw, err := mergeObject(doc.elems[pos], doc.records[i], rec)
			if err != nil {
				return Result{}, &ParseError{Source: f.path, Err: err}
			}
			doc.elems[pos] = raw
		} else {
			doc.elems = append(doc.elems[:pos], doc.elems[pos+1:]...)
		}
	default:
		return Result{}, fmt.Errorf("unknown action: %s", m.Action)
	}

	if err := f.write(encodeArray(doc.elems)); err != nil {
		return Result{}, &RemoteStoreError{Op: "write", Err: err}
	}
	return Result{Record: rec}, nil
}

func (f *JSONFile) Close() error { return nil }

// locate finds the target row by id when the record carries one that exists,
// else by position.
func locate(records []domain.Record, rec domain.Record, index *int) int {
	if id := rec.ID(domain.DefaultIDField); id != "" {
		for i, r := range records {
			if r.ID(domain.DefaultIDField) == id {
				return i
			}
		}
	}
	if index != nil && *index >= 0 && *index < len(records) {
		return *index
	}
	return -1
}

// document is the file as raw array elements. records are the object
// elements in order; objects[i] is the position of records[i] in elems.
type document struct {
	elems   []json.RawMessage
	records []domain.Record
	objects []int
}

func (f *JSONFile) readFile() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &TransportError{Op: "load", URL: f.path, Err: err}
	}
	return data, nil
}

func (f *JSONFile) readDocument() (*document, error) {
	data, err := f.readFile()
	if err != nil {
		return nil, err
	}
	doc := &document{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return doc, nil
	}
	if !json.Valid(trimmed) {
		return nil, &ParseError{Source: f.path, Err: errors.New("invalid json")}
	}
	if trimmed[0] != '[' {
		return nil, &RemoteStoreError{Op: "write", Err: ErrNotArray}
	}
	if err := json.Unmarshal(trimmed, &doc.elems); err != nil {
		return nil, &ParseError{Source: f.path, Err: err}
	}
	for pos, elem := range doc.elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			continue
		}
		var rec domain.Record
		if err := rec.UnmarshalJSON(elem); err != nil {
			return nil, &ParseError{Source: f.path, Err: fmt.Errorf("element %d: %w", pos, err)}
		}
		doc.records = append(doc.records, rec)
		doc.objects = append(doc.objects, pos)
	}
	return doc, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (f *JSONFile) write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".datadesk-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}
