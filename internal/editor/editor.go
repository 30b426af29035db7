// Package editor is the form model of the create/edit modal.
package editor

import (
	"errors"
	"strconv"
	"strings"

	"datadesk/internal/domain"
)

var (
	ErrAlreadyOpen = errors.New("editor already open")
	ErrNotOpen     = errors.New("editor not open")
)

// Mode is the editor's lifecycle state.
type Mode string

const (
	Closed Mode = "closed"
	Create Mode = "create"
	Edit   Mode = "edit"
)

// Widget is the input used for a field.
type Widget string

const (
	WidgetText     Widget = "text"
	WidgetTextarea Widget = "textarea"
	WidgetNumber   Widget = "number"
)

// LongTextThreshold is the length above which a value gets a textarea.
const LongTextThreshold = 100

// LongFormHints are name fragments that always get a textarea.
var LongFormHints = []string{"description", "comment", "notes"}

// WidgetFor picks the input for a field from its name and current value.
func WidgetFor(name string, v domain.Value) Widget {
	if len([]rune(v.String())) > LongTextThreshold {
		return WidgetTextarea
	}
	lower := strings.ToLower(name)
	for _, hint := range LongFormHints {
		if strings.Contains(lower, hint) {
			return WidgetTextarea
		}
	}
	if v.IsNumber() {
		return WidgetNumber
	}
	return WidgetText
}

// Field is one rendered form input.
type Field struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Widget Widget `json:"widget"`
	Text   string `json:"text"`
}

// State is the render model of the editor.
type State struct {
	Mode   Mode    `json:"mode"`
	Fields []Field `json:"fields"`
}

// Editor holds the in-progress record. Not safe for concurrent use.
type Editor struct {
	mode   Mode
	record domain.Record
}

// New returns a closed editor.
func New() *Editor {
	return &Editor{mode: Closed}
}

// Mode returns the current mode.
func (e *Editor) Mode() Mode {
	if e.mode == "" {
		return Closed
	}
	return e.mode
}

// IsOpen reports whether the form is showing.
func (e *Editor) IsOpen() bool { return e.Mode() != Closed }

// OpenCreate opens an empty form with one text field per column.
func (e *Editor) OpenCreate(columns []string) error {
	if e.IsOpen() {
		return ErrAlreadyOpen
	}
	var rec domain.Record
	for _, c := range columns {
		rec.Set(c, domain.Text(""))
	}
	e.mode = Create
	e.record = rec
	return nil
}

// OpenEdit opens the form pre-filled with a copy of rec.
func (e *Editor) OpenEdit(rec domain.Record) error {
	if e.IsOpen() {
		return ErrAlreadyOpen
	}
	e.mode = Edit
	e.record = rec.Clone()
	return nil
}

// SetField stores user input. Numeric fields parse the text and fall back to 0.
func (e *Editor) SetField(name, text string) error {
	if !e.IsOpen() {
		return ErrNotOpen
	}
	if v, ok := e.record.Get(name); ok && v.IsNumber() {
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			f = 0
		}
		e.record.Set(name, domain.Number(f))
		return nil
	}
	e.record.Set(name, domain.Text(text))
	return nil
}

// ReplaceField stores text as-is, regardless of the field's current type.
// Used when a field comes back from an external editor.
func (e *Editor) ReplaceField(name, text string) error {
	if !e.IsOpen() {
		return ErrNotOpen
	}
	e.record.Set(name, domain.Text(text))
	return nil
}

// Value returns the current value of a field.
func (e *Editor) Value(name string) (domain.Value, bool) {
	return e.record.Get(name)
}

// Submit returns the current record. The form stays open until ConfirmSaved.
func (e *Editor) Submit() (domain.Record, error) {
	if !e.IsOpen() {
		return domain.Record{}, ErrNotOpen
	}
	return e.record.Clone(), nil
}

// ConfirmSaved closes the form after the caller persisted the record.
func (e *Editor) ConfirmSaved() {
	e.close()
}

// Cancel discards all edits and closes the form.
func (e *Editor) Cancel() {
	e.close()
}

func (e *Editor) close() {
	e.mode = Closed
	e.record = domain.Record{}
}

// State builds the render model.
func (e *Editor) State() State {
	s := State{Mode: e.Mode(), Fields: []Field{}}
	if !e.IsOpen() {
		return s
	}
	for _, f := range e.record.Fields() {
		s.Fields = append(s.Fields, Field{
			Name:   f.Name,
			Label:  domain.Label(f.Name),
			Widget: WidgetFor(f.Name, f.Value),
			Text:   f.Value.String(),
		})
	}
	return s
}
