// Package grid is the view model behind the record table: filtering, sorting,
// column derivation and single-cell inline editing. It never mutates the
// record list it is given; edits come back as intents for the caller to persist.
package grid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"datadesk/internal/domain"
)

// Direction is the sort order of the active column.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortState is the active sort column (empty for none) and its direction.
type SortState struct {
	Column    string    `json:"column"`
	Direction Direction `json:"direction"`
}

// CellEdit is the cell currently open for inline editing.
type CellEdit struct {
	Index  int    `json:"index"` // index into the source record list
	Column string `json:"column"`
	Text   string `json:"text"`
}

// EditIntent is a committed inline edit: the whole row with the new value merged in.
type EditIntent struct {
	Index  int
	Record domain.Record
}

// Column is one rendered header.
type Column struct {
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Sorted    bool      `json:"sorted"`
	Direction Direction `json:"direction,omitempty"`
}

// Row is one rendered row. Index points back into the source list so row
// actions address the right record regardless of filter and sort.
type Row struct {
	Index int      `json:"index"`
	Cells []string `json:"cells"`
}

// View is everything the table needs to render.
type View struct {
	Columns []Column  `json:"columns"`
	Rows    []Row     `json:"rows"`
	Total   int       `json:"total"`
	Filter  string    `json:"filter"`
	Sort    SortState `json:"sort"`
	Edit    *CellEdit `json:"edit,omitempty"`
	// Empty is set when the source list has no records; the table shows the
	// "add first record" call-to-action instead of rows.
	Empty bool `json:"empty"`
}

// Grid holds sort, filter and inline-edit state. Not safe for concurrent use.
type Grid struct {
	deny   []string
	coerce bool

	sort     SortState
	filter   string
	edit     *CellEdit
	collator *collate.Collator
}

// New creates a grid hiding the denied system fields.
func New(deny []string) *Grid {
	return &Grid{
		deny:     deny,
		collator: collate.New(language.Und),
	}
}

// SetCoerceNumbers makes inline edits of numeric cells stay numeric when the
// new text parses as a number. Off by default: edits commit as text.
func (g *Grid) SetCoerceNumbers(on bool) { g.coerce = on }

// Filter returns the current filter string.
func (g *Grid) Filter() string { return g.filter }

// SetFilter sets the free-text filter.
func (g *Grid) SetFilter(s string) { g.filter = s }

// Sort returns the current sort state.
func (g *Grid) Sort() SortState { return g.sort }

// ToggleSort flips the direction of the active column, or makes column the
// active one in ascending order.
func (g *Grid) ToggleSort(column string) {
	if g.sort.Column == column {
		if g.sort.Direction == Asc {
			g.sort.Direction = Desc
		} else {
			g.sort.Direction = Asc
		}
		return
	}
	g.sort = SortState{Column: column, Direction: Asc}
}

// ClearSort returns to source order.
func (g *Grid) ClearSort() { g.sort = SortState{} }

// Reset drops sort, filter and any open edit, e.g. after the list is cleared.
func (g *Grid) Reset() {
	g.sort = SortState{}
	g.filter = ""
	g.edit = nil
}

// Matches reports whether any field of rec contains the filter, case-insensitively.
func Matches(rec domain.Record, filter string) bool {
	if filter == "" {
		return true
	}
	needle := strings.ToLower(filter)
	for _, f := range rec.Fields() {
		if strings.Contains(strings.ToLower(f.Value.String()), needle) {
			return true
		}
	}
	return false
}

// Display returns the source indices of records in display order.
func (g *Grid) Display(records []domain.Record) []int {
	idx := make([]int, 0, len(records))
	for i, rec := range records {
		if Matches(rec, g.filter) {
			idx = append(idx, i)
		}
	}
	if g.sort.Column == "" {
		return idx
	}

	col := g.sort.Column
	desc := g.sort.Direction == Desc
	sort.SliceStable(idx, func(a, b int) bool {
		c := g.collator.CompareString(records[idx[a]].Text(col), records[idx[b]].Text(col))
		if desc {
			return c > 0
		}
		return c < 0
	})
	return idx
}

// View builds the render model for records.
func (g *Grid) View(records []domain.Record) View {
	v := View{
		Total:  len(records),
		Filter: g.filter,
		Sort:   g.sort,
		Edit:   g.edit,
		Empty:  len(records) == 0,
		Rows:   []Row{},
	}
	if v.Empty {
		v.Columns = []Column{}
		return v
	}

	order := g.Display(records)

	// Columns come from the first displayed record; with no matches the
	// header stays on the first source record.
	first := records[0]
	if len(order) > 0 {
		first = records[order[0]]
	}
	names := domain.FilterColumns(first.Keys(), g.deny)

	v.Columns = make([]Column, len(names))
	for i, name := range names {
		c := Column{Name: name, Label: domain.Label(name)}
		if name == g.sort.Column {
			c.Sorted = true
			c.Direction = g.sort.Direction
		}
		v.Columns[i] = c
	}

	for _, i := range order {
		cells := make([]string, len(names))
		for j, name := range names {
			cells[j] = records[i].Text(name)
		}
		v.Rows = append(v.Rows, Row{Index: i, Cells: cells})
	}
	return v
}

// Editing returns the open cell edit, if any.
func (g *Grid) Editing() *CellEdit { return g.edit }

// BeginEdit opens an inline edit on records[index][column], pre-filled with its text.
// Opening a new cell drops any uncommitted edit.
func (g *Grid) BeginEdit(records []domain.Record, index int, column string) error {
	if index < 0 || index >= len(records) {
		return fmt.Errorf("row %d: %w", index, domain.ErrIndexOutOfRange)
	}
	g.edit = &CellEdit{Index: index, Column: column, Text: records[index].Text(column)}
	return nil
}

// SetEditText updates the pending text of the open edit.
func (g *Grid) SetEditText(s string) {
	if g.edit != nil {
		g.edit.Text = s
	}
}

// CancelEdit discards the open edit.
func (g *Grid) CancelEdit() { g.edit = nil }

// CommitEdit closes the open edit and returns the row shallow-merged with the
// new value. ok is false when no edit was open or its row no longer exists.
func (g *Grid) CommitEdit(records []domain.Record) (EditIntent, bool) {
	e := g.edit
	g.edit = nil
	if e == nil || e.Index < 0 || e.Index >= len(records) {
		return EditIntent{}, false
	}

	value := domain.Text(e.Text)
	if g.coerce {
		if orig, ok := records[e.Index].Get(e.Column); ok && orig.IsNumber() {
			if f, err := strconv.ParseFloat(strings.TrimSpace(e.Text), 64); err == nil {
				value = domain.Number(f)
			}
		}
	}

	patch := domain.NewRecord(domain.Field{Name: e.Column, Value: value})
	return EditIntent{Index: e.Index, Record: records[e.Index].Merge(patch)}, true
}
