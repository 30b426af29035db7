package domain

import (
	"time"

	"github.com/google/uuid"
)

// Action is the kind of change a Mutation carries.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is one of the three known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Mutation is one logical change sent to a gateway.
// Key identifies the mutation across retries.
type Mutation struct {
	Action    Action
	Record    Record
	Index     *int
	Key       string
	Timestamp time.Time
}

// NewMutation stamps a mutation with a fresh idempotency key and the current time.
// index is nil for creates.
func NewMutation(action Action, rec Record, index *int) Mutation {
	return Mutation{
		Action:    action,
		Record:    rec,
		Index:     index,
		Key:       uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}
}

// IndexPtr returns a pointer to i.
func IndexPtr(i int) *int { return &i }

// CursorMode is the editor's current mode.
type CursorMode int

const (
	CursorInactive CursorMode = iota
	CursorCreating
	CursorEditing
)

func (m CursorMode) String() string {
	switch m {
	case CursorCreating:
		return "creating"
	case CursorEditing:
		return "editing"
	default:
		return "inactive"
	}
}

// Cursor says whether the editor is open and, when editing, which row it targets.
type Cursor struct {
	Mode  CursorMode `json:"mode"`
	Index int        `json:"index"`
}

// Creating returns a cursor for a new record.
func Creating() Cursor { return Cursor{Mode: CursorCreating, Index: -1} }

// Editing returns a cursor targeting row i.
func Editing(i int) Cursor { return Cursor{Mode: CursorEditing, Index: i} }

// Inactive returns the closed cursor.
func Inactive() Cursor { return Cursor{Mode: CursorInactive, Index: -1} }

// Active reports whether the editor is open.
func (c Cursor) Active() bool { return c.Mode != CursorInactive }
