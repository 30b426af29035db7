package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"datadesk/internal/domain"
	"datadesk/internal/editor"
	"datadesk/internal/gateway"
	"datadesk/internal/grid"
	"datadesk/internal/secret"
)

// ErrBusy is returned when a load or persist is already in flight.
var ErrBusy = errors.New("another operation is in progress")

const busyKey = "records"

// GatewayOpener builds a gateway from its config. gateway.New by default.
type GatewayOpener func(gateway.Config) (gateway.Gateway, error)

// ─────────────────────────────────────────────────────────────
// Record Service: owns the record list, cursor, grid and editor
// ─────────────────────────────────────────────────────────────

// RecordService holds the authoritative record list. Local state changes only
// after the gateway acknowledges a mutation.
type RecordService struct {
	settings domain.SettingsStore
	secrets  secret.SecretStore
	plog     domain.PersistLogStore
	emitter  EventEmitter
	open     GatewayOpener
	busy     busyGuard

	mu      sync.Mutex
	records []domain.Record
	cursor  domain.Cursor
	grid    *grid.Grid
	editor  *editor.Editor

	gwMu       sync.Mutex
	gw         gateway.Gateway
	gwSettings domain.Settings
	gwPassword string
}

// NewRecordService creates a RecordService. secrets and plog may be nil.
func NewRecordService(
	settings domain.SettingsStore,
	secrets secret.SecretStore,
	plog domain.PersistLogStore,
	emitter EventEmitter,
) *RecordService {
	if emitter == nil {
		emitter = NoopEmitter{}
	}
	return &RecordService{
		settings: settings,
		secrets:  secrets,
		plog:     plog,
		emitter:  emitter,
		open:     gateway.New,
		records:  []domain.Record{},
		cursor:   domain.Inactive(),
		grid:     grid.New(domain.SystemFields),
		editor:   editor.New(),
	}
}

// SetGatewayOpener replaces how gateways are built.
func (s *RecordService) SetGatewayOpener(open GatewayOpener) {
	s.gwMu.Lock()
	defer s.gwMu.Unlock()
	s.open = open
	s.closeGatewayLocked()
}

// Close releases the cached gateway.
func (s *RecordService) Close() error {
	s.gwMu.Lock()
	defer s.gwMu.Unlock()
	return s.closeGatewayLocked()
}

func (s *RecordService) closeGatewayLocked() error {
	if s.gw == nil {
		return nil
	}
	err := s.gw.Close()
	s.gw = nil
	return err
}

// gateway returns a gateway for the current settings, reusing the cached one
// while settings and password are unchanged.
func (s *RecordService) gateway() (gateway.Gateway, domain.Settings, error) {
	st, err := s.settings.LoadSettings()
	if err != nil {
		return nil, st, fmt.Errorf("load settings: %w", err)
	}
	pw := s.tablePassword(st)

	s.mu.Lock()
	s.grid.SetCoerceNumbers(st.CoerceInlineNumbers)
	s.mu.Unlock()

	s.gwMu.Lock()
	defer s.gwMu.Unlock()
	if s.gw != nil && s.gwSettings == st && s.gwPassword == pw {
		return s.gw, st, nil
	}
	if err := s.closeGatewayLocked(); err != nil {
		log.Printf("[RECORDS] close previous gateway: %v", err)
	}
	gw, err := s.open(gateway.ConfigFromSettings(st, pw))
	if err != nil {
		return nil, st, err
	}
	s.gw, s.gwSettings, s.gwPassword = gw, st, pw
	return gw, st, nil
}

func (s *RecordService) tablePassword(st domain.Settings) string {
	if st.Backend != domain.BackendTable || s.secrets == nil {
		return ""
	}
	pw, err := s.secrets.Get(secret.TablePasswordKey)
	if err != nil {
		log.Printf("[RECORDS] read table password: %v", err)
		return ""
	}
	return string(pw)
}

// ── Loading flag ──────────────────────────────────────────

// Busy reports whether a load or persist is in flight.
func (s *RecordService) Busy() bool { return s.busy.Held(busyKey) }

func (s *RecordService) acquire(ctx context.Context) error {
	if !s.busy.TryLock(busyKey) {
		return ErrBusy
	}
	s.emitter.Emit(ctx, EventLoading, true)
	return nil
}

func (s *RecordService) release(ctx context.Context) {
	s.busy.Unlock(busyKey)
	s.emitter.Emit(ctx, EventLoading, false)
}

// Wait blocks until the in-flight operation finishes or ctx is done.
func (s *RecordService) Wait(ctx context.Context) { s.busy.WaitAll(ctx) }

// ── Load / Clear ──────────────────────────────────────────

// Load replaces the list with whatever the backend returns. A failed load
// notifies the user and leaves an empty list; only a missing configuration
// or a busy flag is returned as an error.
func (s *RecordService) Load(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release(ctx)

	records, err := s.fetch(ctx)
	if errors.Is(err, gateway.ErrNotConfigured) {
		s.emitter.Emit(ctx, EventSettingsRequired, nil)
		return err
	}
	if err != nil {
		log.Printf("[RECORDS] load failed: %v", err)
		s.toast(ctx, "Load failed", "The records could not be loaded. Check the connection settings.", ToastDestructive)
		records = []domain.Record{}
	} else {
		s.toast(ctx, "Records loaded", fmt.Sprintf("%d records loaded", len(records)), ToastDefault)
	}

	s.replace(records)
	s.changed(ctx)
	return nil
}

// Fetch loads like Load but returns the gateway error and leaves the list
// untouched on failure. Used by the CLI, the MCP tools and auto-reload.
// A fetch that returns the current list keeps any open cell edit, so the
// reload that follows our own JSON file write does not close it.
func (s *RecordService) Fetch(ctx context.Context) ([]domain.Record, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release(ctx)

	records, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if s.unchanged(records) {
		return s.Records(), nil
	}
	s.replace(records)
	s.changed(ctx)
	return s.Records(), nil
}

func (s *RecordService) fetch(ctx context.Context) ([]domain.Record, error) {
	gw, _, err := s.gateway()
	if err != nil {
		return nil, err
	}
	records, err := gw.Load(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.Record{}
	}
	return records, nil
}

func (s *RecordService) unchanged(records []domain.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(records) != len(s.records) {
		return false
	}
	for i := range records {
		if !records[i].Equal(s.records[i]) {
			return false
		}
	}
	return true
}

func (s *RecordService) replace(records []domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.grid.CancelEdit()
	if s.cursor.Mode == domain.CursorEditing && s.cursor.Index >= len(records) {
		s.editor.Cancel()
		s.cursor = domain.Inactive()
	}
}

// Clear empties the list without touching the backend.
func (s *RecordService) Clear(ctx context.Context) error {
	if s.Busy() {
		return ErrBusy
	}
	s.mu.Lock()
	s.records = []domain.Record{}
	s.grid.Reset()
	s.editor.Cancel()
	s.cursor = domain.Inactive()
	s.mu.Unlock()
	s.changed(ctx)
	return nil
}

// ── Reads ─────────────────────────────────────────────────

// PageView is the whole render model of the page.
type PageView struct {
	grid.View
	Loading bool          `json:"loading"`
	Cursor  domain.Cursor `json:"cursor"`
	Editor  editor.State  `json:"editor"`
}

// View builds the render model.
func (s *RecordService) View() PageView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return PageView{
		View:    s.grid.View(s.records),
		Loading: s.Busy(),
		Cursor:  s.cursor,
		Editor:  s.editor.State(),
	}
}

// Records returns a copy of the list.
func (s *RecordService) Records() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Columns returns the current Column Set.
func (s *RecordService) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Columns(s.records, domain.SystemFields)
}

// Cursor returns the editing cursor.
func (s *RecordService) Cursor() domain.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// ── Grid state ────────────────────────────────────────────

func (s *RecordService) SetFilter(ctx context.Context, filter string) {
	s.mu.Lock()
	s.grid.SetFilter(filter)
	s.mu.Unlock()
	s.changed(ctx)
}

func (s *RecordService) ToggleSort(ctx context.Context, column string) {
	s.mu.Lock()
	s.grid.ToggleSort(column)
	s.mu.Unlock()
	s.changed(ctx)
}

func (s *RecordService) ClearSort(ctx context.Context) {
	s.mu.Lock()
	s.grid.ClearSort()
	s.mu.Unlock()
	s.changed(ctx)
}

// ── Inline cell edit ──────────────────────────────────────

// BeginCellEdit opens the cell at source index / column for editing.
func (s *RecordService) BeginCellEdit(ctx context.Context, index int, column string) error {
	s.mu.Lock()
	err := s.grid.BeginEdit(s.records, index, column)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// SetCellText updates the pending text of the open cell.
func (s *RecordService) SetCellText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grid.SetEditText(text)
}

// CancelCellEdit discards the open cell edit.
func (s *RecordService) CancelCellEdit(ctx context.Context) {
	s.mu.Lock()
	s.grid.CancelEdit()
	s.mu.Unlock()
	s.changed(ctx)
}

// CommitCellEdit persists the open cell edit as an update of its whole row.
func (s *RecordService) CommitCellEdit(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release(ctx)

	// Settings may flip number coercion, so refresh them before committing.
	if _, _, err := s.gateway(); err != nil {
		s.mu.Lock()
		s.grid.CancelEdit()
		s.mu.Unlock()
		return s.persistFailed(ctx, err)
	}

	s.mu.Lock()
	intent, ok := s.grid.CommitEdit(s.records)
	s.mu.Unlock()
	if !ok {
		s.changed(ctx)
		return nil
	}

	_, err := s.apply(ctx, domain.ActionUpdate, intent.Record, domain.IndexPtr(intent.Index))
	s.changed(ctx)
	return err
}

// ── Editor ────────────────────────────────────────────────

// OpenCreate opens the editor for a new record with the current Column Set.
// fallback is used when the list is empty and has no columns yet.
func (s *RecordService) OpenCreate(ctx context.Context, fallback ...string) error {
	s.mu.Lock()
	cols := domain.Columns(s.records, domain.SystemFields)
	if len(cols) == 0 {
		cols = fallback
	}
	err := s.editor.OpenCreate(cols)
	if err == nil {
		s.cursor = domain.Creating()
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// OpenEdit opens the editor pre-filled with the record at index.
func (s *RecordService) OpenEdit(ctx context.Context, index int) error {
	s.mu.Lock()
	err := s.openEditLocked(index)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *RecordService) openEditLocked(index int) error {
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("row %d: %w", index, domain.ErrIndexOutOfRange)
	}
	if err := s.editor.OpenEdit(s.records[index]); err != nil {
		return err
	}
	s.cursor = domain.Editing(index)
	return nil
}

// Editor returns the editor's render model.
func (s *RecordService) Editor() editor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.State()
}

// SetEditorField stores user input for one field.
func (s *RecordService) SetEditorField(name, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.SetField(name, text)
}

// ReplaceEditorField stores text from the external editor.
func (s *RecordService) ReplaceEditorField(ctx context.Context, name, text string) error {
	s.mu.Lock()
	err := s.editor.ReplaceField(name, text)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// EditorValue returns the current text of one editor field.
func (s *RecordService) EditorValue(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.editor.Value(name)
	return v.String(), ok
}

// SaveEditor persists the editor's record: update when editing, create
// otherwise. On failure the editor stays open with its values intact.
func (s *RecordService) SaveEditor(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release(ctx)

	s.mu.Lock()
	rec, err := s.editor.Submit()
	cursor := s.cursor
	s.mu.Unlock()
	if err != nil {
		return err
	}

	action, index := domain.ActionCreate, (*int)(nil)
	if cursor.Mode == domain.CursorEditing {
		action, index = domain.ActionUpdate, domain.IndexPtr(cursor.Index)
	}

	if _, err := s.apply(ctx, action, rec, index); err != nil {
		return err
	}

	s.mu.Lock()
	s.editor.ConfirmSaved()
	s.cursor = domain.Inactive()
	s.mu.Unlock()
	s.changed(ctx)
	return nil
}

// CancelEditor discards edits and closes the editor.
func (s *RecordService) CancelEditor(ctx context.Context) {
	s.mu.Lock()
	s.editor.Cancel()
	s.cursor = domain.Inactive()
	s.mu.Unlock()
	s.changed(ctx)
}

// ── Direct mutations ──────────────────────────────────────

// Create persists rec as a new record and appends it on success.
func (s *RecordService) Create(ctx context.Context, rec domain.Record) (domain.Record, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.Record{}, err
	}
	defer s.release(ctx)

	out, err := s.apply(ctx, domain.ActionCreate, rec, nil)
	if err == nil {
		s.changed(ctx)
	}
	return out, err
}

// Update shallow-merges patch into the record at index and persists it.
func (s *RecordService) Update(ctx context.Context, index int, patch domain.Record) (domain.Record, error) {
	if err := s.acquire(ctx); err != nil {
		return domain.Record{}, err
	}
	defer s.release(ctx)

	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return domain.Record{}, fmt.Errorf("row %d: %w", index, domain.ErrIndexOutOfRange)
	}
	rec := s.records[index].Merge(patch)
	s.mu.Unlock()

	out, err := s.apply(ctx, domain.ActionUpdate, rec, domain.IndexPtr(index))
	if err == nil {
		s.changed(ctx)
	}
	return out, err
}

// Delete persists a delete of the record at index and removes it on success.
// There is no confirmation step.
func (s *RecordService) Delete(ctx context.Context, index int) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release(ctx)

	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("row %d: %w", index, domain.ErrIndexOutOfRange)
	}
	rec := s.records[index].Clone()
	s.mu.Unlock()

	if _, err := s.apply(ctx, domain.ActionDelete, rec, domain.IndexPtr(index)); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// apply persists one mutation and merges the acknowledged record into the
// list. Callers hold the busy flag.
func (s *RecordService) apply(ctx context.Context, action domain.Action, rec domain.Record, index *int) (domain.Record, error) {
	res, err := s.persist(ctx, domain.NewMutation(action, rec, index))
	if err != nil {
		return domain.Record{}, s.persistFailed(ctx, err)
	}

	s.mu.Lock()
	switch action {
	case domain.ActionCreate:
		s.records = append(s.records, res.Record)
	case domain.ActionUpdate:
		if *index < len(s.records) {
			s.records[*index] = res.Record
		}
	case domain.ActionDelete:
		s.removeLocked(*index)
	}
	s.mu.Unlock()

	s.toast(ctx, "Saved", actionMessage(action), ToastDefault)
	return res.Record, nil
}

// removeLocked drops row i and keeps the cursor and open cell pointing at
// the same records.
func (s *RecordService) removeLocked(i int) {
	if i < 0 || i >= len(s.records) {
		return
	}
	s.records = append(s.records[:i:i], s.records[i+1:]...)

	if edit := s.grid.Editing(); edit != nil {
		switch {
		case edit.Index == i:
			s.grid.CancelEdit()
		case edit.Index > i:
			edit.Index--
		}
	}
	if s.cursor.Mode == domain.CursorEditing {
		switch {
		case s.cursor.Index == i:
			s.editor.Cancel()
			s.cursor = domain.Inactive()
		case s.cursor.Index > i:
			s.cursor.Index--
		}
	}
}

func (s *RecordService) persist(ctx context.Context, m domain.Mutation) (gateway.Result, error) {
	gw, st, err := s.gateway()
	if err != nil {
		s.logPersist(m, st.Backend, gateway.Result{}, err)
		return gateway.Result{}, err
	}
	res, err := gw.Persist(ctx, m)
	s.logPersist(m, st.Backend, res, err)
	return res, err
}

func (s *RecordService) persistFailed(ctx context.Context, err error) error {
	log.Printf("[RECORDS] persist failed: %v", err)
	if errors.Is(err, gateway.ErrNotConfigured) {
		s.emitter.Emit(ctx, EventSettingsRequired, nil)
	}
	s.toast(ctx, "Save failed", "The changes could not be saved. Check the connection settings.", ToastDestructive)
	return err
}

func (s *RecordService) logPersist(m domain.Mutation, backend domain.Backend, res gateway.Result, err error) {
	if s.plog == nil {
		return
	}
	if backend == "" {
		backend = domain.BackendWebhook
	}
	e := &domain.PersistLogEntry{
		Key:     m.Key,
		Action:  m.Action,
		Backend: string(backend),
		Status:  "ok",
	}
	switch {
	case err != nil:
		e.Status = "failed"
		e.Error = err.Error()
	case res.Fallback:
		e.Status = "fallback"
	}
	if err := s.plog.AppendPersistLog(e); err != nil {
		log.Printf("[RECORDS] %v", err)
	}
}

func actionMessage(a domain.Action) string {
	switch a {
	case domain.ActionCreate:
		return "Record added"
	case domain.ActionUpdate:
		return "Record updated"
	case domain.ActionDelete:
		return "Record deleted"
	default:
		return "Action completed"
	}
}

func (s *RecordService) toast(ctx context.Context, title, desc, variant string) {
	s.emitter.Emit(ctx, EventToast, Toast{Title: title, Description: desc, Variant: variant})
}

func (s *RecordService) changed(ctx context.Context) {
	s.emitter.Emit(ctx, EventRecordsChanged, nil)
}
