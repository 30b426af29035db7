package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"datadesk/internal/domain"
)

// ── Webhook Gateway ─────────────────────────────────────────
// Loads with GET on one URL and persists with POST on another.

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// IdempotencyHeader carries the mutation key on both the primary and the fallback request.
const IdempotencyHeader = "Idempotency-Key"

// Webhook talks to a load/save webhook pair.
type Webhook struct {
	loadURL string
	saveURL string
	client  *http.Client
}

// NewWebhook creates a webhook gateway.
func NewWebhook(loadURL, saveURL string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{loadURL: loadURL, saveURL: saveURL, client: client}
}

// persistBody is the JSON body sent to the save webhook.
type persistBody struct {
	Action    domain.Action `json:"action"`
	Data      domain.Record `json:"data"`
	Index     *int          `json:"index,omitempty"`
	Timestamp string        `json:"timestamp"`
}

func (w *Webhook) Load(ctx context.Context) ([]domain.Record, error) {
	if w.loadURL == "" {
		return nil, fmt.Errorf("load url: %w", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.loadURL, nil)
	if err != nil {
		return nil, &TransportError{Op: "load", URL: w.loadURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "load", URL: w.loadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &TransportError{Op: "load", URL: w.loadURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", bytes.TrimSpace(body))}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "load", URL: w.loadURL, Err: fmt.Errorf("read body: %w", err)}
	}

	records, err := DecodeRecords(w.loadURL, data)
	if err != nil {
		return nil, err
	}
	log.Printf("[GATEWAY] loaded %d record(s) from %s", len(records), w.loadURL)
	return records, nil
}

// Persist posts the mutation. If the primary request fails for any reason it
// is re-sent once in fire-and-forget mode: status and body are ignored and only
// a transport failure counts as an error.
func (w *Webhook) Persist(ctx context.Context, m domain.Mutation) (Result, error) {
	if w.saveURL == "" {
		return Result{}, fmt.Errorf("save url: %w", ErrNotConfigured)
	}

	primaryErr := w.post(ctx, m, m.Timestamp, true)
	if primaryErr == nil {
		return Result{Record: m.Record}, nil
	}

	log.Printf("[GATEWAY] persist %s (%s) failed, retrying without reading the response: %v", m.Action, m.Key, primaryErr)

	if err := w.post(ctx, m, time.Now().UTC(), false); err != nil {
		return Result{}, &TransportError{
			Op:  "persist",
			URL: w.saveURL,
			Err: fmt.Errorf("fallback after %v: %w", primaryErr, err),
		}
	}
	return Result{Record: m.Record, Fallback: true}, nil
}

func (w *Webhook) Close() error { return nil }

// post sends one persist request. With strict set, a non-2xx status or a
// non-JSON body is a failure; otherwise the response is drained and dropped.
func (w *Webhook) post(ctx context.Context, m domain.Mutation, ts time.Time, strict bool) error {
	payload, err := json.Marshal(persistBody{
		Action:    m.Action,
		Data:      m.Record,
		Index:     m.Index,
		Timestamp: ts.UTC().Format(timestampLayout),
	})
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.saveURL, bytes.NewReader(payload))
	if err != nil {
		return &TransportError{Op: "persist", URL: w.saveURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if strict {
		req.Header.Set("Accept", "application/json")
	}
	if m.Key != "" {
		req.Header.Set(IdempotencyHeader, m.Key)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &TransportError{Op: "persist", URL: w.saveURL, Err: err}
	}
	defer resp.Body.Close()

	if !strict {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &TransportError{Op: "persist", URL: w.saveURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", bytes.TrimSpace(body))}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: "persist", URL: w.saveURL, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
		return &ParseError{Source: w.saveURL, Err: fmt.Errorf("response is not json")}
	}
	return nil
}
