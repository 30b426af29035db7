package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datadesk/internal/domain"
	"datadesk/internal/gateway"
)

func serveBody(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebhookLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("array passes through in order", func(t *testing.T) {
		body := `[{"name":"Plant A","capacity":12},{"name":"Plant B","capacity":7},{"name":"C"}]`
		srv := serveBody(t, http.StatusOK, body)

		records, err := gateway.NewWebhook(srv.URL, "", nil).Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 3)

		out, err := json.Marshal(records)
		require.NoError(t, err)
		assert.JSONEq(t, body, string(out))
		assert.Equal(t, "Plant B", records[1].Text("name"))
	})

	t.Run("bare object becomes one record", func(t *testing.T) {
		srv := serveBody(t, http.StatusOK, `{"name":"solo","n":1}`)

		records, err := gateway.NewWebhook(srv.URL, "", nil).Load(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, []string{"name", "n"}, records[0].Keys())
	})

	t.Run("other json shapes give an empty list", func(t *testing.T) {
		for _, body := range []string{`42`, `"text"`, `null`, `true`} {
			srv := serveBody(t, http.StatusOK, body)
			records, err := gateway.NewWebhook(srv.URL, "", nil).Load(ctx)
			require.NoError(t, err, body)
			assert.Empty(t, records, body)
		}
	})

	t.Run("non json body is a parse error", func(t *testing.T) {
		for _, body := range []string{`<html>oops</html>`, ``, "  \n"} {
			srv := serveBody(t, http.StatusOK, body)

			_, err := gateway.NewWebhook(srv.URL, "", nil).Load(ctx)
			var perr *gateway.ParseError
			require.ErrorAs(t, err, &perr, "body %q", body)
		}
		srv := serveBody(t, http.StatusOK, ``)
		_, err := gateway.NewWebhook(srv.URL, "", nil).Load(ctx)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("non 2xx is a transport error", func(t *testing.T) {
		srv := serveBody(t, http.StatusInternalServerError, `boom`)

		_, err := gateway.NewWebhook(srv.URL, "", nil).Load(ctx)
		var terr *gateway.TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, http.StatusInternalServerError, terr.StatusCode)
		assert.Equal(t, "load", terr.Op)
	})

	t.Run("missing url is not configured", func(t *testing.T) {
		_, err := gateway.NewWebhook("", "", nil).Load(ctx)
		assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	})
}

type capturedRequest struct {
	Key    string
	Accept string
	Body   map[string]any
}

// recorder captures persist requests and answers with the statuses queued in replies.
type recorder struct {
	mu       sync.Mutex
	requests []capturedRequest
	replies  []int
	body     string
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	json.Unmarshal(raw, &body)

	rec.mu.Lock()
	rec.requests = append(rec.requests, capturedRequest{
		Key:    r.Header.Get(gateway.IdempotencyHeader),
		Accept: r.Header.Get("Accept"),
		Body:   body,
	})
	status := http.StatusOK
	if len(rec.replies) > 0 {
		status = rec.replies[0]
		rec.replies = rec.replies[1:]
	}
	rec.mu.Unlock()

	w.WriteHeader(status)
	io.WriteString(w, rec.body)
}

func plantRecord() domain.Record {
	return domain.NewRecord(domain.FieldOf("name", "Plant A"), domain.FieldOf("capacity", 12))
}

func TestWebhookPersist(t *testing.T) {
	ctx := context.Background()

	t.Run("posts action data index and timestamp", func(t *testing.T) {
		rec := &recorder{body: `{"ok":true}`}
		srv := httptest.NewServer(rec)
		defer srv.Close()

		m := domain.NewMutation(domain.ActionUpdate, plantRecord(), domain.IndexPtr(3))
		res, err := gateway.NewWebhook("", srv.URL, nil).Persist(ctx, m)
		require.NoError(t, err)
		assert.False(t, res.Fallback)
		assert.True(t, res.Record.Equal(m.Record))

		require.Len(t, rec.requests, 1)
		got := rec.requests[0]
		assert.Equal(t, m.Key, got.Key)
		assert.Equal(t, "application/json", got.Accept)
		assert.Equal(t, "update", got.Body["action"])
		assert.Equal(t, float64(3), got.Body["index"])
		assert.Equal(t, map[string]any{"name": "Plant A", "capacity": float64(12)}, got.Body["data"])

		ts, ok := got.Body["timestamp"].(string)
		require.True(t, ok)
		_, err = time.Parse(time.RFC3339, ts)
		assert.NoError(t, err)
	})

	t.Run("create omits index", func(t *testing.T) {
		rec := &recorder{}
		srv := httptest.NewServer(rec)
		defer srv.Close()

		_, err := gateway.NewWebhook("", srv.URL, nil).Persist(ctx, domain.NewMutation(domain.ActionCreate, plantRecord(), nil))
		require.NoError(t, err)
		require.Len(t, rec.requests, 1)
		_, has := rec.requests[0].Body["index"]
		assert.False(t, has)
	})

	t.Run("failure triggers exactly one fallback with the same key", func(t *testing.T) {
		rec := &recorder{replies: []int{http.StatusBadGateway, http.StatusInternalServerError}}
		srv := httptest.NewServer(rec)
		defer srv.Close()

		m := domain.NewMutation(domain.ActionDelete, plantRecord(), domain.IndexPtr(0))
		res, err := gateway.NewWebhook("", srv.URL, nil).Persist(ctx, m)
		require.NoError(t, err, "fallback ignores the response status")
		assert.True(t, res.Fallback)

		require.Len(t, rec.requests, 2)
		assert.Equal(t, m.Key, rec.requests[0].Key)
		assert.Equal(t, m.Key, rec.requests[1].Key)
		assert.Empty(t, rec.requests[1].Accept)
	})

	t.Run("non json success body triggers the fallback", func(t *testing.T) {
		rec := &recorder{body: "accepted"}
		srv := httptest.NewServer(rec)
		defer srv.Close()

		res, err := gateway.NewWebhook("", srv.URL, nil).Persist(ctx, domain.NewMutation(domain.ActionCreate, plantRecord(), nil))
		require.NoError(t, err)
		assert.True(t, res.Fallback)
		assert.Len(t, rec.requests, 2)
	})

	t.Run("transport failure on both attempts is reported", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		_, err := gateway.NewWebhook("", url, nil).Persist(ctx, domain.NewMutation(domain.ActionCreate, plantRecord(), nil))
		require.Error(t, err)
		var terr *gateway.TransportError
		assert.True(t, errors.As(err, &terr))
	})

	t.Run("missing url is not configured", func(t *testing.T) {
		_, err := gateway.NewWebhook("", "", nil).Persist(ctx, domain.NewMutation(domain.ActionCreate, plantRecord(), nil))
		assert.ErrorIs(t, err, gateway.ErrNotConfigured)
	})
}
