package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/ephemera/internal/auth"
	"github.com/dukerupert/ephemera/internal/database"
	"github.com/dukerupert/ephemera/internal/fieldcrypt"
	"github.com/dukerupert/ephemera/internal/store"
	"github.com/dukerupert/ephemera/internal/websocket"
)

type testEnv struct {
	notes    *store.NoteStore
	users    *store.UserStore
	issuer   *auth.TokenIssuer
	noteH    *NoteHandler
	adminH   *AdminHandler
	accountH *AccountHandler
	alice    int64
	bob      int64
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cipher, err := fieldcrypt.New(bytes.Repeat([]byte{7}, fieldcrypt.KeySize))
	require.NoError(t, err)

	env := &testEnv{
		notes:  store.NewNoteStore(db, cipher),
		users:  store.NewUserStore(db),
		issuer: auth.NewTokenIssuer("test-secret", time.Minute, time.Hour),
	}
	logger := discardLogger()
	hub := websocket.NewHub(logger)
	env.noteH = NewNoteHandler(env.notes, hub, logger)
	env.adminH = NewAdminHandler(env.notes, logger)
	env.accountH = NewAccountHandler(env.users, env.issuer, logger)
	env.accountH.cost = bcrypt.MinCost

	ctx := context.Background()
	alice, err := env.users.Create(ctx, "alice", "Alice", "", "x")
	require.NoError(t, err)
	bob, err := env.users.Create(ctx, "bob", "Bob", "", "x")
	require.NoError(t, err)
	env.alice, env.bob = alice.ID, bob.ID
	return env
}

// call invokes h with an optional JSON body, the caller's identity and an
// optional {id} path value.
func call(t *testing.T, h http.HandlerFunc, method, target string, body any, userID int64, id string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, rd)
	if userID != 0 {
		req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: userID}))
	}
	if id != "" {
		req.SetPathValue("id", id)
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func future() time.Time { return time.Now().Add(24 * time.Hour).UTC().Truncate(time.Millisecond) }
