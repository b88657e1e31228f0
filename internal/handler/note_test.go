package handler

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/ephemera/internal/model"
)

type fieldErrors struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

func idStr(id int64) string { return strconv.FormatInt(id, 10) }

func TestNoteCreateUsesCallerAsOwner(t *testing.T) {
	env := setupEnv(t)

	rec := call(t, env.noteH.Create, "POST", "/api/notes", map[string]any{
		"title":      "groceries",
		"content":    "milk",
		"expires_at": future().Format(time.RFC3339),
		"owner":      env.bob,
		"user":       env.bob,
	}, env.alice, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decodeBody[map[string]any](t, rec)
	assert.NotContains(t, body, "owner")
	assert.Equal(t, "groceries", body["title"])

	id := int64(body["id"].(float64))
	ctx := context.Background()
	_, err := env.notes.Get(ctx, env.alice, id)
	assert.NoError(t, err)
	_, err = env.notes.Get(ctx, env.bob, id)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestNoteCreateValidation(t *testing.T) {
	env := setupEnv(t)

	rec := call(t, env.noteH.Create, "POST", "/api/notes", map[string]any{}, env.alice, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody[fieldErrors](t, rec)
	assert.Equal(t, "validation failed", got.Error)
	for _, f := range []string{"title", "content", "expires_at"} {
		assert.Equal(t, []string{"This field is required."}, got.Fields[f], f)
	}

	rec = call(t, env.noteH.Create, "POST", "/api/notes", map[string]any{
		"title":      "   ",
		"content":    "x",
		"expires_at": "next tuesday",
	}, env.alice, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got = decodeBody[fieldErrors](t, rec)
	assert.Equal(t, []string{"This field may not be blank."}, got.Fields["title"])
	assert.Contains(t, got.Fields, "expires_at")
	assert.NotContains(t, got.Fields, "content")
}

func TestNoteCreateTitleTooLong(t *testing.T) {
	env := setupEnv(t)

	long := make([]byte, 256)
	for i := range long {
		long[i] = 'a'
	}
	rec := call(t, env.noteH.Create, "POST", "/api/notes", map[string]any{
		"title":      string(long),
		"content":    "x",
		"expires_at": future().Format(time.RFC3339),
	}, env.alice, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody[fieldErrors](t, rec)
	assert.Equal(t, []string{"Ensure this field has no more than 255 characters."}, got.Fields["title"])
}

func TestNoteCreateInvalidJSON(t *testing.T) {
	env := setupEnv(t)

	rec := call(t, env.noteH.Create, "POST", "/api/notes", "{not json", env.alice, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoteCreateAcceptsLocalDatetime(t *testing.T) {
	env := setupEnv(t)

	rec := call(t, env.noteH.Create, "POST", "/api/notes", map[string]any{
		"title":      "t",
		"content":    "c",
		"expires_at": "2099-01-02T03:04",
	}, env.alice, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	n := decodeBody[model.Note](t, rec)
	assert.True(t, n.ExpiresAt.Equal(time.Date(2099, 1, 2, 3, 4, 0, 0, time.UTC)), "expires_at = %v", n.ExpiresAt)
}

func TestNoteListExcludesExpiredAndForeign(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	active, err := env.notes.Create(ctx, env.alice, "active", "c", future())
	require.NoError(t, err)
	_, err = env.notes.Create(ctx, env.alice, "stale", "c", time.Now().Add(-time.Second))
	require.NoError(t, err)
	_, err = env.notes.Create(ctx, env.bob, "bob's", "c", future())
	require.NoError(t, err)

	rec := call(t, env.noteH.List, "GET", "/api/notes", nil, env.alice, "")
	require.Equal(t, http.StatusOK, rec.Code)

	notes := decodeBody[[]model.Note](t, rec)
	require.Len(t, notes, 1)
	assert.Equal(t, active.ID, notes[0].ID)
}

func TestNoteListEmptyIsArray(t *testing.T) {
	env := setupEnv(t)

	rec := call(t, env.noteH.List, "GET", "/api/notes", nil, env.alice, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestNoteGet(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	mine, _ := env.notes.Create(ctx, env.alice, "mine", "c", future())
	expired, _ := env.notes.Create(ctx, env.alice, "old", "c", time.Now().Add(-time.Minute))

	rec := call(t, env.noteH.Get, "GET", "/api/notes/x", nil, env.alice, idStr(mine.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mine", decodeBody[model.Note](t, rec).Title)

	rec = call(t, env.noteH.Get, "GET", "/api/notes/x", nil, env.bob, idStr(mine.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, env.noteH.Get, "GET", "/api/notes/x", nil, env.alice, idStr(expired.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, env.noteH.Get, "GET", "/api/notes/x", nil, env.alice, "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNotePatchChangesOnlyGivenFields(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	orig, err := env.notes.Create(ctx, env.alice, "old title", "body", future())
	require.NoError(t, err)

	rec := call(t, env.noteH.Patch, "PATCH", "/api/notes/x", map[string]any{
		"title":      "new title",
		"owner":      env.bob,
		"created_at": "2000-01-01T00:00:00Z",
	}, env.alice, idStr(orig.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := env.notes.Get(ctx, env.alice, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "new title", got.Title)
	assert.Equal(t, "body", got.Content)
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
	assert.True(t, got.ExpiresAt.Equal(orig.ExpiresAt))
	assert.Equal(t, env.alice, got.OwnerID)
}

func TestNotePatchValidatesPresentFields(t *testing.T) {
	env := setupEnv(t)
	orig, _ := env.notes.Create(context.Background(), env.alice, "t", "c", future())

	rec := call(t, env.noteH.Patch, "PATCH", "/api/notes/x", map[string]any{"content": ""}, env.alice, idStr(orig.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody[fieldErrors](t, rec)
	assert.Equal(t, []string{"This field may not be blank."}, got.Fields["content"])
	assert.NotContains(t, got.Fields, "title")
}

func TestNotePutRequiresAllFields(t *testing.T) {
	env := setupEnv(t)
	orig, _ := env.notes.Create(context.Background(), env.alice, "t", "c", future())

	rec := call(t, env.noteH.Update, "PUT", "/api/notes/x", map[string]any{"title": "only"}, env.alice, idStr(orig.ID))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody[fieldErrors](t, rec)
	assert.Contains(t, got.Fields, "content")
	assert.Contains(t, got.Fields, "expires_at")

	exp := future().Add(time.Hour)
	rec = call(t, env.noteH.Update, "PUT", "/api/notes/x", map[string]any{
		"title":      "T2",
		"content":    "C2",
		"expires_at": exp.Format(time.RFC3339Nano),
	}, env.alice, idStr(orig.ID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	n := decodeBody[model.Note](t, rec)
	assert.Equal(t, "T2", n.Title)
	assert.Equal(t, "C2", n.Content)
	assert.True(t, n.ExpiresAt.Equal(exp))
}

func TestNoteUpdateForeignIsNotFound(t *testing.T) {
	env := setupEnv(t)
	orig, _ := env.notes.Create(context.Background(), env.alice, "t", "c", future())

	rec := call(t, env.noteH.Patch, "PATCH", "/api/notes/x", map[string]any{"title": "hijack"}, env.bob, idStr(orig.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	got, err := env.notes.Get(context.Background(), env.alice, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestNoteDeleteForeignIsForbidden(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()
	orig, _ := env.notes.Create(ctx, env.alice, "t", "c", future())

	rec := call(t, env.noteH.Delete, "DELETE", "/api/notes/x", nil, env.bob, idStr(orig.ID))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	got, err := env.notes.Get(ctx, env.alice, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}

func TestNoteDelete(t *testing.T) {
	env := setupEnv(t)
	orig, _ := env.notes.Create(context.Background(), env.alice, "t", "c", future())

	rec := call(t, env.noteH.Delete, "DELETE", "/api/notes/x", nil, env.alice, idStr(orig.ID))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = call(t, env.noteH.Delete, "DELETE", "/api/notes/x", nil, env.alice, idStr(orig.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
