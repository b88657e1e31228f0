package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/ephemera/internal/auth"
	"github.com/dukerupert/ephemera/internal/model"
	"github.com/dukerupert/ephemera/internal/store"
	"github.com/dukerupert/ephemera/internal/websocket"
)

// NoteHandler serves the caller's own notes. The owner always comes from the
// authenticated request, never from the body.
type NoteHandler struct {
	noteStore *store.NoteStore
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewNoteHandler(ns *store.NoteStore, hub *websocket.Hub, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{noteStore: ns, hub: hub, logger: logger}
}

func (h *NoteHandler) publish(ownerID int64, action string, id int64) {
	if h.hub != nil {
		h.hub.Publish(ownerID, websocket.NewMessage("note", action, id))
	}
}

// noteRequest is decoded from create and update bodies. Unknown keys such as
// owner or created_at are ignored.
type noteRequest struct {
	Title     *string `json:"title" validate:"required,notblank,max=255"`
	Content   *string `json:"content" validate:"required,notblank"`
	ExpiresAt *string `json:"expires_at" validate:"required,flextime"`
}

// update converts a validated request into a store update. Nil fields stay nil.
func (req noteRequest) update() model.NoteUpdate {
	var u model.NoteUpdate
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		u.Title = &title
	}
	if req.Content != nil {
		u.Content = req.Content
	}
	if req.ExpiresAt != nil {
		t, _ := parseFlexTime(*req.ExpiresAt)
		u.ExpiresAt = &t
	}
	return u
}

// present lists the Go field names that appear in a partial update.
func (req noteRequest) present() []string {
	var fields []string
	if req.Title != nil {
		fields = append(fields, "Title")
	}
	if req.Content != nil {
		fields = append(fields, "Content")
	}
	if req.ExpiresAt != nil {
		fields = append(fields, "ExpiresAt")
	}
	return fields
}

func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	notes, err := h.noteStore.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, "list notes", err)
		return
	}
	if notes == nil {
		notes = []model.Note{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validateStruct(&req); !ve.Empty() {
		writeError(w, h.logger, "create note", ve)
		return
	}

	ownerID := auth.UserID(r.Context())
	u := req.update()
	note, err := h.noteStore.Create(r.Context(), ownerID, *u.Title, *u.Content, *u.ExpiresAt)
	if err != nil {
		writeError(w, h.logger, "create note", err)
		return
	}

	h.publish(ownerID, "created", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "error", "invalid id")
		return
	}

	note, err := h.noteStore.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		writeError(w, h.logger, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Update replaces title, content and expires_at; all three are required.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch changes only the fields present in the body.
func (h *NoteHandler) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *NoteHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "error", "invalid id")
		return
	}

	var req noteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	var ve *model.ValidationError
	if partial {
		ve = model.NewValidationError()
		if fields := req.present(); len(fields) > 0 {
			ve = validateStruct(&req, fields...)
		}
	} else {
		ve = validateStruct(&req)
	}
	if !ve.Empty() {
		writeError(w, h.logger, "update note", ve)
		return
	}

	ownerID := auth.UserID(r.Context())
	note, err := h.noteStore.Update(r.Context(), ownerID, id, req.update())
	if err != nil {
		writeError(w, h.logger, "update note", err)
		return
	}

	h.publish(ownerID, "updated", note.ID)
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "error", "invalid id")
		return
	}

	ownerID := auth.UserID(r.Context())
	if err := h.noteStore.Delete(r.Context(), ownerID, id); err != nil {
		writeError(w, h.logger, "delete note", err)
		return
	}

	h.publish(ownerID, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
