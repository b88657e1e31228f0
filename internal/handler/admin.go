package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/ephemera/internal/model"
	"github.com/dukerupert/ephemera/internal/store"
)

// AdminHandler exposes note metadata to staff. Title and content are never
// read for these views.
type AdminHandler struct {
	noteStore *store.NoteStore
	logger    *slog.Logger
}

func NewAdminHandler(ns *store.NoteStore, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{noteStore: ns, logger: logger}
}

func parseFilter(r *http.Request) (model.NoteSummaryFilter, *model.ValidationError) {
	var f model.NoteSummaryFilter
	ve := model.NewValidationError()
	q := r.URL.Query()

	if v := q.Get("owner"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			ve.Add("owner", "A valid integer is required.")
		}
		f.OwnerID = id
	}

	times := []struct {
		name string
		dst  *time.Time
	}{
		{"created_after", &f.CreatedAfter},
		{"created_before", &f.CreatedBefore},
		{"expires_after", &f.ExpiresAfter},
		{"expires_before", &f.ExpiresBefore},
	}
	for _, tf := range times {
		v := q.Get(tf.name)
		if v == "" {
			continue
		}
		t, err := parseFlexTime(v)
		if err != nil {
			ve.Add(tf.name, "Enter a valid date/time.")
			continue
		}
		*tf.dst = t
	}
	return f, ve
}

func (h *AdminHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	f, ve := parseFilter(r)
	if !ve.Empty() {
		writeError(w, h.logger, "admin list notes", ve)
		return
	}

	summaries, err := h.noteStore.ListSummaries(r.Context(), f)
	if err != nil {
		writeError(w, h.logger, "admin list notes", err)
		return
	}
	if summaries == nil {
		summaries = []model.NoteSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *AdminHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "error", "invalid id")
		return
	}

	summary, err := h.noteStore.GetSummary(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "admin get note", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
