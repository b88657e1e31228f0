package server

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/ephemera/internal/auth"
	"github.com/dukerupert/ephemera/internal/config"
	"github.com/dukerupert/ephemera/internal/fieldcrypt"
	"github.com/dukerupert/ephemera/internal/handler"
	"github.com/dukerupert/ephemera/internal/middleware"
	"github.com/dukerupert/ephemera/internal/purge"
	"github.com/dukerupert/ephemera/internal/store"
	ws "github.com/dukerupert/ephemera/internal/websocket"
)

const (
	authRateLimit  = 10
	authRatePeriod = time.Minute
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	accountH       *handler.AccountHandler
	noteH          *handler.NoteHandler
	adminH         *handler.AdminHandler
	userStore      *store.UserStore
	noteStore      *store.NoteStore
	issuer         *auth.TokenIssuer
	rateLimiter    *middleware.RateLimiter
	purgeScheduler *purge.Scheduler
	logger         *slog.Logger
}

// NewFieldCipher derives the note encryption key from passphrase and the
// database's salt, generating and storing the salt on first use.
func NewFieldCipher(settings *store.SettingsStore, passphrase string) (*fieldcrypt.Cipher, error) {
	saltHex, err := settings.GetOrInit(store.FieldEncryptionSaltKey, func() (string, error) {
		salt, err := fieldcrypt.GenerateSalt()
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(salt), nil
	})
	if err != nil {
		return nil, fmt.Errorf("field encryption salt: %w", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("decode field encryption salt: %w", err)
	}
	return fieldcrypt.FromPassphrase(passphrase, salt)
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) (*Server, error) {
	cipher, err := NewFieldCipher(store.NewSettingsStore(db), cfg.FieldEncryptionKey)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(logger.With("component", "websocket"))
	userStore := store.NewUserStore(db)
	noteStore := store.NewNoteStore(db, cipher)
	issuer := auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	var sched *purge.Scheduler
	if cfg.PurgeInterval > 0 {
		sched = purge.NewScheduler(noteStore, cfg.PurgeInterval, logger.With("component", "purge"))
	}

	return &Server{
		db:             db,
		hub:            hub,
		accountH:       handler.NewAccountHandler(userStore, issuer, logger.With("component", "account")),
		noteH:          handler.NewNoteHandler(noteStore, hub, logger.With("component", "note")),
		adminH:         handler.NewAdminHandler(noteStore, logger.With("component", "admin")),
		userStore:      userStore,
		noteStore:      noteStore,
		issuer:         issuer,
		rateLimiter:    middleware.NewRateLimiter(),
		purgeScheduler: sched,
		logger:         logger,
	}, nil
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// PurgeScheduler returns the expired-note scheduler, or nil when periodic
// purging is disabled.
func (s *Server) PurgeScheduler() *purge.Scheduler {
	return s.purgeScheduler
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/users", s.rateLimitedHandler(s.accountH.Signup))
	outerMux.HandleFunc("POST /api/token", s.rateLimitedHandler(s.accountH.Token))
	outerMux.HandleFunc("POST /api/token/refresh", s.accountH.Refresh)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.issuer, s.userStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
	return middleware.RequestID(logged)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, authRateLimit, authRatePeriod)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Notes API routes
	mux.HandleFunc("GET /api/notes", s.noteH.List)
	mux.HandleFunc("POST /api/notes", s.noteH.Create)
	mux.HandleFunc("GET /api/notes/{id}", s.noteH.Get)
	mux.HandleFunc("PUT /api/notes/{id}", s.noteH.Update)
	mux.HandleFunc("PATCH /api/notes/{id}", s.noteH.Patch)
	mux.HandleFunc("DELETE /api/notes/{id}", s.noteH.Delete)

	// Staff-only metadata views
	mux.Handle("GET /admin/notes", middleware.RequireStaff(http.HandlerFunc(s.adminH.ListNotes)))
	mux.Handle("GET /admin/notes/{id}", middleware.RequireStaff(http.HandlerFunc(s.adminH.GetNote)))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}
