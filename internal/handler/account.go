package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/ephemera/internal/auth"
	"github.com/dukerupert/ephemera/internal/model"
	"github.com/dukerupert/ephemera/internal/store"
)

// AccountHandler serves signup and token issuance.
type AccountHandler struct {
	userStore *store.UserStore
	issuer    *auth.TokenIssuer
	logger    *slog.Logger
	cost      int
}

func NewAccountHandler(us *store.UserStore, issuer *auth.TokenIssuer, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		userStore: us,
		issuer:    issuer,
		logger:    logger,
		cost:      bcrypt.DefaultCost,
	}
}

type signupRequest struct {
	Username  *string `json:"username" validate:"required,notblank,max=150,username"`
	FirstName *string `json:"first_name" validate:"omitnil,max=150"`
	LastName  *string `json:"last_name" validate:"omitnil,max=150"`
	Password  *string `json:"password" validate:"required,notblank"`
	Password2 *string `json:"password2" validate:"required,notblank"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Signup creates an account. Password rules are checked only once the
// password field itself is present, and the confirmation is compared only
// when no field has failed.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ve := validateStruct(&req)
	username := strings.TrimSpace(deref(req.Username))

	if !ve.Has("password") {
		for _, p := range passwordProblems(deref(req.Password), username) {
			ve.Add("password", p)
		}
	}
	if !ve.Has("username") {
		existing, err := h.userStore.GetByUsername(r.Context(), username)
		if err != nil {
			writeError(w, h.logger, "signup lookup", err)
			return
		}
		if existing != nil {
			ve.Add("username", "A user with that username already exists.")
		}
	}
	if ve.Empty() && *req.Password != *req.Password2 {
		ve.Add("password", "Passwords must match.")
	}
	if err := ve.ErrOrNil(); err != nil {
		writeError(w, h.logger, "signup", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), h.cost)
	if err != nil {
		writeError(w, h.logger, "hash password", err)
		return
	}

	user, err := h.userStore.Create(r.Context(), username,
		strings.TrimSpace(deref(req.FirstName)), strings.TrimSpace(deref(req.LastName)), string(hash))
	if errors.Is(err, store.ErrUsernameTaken) {
		ve := model.NewValidationError()
		ve.Add("username", "A user with that username already exists.")
		writeError(w, h.logger, "signup", ve)
		return
	}
	if err != nil {
		writeError(w, h.logger, "create user", err)
		return
	}

	h.logger.Info("user created", "user_id", user.ID, "username", user.Username)
	writeMessage(w, http.StatusCreated, "message", "User created successfully")
}

type tokenRequest struct {
	Username *string `json:"username" validate:"required,notblank"`
	Password *string `json:"password" validate:"required,notblank"`
}

// Token exchanges username and password for an access/refresh pair.
func (h *AccountHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validateStruct(&req); !ve.Empty() {
		writeError(w, h.logger, "token", ve)
		return
	}

	user, err := h.userStore.GetByUsername(r.Context(), strings.TrimSpace(*req.Username))
	if err != nil {
		writeError(w, h.logger, "token lookup", err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.Password)) != nil {
		writeMessage(w, http.StatusUnauthorized, "error", "no active account found with the given credentials")
		return
	}

	pair, err := h.issuer.Issue(user.ID, user.Username)
	if err != nil {
		writeError(w, h.logger, "issue token", err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

type refreshRequest struct {
	Refresh *string `json:"refresh" validate:"required,notblank"`
}

// Refresh returns a new access token for a valid refresh token.
func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validateStruct(&req); !ve.Empty() {
		writeError(w, h.logger, "refresh", ve)
		return
	}

	access, err := h.issuer.Refresh(*req.Refresh)
	if errors.Is(err, auth.ErrInvalidToken) {
		writeMessage(w, http.StatusUnauthorized, "error", "token is invalid or expired")
		return
	}
	if err != nil {
		writeError(w, h.logger, "refresh token", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}
