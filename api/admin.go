package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/garnizeh/crackedclub/pkg/models"
	"github.com/garnizeh/crackedclub/pkg/repository"
)

// AdminHandler serves the review API for submitted applications and the
// waitlist. There is a single admin account taken from configuration.
type AdminHandler struct {
	apps          repository.ApplicationRepo
	waitlist      repository.WaitlistRepo
	email         string
	passwordHash  string
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAdminHandler creates a new AdminHandler with required dependencies.
func NewAdminHandler(ar repository.ApplicationRepo, wr repository.WaitlistRepo, email, passwordHash, jwtSecret string, tokenDuration time.Duration) *AdminHandler {
	return &AdminHandler{
		apps:          ar,
		waitlist:      wr,
		email:         strings.ToLower(strings.TrimSpace(email)),
		passwordHash:  passwordHash,
		jwtSecret:     jwtSecret,
		tokenDuration: tokenDuration,
	}
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

type listResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

func (h *AdminHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		errorJSON(w, http.StatusBadRequest, "missing fields")
		return
	}
	if h.email == "" || h.passwordHash == "" {
		errorJSON(w, http.StatusServiceUnavailable, "admin access is not configured")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(h.email)) == 1
	// bcrypt runs on both paths
	pwErr := bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password))
	if !emailOK || pwErr != nil {
		logger.Warn("admin signin rejected", slog.String("remote", clientIP(r)))
		errorJSON(w, http.StatusUnauthorized, "credentials not found")
		return
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   h.email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenDuration)),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		errorJSON(w, http.StatusInternalServerError, "error signing token")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: tokenStr})
}

func (h *AdminHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	status := r.URL.Query().Get("status")
	switch status {
	case "", models.StatusQueued, models.StatusDelivered, models.StatusFailed:
	default:
		errorJSON(w, http.StatusBadRequest, "unknown status "+strconv.Quote(status))
		return
	}

	items, err := h.apps.ListApplications(r.Context(), status, limit, offset)
	if err != nil {
		logger.Error("list applications", slog.Any("err", err))
		errorJSON(w, http.StatusInternalServerError, "could not list applications")
		return
	}
	total, err := h.apps.CountApplications(r.Context(), status)
	if err != nil {
		logger.Error("count applications", slog.Any("err", err))
		errorJSON(w, http.StatusInternalServerError, "could not count applications")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[models.Application]{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *AdminHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a, err := h.apps.GetApplication(r.Context(), id)
	if err != nil {
		logger.Error("get application", slog.String("id", id), slog.Any("err", err))
		errorJSON(w, http.StatusInternalServerError, "could not load application")
		return
	}
	if a == nil {
		errorJSON(w, http.StatusNotFound, "application not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *AdminHandler) ListWaitlist(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	items, err := h.waitlist.ListWaitlist(r.Context(), limit, offset)
	if err != nil {
		logger.Error("list waitlist", slog.Any("err", err))
		errorJSON(w, http.StatusInternalServerError, "could not list waitlist")
		return
	}
	total, err := h.waitlist.CountWaitlist(r.Context())
	if err != nil {
		logger.Error("count waitlist", slog.Any("err", err))
		errorJSON(w, http.StatusInternalServerError, "could not count waitlist")
		return
	}
	writeJSON(w, http.StatusOK, listResponse[models.WaitlistEntry]{Items: items, Total: total, Limit: limit, Offset: offset})
}

// pageParams reads limit (1..100, default 20) and offset (>= 0).
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(q.Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
