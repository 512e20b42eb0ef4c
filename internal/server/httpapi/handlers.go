// Package httpapi exposes the funnel's HTTP surface: the Google sign-in
// flow, the signup and download endpoints, and the public stats counter.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dotwe/early-access/internal/common"
	"github.com/dotwe/early-access/internal/logging"
	"github.com/dotwe/early-access/internal/server/identity"
	"github.com/dotwe/early-access/internal/server/services"
	"github.com/google/uuid"
)

const (
	sessionCookie = "ea_session"
	stateCookie   = "oauth_state"

	// where the browser lands after a completed sign-in
	postLoginPath = "/early-access"
)

// IdentityProvider is the slice of the Google verifier the handlers use.
type IdentityProvider interface {
	AuthorizeURL(ctx context.Context, state string) (string, error)
	Exchange(ctx context.Context, code string) (identity.Identity, error)
}

type Handler struct {
	service  *services.EarlyAccessService
	sessions *identity.Sessions
	provider IdentityProvider
	logger   logging.Logger
}

func NewHandler(service *services.EarlyAccessService, sessions *identity.Sessions, provider IdentityProvider, logger logging.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		provider: provider,
		logger:   logger.With("module", "httpapi"),
	}
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionIdentity(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized. Please sign in with Google.")
		return
	}

	res, err := h.service.Signup(r.Context(), id)
	if err != nil {
		if errors.Is(err, common.ErrorInvalidEmail) {
			writeError(w, http.StatusBadRequest, "Invalid email format")
			return
		}
		h.logger.Error(r.Context(), "signup failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "Failed to register for early access. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Successfully registered for early access!",
		"downloadToken": res.DownloadToken,
		"email":         res.Email,
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	rawToken := r.URL.Query().Get("token")

	res, err := h.service.Download(r.Context(), rawToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorTokenRequired):
			writeError(w, http.StatusBadRequest, "Download token is required")
		case errors.Is(err, common.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "Invalid or expired download token. Please sign in again.")
		case errors.Is(err, common.ErrorNotFound):
			writeError(w, http.StatusNotFound, "User not found. Please sign up for early access first.")
		default:
			h.logger.Error(r.Context(), "download failed", "error", err.Error())
			writeError(w, http.StatusInternalServerError, "Failed to generate download link. Please contact support.")
		}
		return
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"downloadUrl":    res.URL,
		"fileName":       res.FileName,
		"sha256Checksum": res.SHA256Checksum,
		"expiresIn":      res.ExpiresIn,
		"message":        "Download link generated successfully",
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Stats(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "stats failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (h *Handler) googleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	url, err := h.provider.AuthorizeURL(r.Context(), state)
	if err != nil {
		h.logger.Error(r.Context(), "authorize url failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, url, http.StatusFound)
}

func (h *Handler) googleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(stateCookie)
	if err != nil || state == "" || cookie.Value != state {
		writeError(w, http.StatusUnauthorized, "Unauthorized. Please sign in with Google.")
		return
	}

	id, err := h.provider.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		h.logger.Warn(r.Context(), "oauth exchange failed", "error", err.Error())
		writeError(w, http.StatusUnauthorized, "Unauthorized. Please sign in with Google.")
		return
	}

	sessionToken, err := h.sessions.Issue(id)
	if err != nil {
		h.logger.Error(r.Context(), "session issue failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.")
		return
	}

	// drop the used state cookie
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionToken,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, postLoginPath, http.StatusFound)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) sessionIdentity(r *http.Request) (identity.Identity, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return identity.Identity{}, false
	}

	id, err := h.sessions.Verify(cookie.Value)
	if err != nil {
		return identity.Identity{}, false
	}

	return id, true
}
