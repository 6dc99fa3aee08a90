package http

import (
	"context"
	"net/http"

	"github.com/closedesk/transaction-service/internal/application"
	"github.com/closedesk/transaction-service/internal/ports"
)

// Handler is the HTTP adapter entrypoint. It holds the application
// service plus the two boundary verifiers; nothing else crosses in.
type Handler struct {
	service  *application.Service
	sessions ports.SessionVerifier
	webhooks ports.WebhookVerifier
}

func NewHandler(service *application.Service, sessions ports.SessionVerifier, webhooks ports.WebhookVerifier) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		webhooks: webhooks,
	}
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) readyz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ready")
}

// principalMiddleware verifies the session token and stashes the
// trusted external principal id. Handlers below it never touch the raw
// token.
func (h *Handler) principalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		principal, err := h.sessions.Verify(raw)
		if err != nil {
			status, code, msg := mapDomainError(err)
			writeError(w, status, code, msg)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyPrincipal, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	user, err := h.service.Me(r.Context(), principal.ExternalID)
	if err != nil {
		writeMappedError(r.Context(), w, "me", err)
		return
	}
	writeSuccess(w, http.StatusOK, user)
}

func (h *Handler) selectRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	var req application.RoleSelectRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "select_role", err)
		return
	}

	user, err := h.service.SelectRole(r.Context(), principal.ExternalID, req.Role)
	if err != nil {
		writeMappedError(r.Context(), w, "select_role", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"user_id": user.UserID,
		"email":   user.Email,
		"role":    user.Role,
	})
}

func (h *Handler) teamRoster(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing principal")
		return
	}

	roster, err := h.service.TeamRoster(r.Context(), principal.ExternalID)
	if err != nil {
		writeMappedError(r.Context(), w, "team_roster", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"members": roster,
	})
}
