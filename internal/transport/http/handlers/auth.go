package http_handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/logger"
	"github.com/baechuer/user-service/internal/transport/http/dto"
	"github.com/baechuer/user-service/internal/transport/http/middleware"
	"github.com/baechuer/user-service/internal/transport/http/response"
)

type AuthHandler struct {
	svc      *auth.Service
	writeErr response.WriteErrFunc
}

func NewAuthHandler(svc *auth.Service, writeErr response.WriteErrFunc) *AuthHandler {
	if writeErr == nil {
		writeErr = response.WriteError
	}
	return &AuthHandler{svc: svc, writeErr: writeErr}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Input())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	lg := logger.WithCtx(r.Context())
	lg.Info().Str("user_id", res.User.ID).Str("role", string(res.User.Role)).Msg("user_registered")

	response.Created(w, dto.NewAuthData(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		middleware.LoginAttemptsTotal.WithLabelValues(metricStatus(err)).Inc()
		h.writeErr(w, r, err)
		return
	}
	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()

	lg := logger.WithCtx(r.Context())
	lg.Info().Str("user_id", res.User.ID).Msg("user_logged_in")

	response.OK(w, dto.NewAuthData(res))
}

// Refresh exchanges a still-valid bearer token for a fresh one.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw, present, err := middleware.BearerToken(r)
	if !present {
		middleware.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}
	if err != nil {
		middleware.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		h.writeErr(w, r, err)
		return
	}

	res, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		middleware.TokenRefreshTotal.WithLabelValues(refreshStatus(err)).Inc()
		h.writeErr(w, r, err)
		return
	}
	middleware.TokenRefreshTotal.WithLabelValues("success").Inc()

	response.OK(w, dto.NewAuthData(res))
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}

	var req dto.ChangePasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "password changed")
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		h.writeErr(w, r, domain.ErrTokenMissing())
		return
	}

	u, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.OK(w, dto.NewUserView(u))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), userID); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "logged out")
}

// Status reports whether the caller presented a valid token. Runs behind OptionalAuth.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.OK(w, dto.StatusData{Authenticated: false})
		return
	}

	u, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			response.OK(w, dto.StatusData{Authenticated: false})
			return
		}
		h.writeErr(w, r, err)
		return
	}

	view := dto.NewUserView(u)
	response.OK(w, dto.StatusData{Authenticated: true, User: &view})
}

// ---- Email verification ----

// VerifyEmail accepts the token as a path segment or as ?token=.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		h.writeErr(w, r, domain.ErrMissingField("token"))
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), token); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "email verified")
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	if err := h.svc.RequestEmailVerification(r.Context(), req.Email); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "if the account exists and is unverified, a verification email has been sent")
}

// ---- Password reset ----

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "if the account exists, a password reset email has been sent")
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		h.writeErr(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeErr(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		h.writeErr(w, r, err)
		return
	}

	response.Message(w, "password has been reset")
}

func metricStatus(err error) string {
	de := domain.AsDomain(err)
	switch de.Kind {
	case domain.KindAuth, domain.KindValidation:
		return de.Code
	default:
		return "error"
	}
}

func refreshStatus(err error) string {
	if domain.IsKind(err, domain.KindAuth) {
		return "invalid"
	}
	return "error"
}
