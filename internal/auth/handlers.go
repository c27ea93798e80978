package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/jwfoods/internal/common"
)

// Handler exposes HTTP handlers for authentication and account endpoints.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type strengthRequest struct {
	Password string `json:"password"`
}

// Routes mounts the auth endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/login", h.Login)
	r.Post("/register", h.Register)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
	r.Post("/password-strength", h.Strength)
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req Registration
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	msg, err := h.Service.Register(r.Context(), req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if msg == "" {
		msg = "Registration successful"
	}
	common.JSON(w, http.StatusCreated, map[string]any{"message": msg})
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	user, err := h.Service.Login(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		if !common.IsValidation(err) {
			logger(r).Warn().Err(err).Str("client_ip", common.ClientIP(r)).Msg("login_failed")
		}
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": user}})
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Logout(r.Context()); err != nil {
		common.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Service.Me(r.Context())
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sess})
}

// Strength handles POST /api/v1/auth/password-strength.
func (h *Handler) Strength(w http.ResponseWriter, r *http.Request) {
	var req strengthRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	score := PasswordStrength(req.Password)
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"score": score,
		"max":   5,
		"label": StrengthLabel(score),
	}})
}

func logger(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
