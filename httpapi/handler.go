package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/drazzan/go2fa"
	"github.com/drazzan/go2fa/middleware"
	"github.com/drazzan/go2fa/ratelimit"
	"github.com/drazzan/go2fa/token"
)

// Handler serves the two-factor HTTP API.
type Handler struct {
	engine  *go2fa.Engine
	tokens  *token.Manager
	limiter ratelimit.Limiter
}

// New assembles a Handler. The limiter backs the route-level gates and may
// be nil to disable them (the engine still enforces its own budgets).
func New(engine *go2fa.Engine, tokens *token.Manager, limiter ratelimit.Limiter) *Handler {
	return &Handler{
		engine:  engine,
		tokens:  tokens,
		limiter: limiter,
	}
}

// Routes builds the mux with auth and rate limit middleware applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	loginGate := middleware.Gate(h.limiter, "login", ratelimit.Login, middleware.ClientIP)
	mux.Handle("POST /login", loginGate(http.HandlerFunc(h.handleLogin)))

	authed := middleware.Auth(h.tokens)
	gate := middleware.Gate(h.limiter, "twofactor", ratelimit.Strict, middleware.IdentityID)
	guard := func(fn http.HandlerFunc) http.Handler {
		return authed(gate(fn))
	}

	mux.Handle("POST /2fa/setup", guard(h.handleSetup))
	mux.Handle("POST /2fa/verify", guard(h.handleVerify))
	mux.Handle("POST /2fa/disable", guard(h.handleDisable))
	mux.Handle("POST /2fa/backup-codes", guard(h.handleRegenerateBackupCodes))
	mux.Handle("GET /2fa/status", authed(http.HandlerFunc(h.handleStatus)))

	return mux
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	Code       string `json:"code,omitempty"`
}

type loginResponse struct {
	Token                string `json:"token"`
	IdentityID           string `json:"identity_id"`
	UsedBackupCode       bool   `json:"used_backup_code,omitempty"`
	BackupCodesRemaining int    `json:"backup_codes_remaining,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := go2fa.WithClientIP(r.Context(), middleware.ClientIP(r))
	if ua := r.UserAgent(); ua != "" {
		ctx = go2fa.WithUserAgent(ctx, ua)
	}

	result, err := h.engine.Authenticate(ctx, req.Identifier, req.Password, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, go2fa.ErrSecondFactorRequired):
			writeError(w, http.StatusUnauthorized, "second factor required")
		case errors.Is(err, go2fa.ErrInvalidCredentials),
			errors.Is(err, go2fa.ErrCodeInvalid):
			// One message for every credential failure; do not reveal
			// which check rejected the attempt.
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		case errors.Is(err, go2fa.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "too many requests")
		default:
			h.serverError(w, "login", err)
		}
		return
	}

	sessionToken, err := h.tokens.Issue(result.IdentityID)
	if err != nil {
		h.serverError(w, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:                sessionToken,
		IdentityID:           result.IdentityID,
		UsedBackupCode:       result.UsedBackupCode,
		BackupCodesRemaining: result.BackupCodesRemaining,
	})
}

type setupResponse struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	QRCode          string   `json:"qr_code,omitempty"`
	BackupCodes     []string `json:"backup_codes"`
}

func (h *Handler) handleSetup(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	result, err := h.engine.Setup(r.Context(), identityID)
	if err != nil {
		h.writeEngineError(w, "setup", err)
		return
	}

	writeJSON(w, http.StatusOK, setupResponse{
		Secret:          result.Secret,
		ProvisioningURI: result.ProvisioningURI,
		QRCode:          result.QRCode,
		BackupCodes:     result.BackupCodes,
	})
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.Verify(r.Context(), identityID, req.Code); err != nil {
		h.writeEngineError(w, "verify", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "enabled": true})
}

type disableRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleDisable(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req disableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.engine.Disable(r.Context(), identityID, req.Password); err != nil {
		h.writeEngineError(w, "disable", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true, "enabled": false})
}

type statusResponse struct {
	Enabled              bool       `json:"enabled"`
	State                string     `json:"state"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	status, err := h.engine.Status(r.Context(), identityID)
	if err != nil {
		h.writeEngineError(w, "status", err)
		return
	}

	resp := statusResponse{
		Enabled:              status.Enabled,
		State:                status.State.String(),
		BackupCodesRemaining: status.BackupCodesRemaining,
	}
	if !status.VerifiedAt.IsZero() {
		at := status.VerifiedAt.UTC()
		resp.VerifiedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

type regenerateRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	identityID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	codes, err := h.engine.RegenerateBackupCodes(r.Context(), identityID, req.Code)
	if err != nil {
		h.writeEngineError(w, "backup-codes", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"backup_codes": codes})
}

func (h *Handler) writeEngineError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, go2fa.ErrIdentityNotFound):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, go2fa.ErrAlreadyEnabled):
		writeError(w, http.StatusBadRequest, "two-factor already enabled")
	case errors.Is(err, go2fa.ErrNotSetUp):
		writeError(w, http.StatusNotFound, "two-factor setup not started")
	case errors.Is(err, go2fa.ErrSetupExpired):
		writeError(w, http.StatusBadRequest, "two-factor setup expired")
	case errors.Is(err, go2fa.ErrNotEnabled):
		writeError(w, http.StatusBadRequest, "two-factor not enabled")
	case errors.Is(err, go2fa.ErrCodeInvalid),
		errors.Is(err, go2fa.ErrBackupCodeInvalid):
		writeError(w, http.StatusBadRequest, "invalid code")
	case errors.Is(err, go2fa.ErrPasswordInvalid):
		writeError(w, http.StatusBadRequest, "invalid password")
	case errors.Is(err, go2fa.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	default:
		h.serverError(w, op, err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	log.Printf("httpapi: %s failed: %v", op, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
