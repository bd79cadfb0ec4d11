package auth

import (
	"errors"
	"net"
	"net/http"

	"github.com/redmonkez12/book-catalog-api/internal/httputil"
	"github.com/redmonkez12/book-catalog-api/internal/identity"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service     *Service
	rateLimiter RateLimiter
	observer    EventObserver
	cookies     CookieConfig
}

func NewHandler(service *Service, rateLimiter RateLimiter, observer EventObserver, cookies CookieConfig) *Handler {
	return &Handler{
		service:     service,
		rateLimiter: rateLimiter,
		observer:    observer,
		cookies:     cookies,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ConfirmRequest represents the account confirmation request body
type ConfirmRequest struct {
	Email        string `json:"email"`
	ConfirmToken string `json:"confirmToken"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResendConfirmationRequest represents the resend confirmation request body
type ResendConfirmationRequest struct {
	Email string `json:"email"`
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an inactive account. A confirmation token is sent by email.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration data"
// @Success      201 {object} user.Public
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "register") {
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.With("email", req.Email)

	newUser, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.observe("register", "failure")
		switch {
		case errors.Is(err, user.ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			httputil.RespondErrorWithCode(w, "email already exists", httputil.CodeDuplicateEmail, http.StatusConflict)
		case errors.Is(err, user.ErrValidation):
			logger.Warn("registration failed: validation error", "error", err.Error())
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeValidationFailed, http.StatusBadRequest)
		default:
			logger.Error("registration failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to register user", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	h.observe("register", "success")
	logger.Info("user registered", "user_id", newUser.ID)

	httputil.RespondJSON(w, newUser.Public(), http.StatusCreated)
}

// Confirm handles account confirmation
// @Summary      Confirm an account
// @Description  Activate an account with the token sent at registration
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ConfirmRequest true "Email and confirmation token"
// @Success      200 {object} user.Public
// @Failure      400 {object} httputil.ErrorResponse "Email or token is incorrect"
// @Router       /auth/confirm [post]
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "confirm") {
		return
	}

	var req ConfirmRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid confirm request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.With("email", req.Email)

	confirmed, err := h.service.Confirm(r.Context(), req.Email, req.ConfirmToken)
	if err != nil {
		h.observe("confirm", "failure")
		if errors.Is(err, user.ErrInvalidConfirmation) {
			logger.Warn("confirmation failed: invalid token")
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidConfirmation, http.StatusBadRequest)
			return
		}
		logger.Error("confirmation failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "failed to confirm account", httputil.CodeInternalError, http.StatusInternalServerError)
		return
	}

	h.observe("confirm", "success")
	logger.Info("account confirmed", "user_id", confirmed.ID)

	httputil.RespondJSON(w, confirmed.Public(), http.StatusOK)
}

// ResendConfirmation handles resending the confirmation email
// @Summary      Resend confirmation email
// @Description  Always succeeds to prevent email enumeration.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendConfirmationRequest true "Email address"
// @Success      200 {object} map[string]string
// @Router       /auth/resend-confirmation [post]
func (h *Handler) ResendConfirmation(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "resend") {
		return
	}

	var req ResendConfirmationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid resend confirmation request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	_ = h.service.ResendConfirmation(r.Context(), req.Email)

	httputil.RespondJSON(w, map[string]string{
		"message": "If your email is registered and not confirmed, the confirmation code has been sent again.",
	}, http.StatusOK)
}

// Login handles user login
// @Summary      User login
// @Description  Verify credentials and start a cookie session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} user.Public
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Failure      403 {object} httputil.ErrorResponse "Account not confirmed"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if h.limited(w, r, "login") {
		return
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	logger = logger.With("email", req.Email)

	u, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.observe("login", "failure")
		switch {
		case errors.Is(err, user.ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeInvalidCredentials, http.StatusUnauthorized)
		case errors.Is(err, user.ErrAccountNotConfirmed):
			logger.Warn("login failed: account not confirmed")
			httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeAccountNotConfirmed, http.StatusForbidden)
		default:
			logger.Error("login failed: internal error", "error", err.Error())
			httputil.RespondErrorWithCode(w, "failed to login", httputil.CodeInternalError, http.StatusInternalServerError)
		}
		return
	}

	h.observe("login", "success")
	logger.Info("user logged in", "user_id", u.ID)

	SetSessionCookie(w, token, h.cookies)
	httputil.RespondJSON(w, u.Public(), http.StatusOK)
}

// Logout handles user logout
// @Summary      User logout
// @Description  Clear the session cookie. Tokens are not tracked server-side.
// @Tags         auth
// @Produce      json
// @Success      200
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.cookies)
	h.observe("logout", "success")
	httputil.RespondJSON(w, nil, http.StatusOK)
}

// Me returns the identity of the current session
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Success      200 {object} identity.Identity
// @Failure      401 {object} httputil.ErrorResponse "Not authenticated"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "authentication required", httputil.CodeUnauthenticated, http.StatusUnauthorized)
		return
	}
	httputil.RespondJSON(w, id, http.StatusOK)
}

// limited checks and records the per-IP rate limit for purpose. It writes
// the 429 response itself and reports whether the request must stop.
// Limiter errors are logged and the request is allowed through.
func (h *Handler) limited(w http.ResponseWriter, r *http.Request, purpose string) bool {
	if h.rateLimiter == nil {
		return false
	}
	logger := logging.GetLoggerFromContext(r.Context())
	ip := clientIP(r)

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		httputil.RespondErrorWithCode(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return true
	}

	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
	return false
}

func (h *Handler) observe(operation, outcome string) {
	if h.observer != nil {
		h.observer.ObserveAuth(operation, outcome)
	}
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
