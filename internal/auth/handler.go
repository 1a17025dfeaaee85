package auth

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/ai-data-assistant/internal/httputil"
	"github.com/redmonkez12/ai-data-assistant/internal/logging"
	"github.com/redmonkez12/ai-data-assistant/internal/metrics"
	"github.com/redmonkez12/ai-data-assistant/internal/password"
	"github.com/redmonkez12/ai-data-assistant/internal/user"
	"github.com/redmonkez12/ai-data-assistant/internal/validation"
)

// Rate limit purposes
const (
	PurposeRegister           = "register"
	PurposeLogin              = "login"
	PurposeForgotPassword     = "forgot_password"
	PurposeResendVerification = "resend_verification"
)

// RateLimiter is satisfied by *ratelimit.Limiter
type RateLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
	CheckEmailCooldown(ctx context.Context, purpose, email string) (bool, error)
	SetEmailCooldown(ctx context.Context, purpose, email string) error
}

// Handler contains HTTP handlers for authentication endpoints
type Handler struct {
	service         *Service
	rateLimiter     RateLimiter // nil disables rate limiting
	metrics         *metrics.AuthMetrics
	secureCookies   bool
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewHandler(service *Service, rateLimiter RateLimiter, m *metrics.AuthMetrics, secureCookies bool, accessDuration, refreshDuration time.Duration) *Handler {
	return &Handler{
		service:         service,
		rateLimiter:     rateLimiter,
		metrics:         m,
		secureCookies:   secureCookies,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,max=254,email"`
	Password string `json:"password" validate:"required,max=72,strongpassword"`
}

// LoginRequest represents the login request body. Identifier is a username or an email.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest represents the password reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,max=254,email"`
}

// ResetPasswordRequest represents the password reset confirmation
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,max=72,strongpassword"`
}

// ResendVerificationRequest represents the resend verification email request
type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,max=254,email"`
}

// ErrorResponse represents an error response
type ErrorResponse = httputil.ErrorResponse

// UserResponse represents a user in API responses
type UserResponse struct {
	ID         uuid.UUID  `json:"id"`
	Username   string     `json:"username"`
	Email      string     `json:"email"`
	IsVerified bool       `json:"is_verified"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// RegisterResponse represents the registration response
type RegisterResponse struct {
	User      UserResponse `json:"user"`
	EmailSent bool         `json:"email_sent"`
	Message   string       `json:"message"`
}

// LoginResponse carries the tokens for non-browser clients
type LoginResponse struct {
	AuthTokens
	User UserResponse `json:"user"`
}

// CookieLoginResponse is returned to browsers; the tokens travel in cookies
type CookieLoginResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message   string `json:"message"`
	EmailSent *bool  `json:"email_sent,omitempty"`
}

// VerifyEmailResponse represents a successful verification
type VerifyEmailResponse struct {
	Message     string `json:"message"`
	Username    string `json:"username"`
	WelcomeSent bool   `json:"welcome_sent"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
	}
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an unverified account. A verification email is sent; email_sent reports whether it was accepted.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RegisterRequest true "Registration details"
// @Success      201 {object} RegisterResponse
// @Failure      400 {object} ErrorResponse "Invalid request or validation error"
// @Failure      409 {object} ErrorResponse "Username or email already exists"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      503 {object} ErrorResponse "Credential store unavailable"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip, ok := h.checkIPLimit(w, r, logger, PurposeRegister)
	if !ok {
		return
	}

	var req RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid registration request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	logger = logger.WithFields(map[string]any{"username": req.Username, "email": req.Email})

	h.recordIPRequest(r, logger, ip, PurposeRegister)

	if err := validation.Struct(req); err != nil {
		logger.Warn("registration failed: validation error", "error", validation.Message(err))
		respondError(w, validation.Message(err), registerValidationCode(err), http.StatusBadRequest)
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		respondServiceError(w, logger, "registration", err)
		return
	}

	logger.Info("user registered successfully", "user_id", result.User.ID, "email_sent", result.EmailSent)

	message := "Registration successful. Please check your email to verify your account."
	if !result.EmailSent {
		message = "Registration successful, but the verification email could not be sent. Please request a new one."
	}

	respondJSON(w, RegisterResponse{
		User:      newUserResponse(result.User),
		EmailSent: result.EmailSent,
		Message:   message,
	}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with a username or email and receive an access token and, with the database provider, a refresh token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      401 {object} ErrorResponse "Invalid credentials"
// @Failure      403 {object} ErrorResponse "Account deactivated or email not verified"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Failure      503 {object} ErrorResponse "Credential store unavailable"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ip, ok := h.checkIPLimit(w, r, logger, PurposeLogin)
	if !ok {
		return
	}

	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid login request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	req.Identifier = strings.TrimSpace(req.Identifier)

	logger = logger.WithFields(map[string]any{"identifier": req.Identifier})

	h.recordIPRequest(r, logger, ip, PurposeLogin)

	if err := validation.Struct(req); err != nil {
		logger.Warn("login failed: validation error", "error", validation.Message(err))
		respondError(w, validation.Message(err), httputil.CodeValidationFailed, http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		respondServiceError(w, logger, "login", err)
		return
	}

	logger.Info("user logged in successfully", "user_id", result.User.ID)

	h.respondTokens(w, r, result, "logged in successfully")
}

// Refresh handles access token refresh
// @Summary      Refresh access token
// @Description  Rotate a refresh token: the presented token is revoked and a new token pair is issued
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Refresh token (or refresh_token cookie)"
// @Success      200 {object} LoginResponse
// @Failure      400 {object} ErrorResponse "Refresh token missing"
// @Failure      401 {object} ErrorResponse "Invalid or expired refresh token"
// @Failure      403 {object} ErrorResponse "Account deactivated"
// @Failure      503 {object} ErrorResponse "Credential store unavailable"
// @Router       /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := refreshTokenFromRequest(r)
	if refreshToken == "" {
		logger.Warn("refresh token missing from both body and cookie")
		respondError(w, "refresh token required", httputil.CodeRefreshTokenRequired, http.StatusBadRequest)
		return
	}

	result, err := h.service.RefreshSession(r.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrSessionExpired) {
			logger.Warn("token refresh failed: invalid or expired token", "error", err.Error())
			ClearAuthCookies(w, h.secureCookies)
			respondError(w, "invalid or expired refresh token", httputil.CodeInvalidRefreshToken, http.StatusUnauthorized)
			return
		}
		respondServiceError(w, logger, "token refresh", err)
		return
	}

	logger.Info("access token refreshed successfully", "user_id", result.User.ID)

	h.respondTokens(w, r, result, "token refreshed successfully")
}

// Logout handles user logout
// @Summary      User logout
// @Description  Revoke the refresh token if one is presented and clear auth cookies
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body RefreshRequest false "Optional refresh token"
// @Success      200 {object} MessageResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	refreshToken := refreshTokenFromRequest(r)
	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		logger.Warn("failed to revoke refresh token", "error", err)
		// Continue - still clear cookies
	}

	ClearAuthCookies(w, h.secureCookies)

	logger.Info("user logged out successfully")

	respondJSON(w, MessageResponse{Message: "logged out"}, http.StatusOK)
}

// VerifyEmail handles email verification
// @Summary      Verify email address
// @Description  Verify an account using the token from the verification email
// @Tags         auth
// @Produce      json
// @Param        token query string true "Verification token"
// @Success      200 {object} VerifyEmailResponse
// @Failure      400 {object} ErrorResponse "Missing, invalid, expired or already used token"
// @Failure      503 {object} ErrorResponse "Credential store unavailable"
// @Router       /auth/verify-email [get]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	token := r.URL.Query().Get("token")
	if token == "" {
		logger.Warn("email verification failed: token missing")
		respondError(w, "verification token required", httputil.CodeVerificationTokenRequired, http.StatusBadRequest)
		return
	}

	result, err := h.service.VerifyEmail(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			logger.Warn("email verification failed: invalid token")
			respondError(w, "Invalid verification token.", httputil.CodeInvalidVerificationToken, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrTokenExpired) {
			logger.Warn("email verification failed: token expired")
			respondError(w, "Verification link has expired. Please request a new one.", httputil.CodeTokenExpired, http.StatusBadRequest)
			return
		}
		respondServiceError(w, logger, "email verification", err)
		return
	}

	logger.Info("email verified successfully", "username", result.Username)

	respondJSON(w, VerifyEmailResponse{
		Message:     "Email verified successfully. You can now login.",
		Username:    result.Username,
		WelcomeSent: result.WelcomeSent,
	}, http.StatusOK)
}

// ResendVerificationEmail handles resending verification email
// @Summary      Resend verification email
// @Description  Replace the pending verification token of an unverified account and email it again
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResendVerificationRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Invalid request or already verified"
// @Failure      404 {object} ErrorResponse "No account with that email"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Router       /auth/resend-verification [post]
func (h *Handler) ResendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResendVerificationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid resend verification request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := validation.Struct(req); err != nil {
		respondError(w, validation.Message(err), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if !h.checkEmailLimits(w, r, logger, PurposeResendVerification, req.Email) {
		return
	}

	result, err := h.service.ResendVerification(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, logger, "resend verification", err)
		return
	}

	logger.Info("verification email reissued", "email_sent", result.EmailSent)

	message := "A new verification link has been sent."
	if !result.EmailSent {
		message = "A new verification link was created but the email could not be sent. Please try again later."
	}
	respondJSON(w, MessageResponse{Message: message, EmailSent: &result.EmailSent}, http.StatusOK)
}

// ForgotPassword handles password reset requests
// @Summary      Request password reset
// @Description  Email a password reset link. Any earlier reset link for the account stops working.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ForgotPasswordRequest true "Email address"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Invalid request body"
// @Failure      403 {object} ErrorResponse "Account deactivated"
// @Failure      404 {object} ErrorResponse "No account with that email"
// @Failure      429 {object} ErrorResponse "Too many requests"
// @Router       /auth/forgot-password [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid forgot password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := validation.Struct(req); err != nil {
		respondError(w, validation.Message(err), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
		return
	}

	logger = logger.WithFields(map[string]any{"email": req.Email})

	if !h.checkEmailLimits(w, r, logger, PurposeForgotPassword, req.Email) {
		return
	}

	result, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		respondServiceError(w, logger, "password reset request", err)
		return
	}

	logger.Info("password reset requested", "email_sent", result.EmailSent)

	message := "A password reset link has been sent to your email."
	if !result.EmailSent {
		message = "A password reset link was created but the email could not be sent. Please try again later."
	}
	respondJSON(w, MessageResponse{Message: message, EmailSent: &result.EmailSent}, http.StatusOK)
}

// ResetPassword handles password reset with token
// @Summary      Reset password
// @Description  Set a new password using a reset token. All sessions of the account are revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} ErrorResponse "Invalid request, weak password or invalid token"
// @Failure      503 {object} ErrorResponse "Credential store unavailable"
// @Router       /auth/reset-password [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		respondError(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	if err := validation.Struct(req); err != nil {
		code := httputil.CodeWeakPassword
		if validation.Field(err) == "token" {
			code = httputil.CodeInvalidResetToken
		}
		logger.Warn("password reset failed: validation error", "error", validation.Message(err))
		respondError(w, validation.Message(err), code, http.StatusBadRequest)
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenExpired) {
			logger.Warn("password reset failed: invalid or expired token", "error", err.Error())
			respondError(w, "invalid or expired reset token", httputil.CodeInvalidResetToken, http.StatusBadRequest)
			return
		}
		respondServiceError(w, logger, "password reset", err)
		return
	}

	logger.Info("password reset successfully")

	ClearAuthCookies(w, h.secureCookies)
	respondJSON(w, MessageResponse{
		Message: "Password reset successfully. You can now login with your new password.",
	}, http.StatusOK)
}

// Me returns the authenticated user
// @Summary      Current user
// @Description  Return the account the access token was issued for
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} UserResponse
// @Failure      401 {object} ErrorResponse "Missing or invalid access token"
// @Failure      403 {object} ErrorResponse "Account deactivated"
// @Failure      404 {object} ErrorResponse "User not found"
// @Router       /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return
	}

	u, err := h.service.User(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			logger.Warn("authenticated user no longer exists")
			respondError(w, "user not found", httputil.CodeUserNotFound, http.StatusNotFound)
			return
		}
		respondServiceError(w, logger, "current user lookup", err)
		return
	}

	if !u.IsActive {
		respondError(w, ErrAccountDeactivated.Error(), httputil.CodeAccountDeactivated, http.StatusForbidden)
		return
	}

	respondJSON(w, newUserResponse(u), http.StatusOK)
}

// respondTokens sends tokens in cookies to browsers and in the body otherwise
func (h *Handler) respondTokens(w http.ResponseWriter, r *http.Request, result *LoginResult, message string) {
	if ShouldUseCookies(r) {
		SetAuthCookies(w, result.Tokens.AccessToken, result.Tokens.RefreshToken, h.secureCookies, h.accessDuration, h.refreshDuration)
		// Don't return tokens in response body when using cookies
		respondJSON(w, CookieLoginResponse{Message: message, User: newUserResponse(result.User)}, http.StatusOK)
		return
	}

	respondJSON(w, LoginResponse{AuthTokens: result.Tokens, User: newUserResponse(result.User)}, http.StatusOK)
}

// checkIPLimit rejects the request when the client IP is over its window.
// Limiter failures are logged and the request continues.
func (h *Handler) checkIPLimit(w http.ResponseWriter, r *http.Request, logger *logging.Logger, purpose string) (string, bool) {
	ip := getClientIP(r)
	if h.rateLimiter == nil {
		return ip, true
	}

	exceeded, err := h.rateLimiter.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
	if err != nil {
		logger.Error("failed to check IP rate limit", "error", err.Error())
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip, "purpose", purpose)
		h.metrics.RateLimited(purpose)
		respondError(w, "too many requests, please try again later", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
		return ip, false
	}

	return ip, true
}

func (h *Handler) recordIPRequest(r *http.Request, logger *logging.Logger, ip, purpose string) {
	if h.rateLimiter == nil {
		return
	}
	if err := h.rateLimiter.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
		logger.Error("failed to record IP request", "error", err.Error())
	}
}

// checkEmailLimits applies the IP window and the per-email cooldown, then
// records the attempt against both
func (h *Handler) checkEmailLimits(w http.ResponseWriter, r *http.Request, logger *logging.Logger, purpose, emailAddr string) bool {
	ip, ok := h.checkIPLimit(w, r, logger, purpose)
	if !ok {
		return false
	}
	if h.rateLimiter == nil {
		return true
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), purpose, emailAddr)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err.Error())
	} else if onCooldown {
		logger.Warn("email on cooldown", "purpose", purpose)
		h.metrics.RateLimited(purpose)
		respondError(w, "please wait before requesting another email", httputil.CodeCooldownActive, http.StatusTooManyRequests)
		return false
	}

	h.recordIPRequest(r, logger, ip, purpose)

	if err := h.rateLimiter.SetEmailCooldown(r.Context(), purpose, emailAddr); err != nil {
		logger.Error("failed to set email cooldown", "error", err.Error())
	}

	return true
}

// respondServiceError maps the shared service errors to status codes
func respondServiceError(w http.ResponseWriter, logger *logging.Logger, action string, err error) {
	switch {
	case errors.Is(err, user.ErrDuplicateUsername):
		logger.Warn(action + " failed: username already exists")
		respondError(w, "username already exists", httputil.CodeUsernameAlreadyExists, http.StatusConflict)
	case errors.Is(err, user.ErrDuplicateEmail):
		logger.Warn(action + " failed: email already exists")
		respondError(w, "email already exists", httputil.CodeEmailAlreadyExists, http.StatusConflict)
	case errors.Is(err, user.ErrInvalidUsername):
		respondError(w, err.Error(), httputil.CodeInvalidUsername, http.StatusBadRequest)
	case errors.Is(err, user.ErrInvalidEmail):
		respondError(w, err.Error(), httputil.CodeInvalidEmailFormat, http.StatusBadRequest)
	case errors.Is(err, password.ErrTooLong):
		respondError(w, err.Error(), httputil.CodeWeakPassword, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		logger.Warn(action + " failed: invalid credentials")
		respondError(w, "invalid username or password", httputil.CodeInvalidCredentials, http.StatusUnauthorized)
	case errors.Is(err, ErrAccountDeactivated):
		logger.Warn(action + " failed: account deactivated")
		respondError(w, err.Error(), httputil.CodeAccountDeactivated, http.StatusForbidden)
	case errors.Is(err, ErrEmailNotVerified):
		logger.Warn(action + " failed: email not verified")
		respondError(w, err.Error(), httputil.CodeEmailNotVerified, http.StatusForbidden)
	case errors.Is(err, ErrEmailNotFound):
		logger.Warn(action + " failed: email not found")
		respondError(w, err.Error(), httputil.CodeEmailNotFound, http.StatusNotFound)
	case errors.Is(err, ErrAlreadyVerified):
		logger.Warn(action + " failed: already verified")
		respondError(w, "This email is already verified. You can login now.", httputil.CodeAlreadyVerified, http.StatusBadRequest)
	case errors.Is(err, ErrTokenExpired), errors.Is(err, ErrSessionExpired):
		respondError(w, err.Error(), httputil.CodeTokenExpired, http.StatusBadRequest)
	case errors.Is(err, ErrInvalidToken):
		respondError(w, err.Error(), httputil.CodeInvalidToken, http.StatusBadRequest)
	case errors.Is(err, ErrNotSupported):
		respondError(w, err.Error(), httputil.CodeNotSupported, http.StatusNotImplemented)
	case errors.Is(err, ErrStoreUnavailable):
		logger.Error(action+" failed: credential store unavailable", "error", err.Error())
		respondError(w, "service temporarily unavailable, please try again later", httputil.CodeServiceUnavailable, http.StatusServiceUnavailable)
	default:
		logger.Error(action+" failed: internal error", "error", err.Error())
		respondError(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

func registerValidationCode(err error) string {
	switch validation.Field(err) {
	case "username":
		return httputil.CodeInvalidUsername
	case "email":
		return httputil.CodeInvalidEmailFormat
	case "password":
		return httputil.CodeWeakPassword
	default:
		return httputil.CodeValidationFailed
	}
}

// refreshTokenFromRequest reads the JSON body first and falls back to the cookie
func refreshTokenFromRequest(r *http.Request) string {
	var refreshToken string
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err == nil {
		refreshToken = req.RefreshToken
	}

	if refreshToken == "" {
		if cookieToken, err := GetRefreshTokenFromCookie(r); err == nil {
			refreshToken = cookieToken
		}
	}

	// Trim whitespace that might have been accidentally added
	return strings.TrimSpace(refreshToken)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	httputil.RespondJSON(w, data, statusCode)
}

// respondError sends an error response with a machine-readable code
func respondError(w http.ResponseWriter, message string, code string, statusCode int) {
	httputil.RespondErrorWithCode(w, message, code, statusCode)
}

// getClientIP returns the peer address of the request. Forwarded headers are
// applied upstream by the router, and only for trusted proxies.
func getClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
