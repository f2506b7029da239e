package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/redmonkez12/go-login-service/internal/httputil"
	"github.com/redmonkez12/go-login-service/internal/logging"
)

// User-facing error messages. The login message is deliberately the same
// for unknown email and wrong password.
const (
	msgInvalidCredentials = "Incorrect email or password"
	msgInactiveUser       = "Inactive user"
	msgInvalidToken       = "Invalid token"
	msgUserNotFound       = "The user with this username does not exist in the system."
	msgInternalError      = "Internal server error"
)

// Handler contains HTTP handlers for the authentication endpoints
type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

// ResetPasswordRequest is the reset-password body. The validate tags are
// the place to hang a password policy; none is enforced out of the box,
// existing passwords predate any policy this service could pick.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// LoginAccessToken handles password login
// @Summary      Login for access token
// @Description  OAuth2 compatible token login, get an access token for future requests
// @Tags         login
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username formData string true "Email address"
// @Param        password formData string true "Password"
// @Success      200 {object} Token
// @Failure      400 {object} httputil.ErrorResponse "Incorrect credentials or inactive user"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /login/access-token [post]
func (h *Handler) LoginAccessToken(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		logger.Warn("invalid login form body", "error", err.Error())
		httputil.RespondError(w, msgInvalidCredentials, http.StatusBadRequest)
		return
	}

	// The OAuth2 password flow calls the field "username"; it holds the email
	email := r.PostFormValue("username")
	password := r.PostFormValue("password")

	token, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondError(w, msgInvalidCredentials, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrInactiveUser) {
			logger.Warn("login failed: inactive user")
			httputil.RespondError(w, msgInactiveUser, http.StatusBadRequest)
			return
		}
		logger.Error("login failed: internal error", "error", err.Error())
		httputil.RespondError(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("user logged in")

	httputil.RespondJSON(w, token, http.StatusOK)
}

// TestToken handles the token verification probe
// @Summary      Test access token
// @Description  Validate the bearer token and return the user it belongs to
// @Tags         login
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} user.PublicUser
// @Failure      400 {object} httputil.ErrorResponse "Inactive user"
// @Failure      401 {object} httputil.ErrorResponse "Invalid token"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Router       /login/test-token [post]
func (h *Handler) TestToken(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		// RequireAuth did not run; treat as an unauthenticated request
		httputil.RespondError(w, msgCouldNotValidate, http.StatusUnauthorized)
		return
	}

	current, err := h.service.UserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			logger.Warn("test token failed: user no longer exists", "user_id", userID)
			httputil.RespondError(w, "User not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrInactiveUser) {
			logger.Warn("test token failed: inactive user", "user_id", userID)
			httputil.RespondError(w, msgInactiveUser, http.StatusBadRequest)
			return
		}
		logger.Error("test token failed: internal error", "error", err.Error())
		httputil.RespondError(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, current.Public(), http.StatusOK)
}

// RecoverPassword handles password recovery initiation
// @Summary      Password recovery
// @Description  Email a one-time password reset token to the account
// @Tags         login
// @Produce      json
// @Param        email path string true "Email address"
// @Success      200 {object} httputil.Msg
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /password-recovery/{email} [post]
func (h *Handler) RecoverPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	email := chi.URLParam(r, "email")

	if err := h.service.RecoverPassword(r.Context(), email); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			logger.Warn("password recovery failed: unknown email")
			httputil.RespondError(w, msgUserNotFound, http.StatusNotFound)
			return
		}
		logger.Error("password recovery failed: internal error", "error", err.Error())
		httputil.RespondError(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	logger.Info("password recovery email sent")

	httputil.RespondJSON(w, httputil.Msg{Msg: "Password recovery email sent"}, http.StatusOK)
}

// ResetPassword handles password reset finalization
// @Summary      Reset password
// @Description  Replace the account password using a valid reset token
// @Tags         login
// @Accept       json
// @Produce      json
// @Param        request body ResetPasswordRequest true "Reset token and new password"
// @Success      200 {object} httputil.Msg
// @Failure      400 {object} httputil.ErrorResponse "Invalid token, missing fields or inactive user"
// @Failure      404 {object} httputil.ErrorResponse "User not found"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error"
// @Router       /reset-password/ [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid reset password request body", "error", err.Error())
		httputil.RespondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		logger.Warn("reset password failed: validation error", "error", err.Error())
		httputil.RespondError(w, "Token and new password are required", http.StatusBadRequest)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			logger.Warn("reset password failed: invalid token")
			httputil.RespondError(w, msgInvalidToken, http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrUserNotFound) {
			logger.Warn("reset password failed: unknown user")
			httputil.RespondError(w, msgUserNotFound, http.StatusNotFound)
			return
		}
		if errors.Is(err, ErrInactiveUser) {
			logger.Warn("reset password failed: inactive user")
			httputil.RespondError(w, msgInactiveUser, http.StatusBadRequest)
			return
		}
		logger.Error("reset password failed: internal error", "error", err.Error())
		httputil.RespondError(w, msgInternalError, http.StatusInternalServerError)
		return
	}

	httputil.RespondJSON(w, httputil.Msg{Msg: "Password updated successfully"}, http.StatusOK)
}
