package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/samsdev/sams-auth/internal/audit"
	"github.com/samsdev/sams-auth/internal/auth"
)

// ─── Request/Response Types ────────────────────────────────────────

type registerRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleRegister creates a new user account with the default role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if fields := s.validateRegister(req); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to register user")
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		IsActive:     true,
	}

	if err := s.userRepo.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already taken")
		default:
			s.logger.Error("create user failed", "error", err)
			writeInternalError(w, "failed to register user")
		}
		return
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	s.auditLog(audit.ActionRegister, "user", fmt.Sprint(user.ID), &user.ID, map[string]any{
		"username": user.Username,
	})

	writeJSON(w, http.StatusCreated, user)
}

// handleLogin verifies credentials and issues an access token.
//
// The body may be JSON ({"email", "password"}) or form-encoded with the
// same fields; form clients may also send the email under "username",
// which older clients use for the credential field.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := decodeCredentials(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if fields := s.validateLogin(creds); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), creds)
	if err != nil {
		// Failed-attempt audit entries record the outcome only: the
		// submitted email is part of the credentials pair and is never
		// persisted or logged.
		switch {
		case errors.Is(err, auth.ErrUserInactive):
			s.metrics.RecordLogin("inactive")
			s.auditLog(audit.ActionLoginFailed, "user", "", nil, map[string]any{
				"reason": "inactive",
			})
			writeForbidden(w, "account is inactive")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.metrics.RecordLogin("invalid_credentials")
			s.auditLog(audit.ActionLoginFailed, "user", "", nil, map[string]any{
				"reason": "invalid_credentials",
			})
			writeUnauthorized(w, "invalid email or password")
		default:
			s.logger.Error("authenticate failed", "error", err)
			writeInternalError(w, "failed to log in")
		}
		return
	}

	token, err := s.codec.Issue(user)
	if err != nil {
		s.logger.Error("issue token failed", "error", err, "user_id", user.ID)
		writeInternalError(w, "failed to log in")
		return
	}

	s.metrics.RecordLogin("success")
	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	s.auditLog(audit.ActionLogin, "user", fmt.Sprint(user.ID), &user.ID, nil)

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.codec.TTL().Seconds()),
	})
}

// handleMe returns the authenticated user's own account.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ─── Helpers ───────────────────────────────────────────────────────

// validateRegister runs struct validation plus the checks the validator
// cannot express: username charset and the configured password minimum.
func (s *Server) validateRegister(req registerRequest) map[string]string {
	fields := map[string]string{}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = validationMessage(fe)
			}
		} else {
			fields["request"] = "invalid request"
		}
	}

	if _, seen := fields["username"]; !seen && !auth.IsValidUsername(req.Username) {
		fields["username"] = "may only contain letters, digits, dots, hyphens, and underscores"
	}
	if _, seen := fields["password"]; !seen && len(req.Password) < s.secCfg.Password.MinLength {
		fields["password"] = fmt.Sprintf("must be at least %d characters", s.secCfg.Password.MinLength)
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// validateLogin checks login credentials for presence and email syntax.
// A syntactically invalid email is a validation failure, not an
// authentication failure: Authenticate is never reached with it.
func (s *Server) validateLogin(creds auth.Credentials) map[string]string {
	fields := map[string]string{}

	switch {
	case creds.Email == "":
		fields["email"] = "required"
	case s.validate.Var(creds.Email, "email") != nil:
		fields["email"] = "must be a valid email address"
	}
	if creds.Password == "" {
		fields["password"] = "required"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// validationMessage converts a validator field error into a stable,
// client-facing message.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "invalid value"
	}
}

// decodeCredentials reads login credentials from a JSON or form body.
func decodeCredentials(r *http.Request) (auth.Credentials, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return auth.Credentials{}, errors.New("invalid form body")
		}
		email := r.PostFormValue("email")
		if email == "" {
			email = r.PostFormValue("username")
		}
		return auth.Credentials{
			Email:    email,
			Password: r.PostFormValue("password"),
		}, nil
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return auth.Credentials{}, errors.New("invalid JSON body")
	}
	return auth.Credentials{Email: req.Email, Password: req.Password}, nil
}
