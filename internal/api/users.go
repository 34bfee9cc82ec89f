package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/samsdev/sams-auth/internal/audit"
	"github.com/samsdev/sams-auth/internal/auth"
)

// ─── Request/Response Types ────────────────────────────────────────

type createUserRequest struct {
	Username string    `json:"username" validate:"required,max=50"`
	Email    string    `json:"email" validate:"required,email,max=255"`
	Password string    `json:"password" validate:"required"`
	Role     auth.Role `json:"role"`
	StaffID  *int64    `json:"staff_id,omitempty"`
}

type updateUserRequest struct {
	Email    *string    `json:"email,omitempty"`
	Role     *auth.Role `json:"role,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
	StaffID  *int64     `json:"staff_id,omitempty"`
}

type setPasswordRequest struct {
	Password string `json:"password"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleListUsers returns all user accounts.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.userRepo.List(r.Context())
	if err != nil {
		s.logger.Error("list users failed", "error", err)
		writeInternalError(w, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// handleCreateUser creates a user account with an explicit role.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if fields := s.validateRegister(registerRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}); len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !auth.IsValidRole(req.Role) {
		writeBadRequest(w, "invalid role: must be user or admin")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to create user")
		return
	}

	actor := userFromContext(r.Context())
	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
		StaffID:      req.StaffID,
	}

	if err := s.userRepo.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			writeConflict(w, "email already registered")
		case errors.Is(err, auth.ErrUsernameExists):
			writeConflict(w, "username already taken")
		default:
			s.logger.Error("create user failed", "error", err)
			writeInternalError(w, "failed to create user")
		}
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role, "created_by", actor.ID)
	s.auditLog(audit.ActionUserCreated, "user", fmt.Sprint(user.ID), &actor.ID, map[string]any{
		"username": user.Username,
		"role":     user.Role,
	})

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user by ID.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user failed", "error", err)
		writeInternalError(w, "failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser modifies a user's mutable fields. The username is
// immutable after creation.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) { //nolint:gocognit // field patching + self-protection guards
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}
	actor := userFromContext(r.Context())

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for update failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	// Self-protection: cannot deactivate yourself
	if req.IsActive != nil && !*req.IsActive && id == actor.ID {
		writeForbidden(w, "cannot deactivate your own account")
		return
	}

	// Self-protection: cannot demote yourself
	if req.Role != nil && id == actor.ID && *req.Role != actor.Role {
		writeForbidden(w, "cannot change your own role")
		return
	}

	if req.Role != nil && !auth.IsValidRole(*req.Role) {
		writeBadRequest(w, "invalid role: must be user or admin")
		return
	}

	// Apply patches
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.StaffID != nil {
		user.StaffID = req.StaffID
	}

	if err := s.userRepo.Update(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "email already registered")
			return
		}
		s.logger.Error("update user failed", "error", err)
		writeInternalError(w, "failed to update user")
		return
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", actor.ID)
	s.auditLog(audit.ActionUserUpdated, "user", fmt.Sprint(id), &actor.ID, nil)

	writeJSON(w, http.StatusOK, user)
}

// handleSetUserPassword replaces a user's password (admin reset).
func (s *Server) handleSetUserPassword(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}
	actor := userFromContext(r.Context())

	var req setPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Password) < s.secCfg.Password.MinLength {
		writeValidationError(w, map[string]string{
			"password": fmt.Sprintf("must be at least %d characters", s.secCfg.Password.MinLength),
		})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeInternalError(w, "failed to set password")
		return
	}

	if err := s.userRepo.UpdatePassword(r.Context(), id, hash); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("update password failed", "error", err)
		writeInternalError(w, "failed to set password")
		return
	}

	s.logger.Info("user password reset", "user_id", id, "reset_by", actor.ID)
	s.auditLog(audit.ActionPasswordChange, "user", fmt.Sprint(id), &actor.ID, nil)

	writeJSON(w, http.StatusOK, map[string]string{"status": "password_updated"})
}

// handleDeleteUser removes a user account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid user id")
		return
	}
	actor := userFromContext(r.Context())

	// Cannot delete yourself
	if id == actor.ID {
		writeForbidden(w, "cannot delete your own account")
		return
	}

	user, err := s.userRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("get user for delete failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	if err := s.userRepo.Delete(r.Context(), id); err != nil {
		s.logger.Error("delete user failed", "error", err)
		writeInternalError(w, "failed to delete user")
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", actor.ID)
	s.auditLog(audit.ActionUserDeleted, "user", fmt.Sprint(id), &actor.ID, map[string]any{
		"username": user.Username,
	})

	w.WriteHeader(http.StatusNoContent)
}

// userIDParam parses the {id} route parameter.
func userIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
