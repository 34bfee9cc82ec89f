package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/samsdev/sams-auth/internal/audit"
	"github.com/samsdev/sams-auth/internal/staff"
)

// ─── Request/Response Types ────────────────────────────────────────

type staffRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Position string `json:"position" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleListStaff returns all staff members.
func (s *Server) handleListStaff(w http.ResponseWriter, r *http.Request) {
	members, err := s.staffRepo.List(r.Context())
	if err != nil {
		s.logger.Error("list staff failed", "error", err)
		writeInternalError(w, "failed to list staff")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"staff": members,
		"count": len(members),
	})
}

// handleGetStaff returns a single staff member by ID.
func (s *Server) handleGetStaff(w http.ResponseWriter, r *http.Request) {
	id, err := staffIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid staff id")
		return
	}

	member, err := s.staffRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			writeNotFound(w, "staff member not found")
			return
		}
		s.logger.Error("get staff failed", "error", err)
		writeInternalError(w, "failed to get staff member")
		return
	}

	writeJSON(w, http.StatusOK, member)
}

// handleCreateStaff adds a staff member to the directory.
func (s *Server) handleCreateStaff(w http.ResponseWriter, r *http.Request) {
	req, fields := s.decodeStaffRequest(r)
	if fields != nil {
		writeValidationError(w, fields)
		return
	}
	actor := userFromContext(r.Context())

	member := &staff.Member{
		Name:     req.Name,
		Position: req.Position,
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
	}

	if err := s.staffRepo.Create(r.Context(), member); err != nil {
		s.logger.Error("create staff failed", "error", err)
		writeInternalError(w, "failed to create staff member")
		return
	}

	s.logger.Info("staff member created", "staff_id", member.ID, "created_by", actor.ID)
	s.auditLog(audit.ActionStaffCreated, "staff", fmt.Sprint(member.ID), &actor.ID, map[string]any{
		"name": member.Name,
	})

	writeJSON(w, http.StatusCreated, member)
}

// handleUpdateStaff replaces a staff member's details.
func (s *Server) handleUpdateStaff(w http.ResponseWriter, r *http.Request) {
	id, err := staffIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid staff id")
		return
	}

	req, fields := s.decodeStaffRequest(r)
	if fields != nil {
		writeValidationError(w, fields)
		return
	}
	actor := userFromContext(r.Context())

	member := &staff.Member{
		ID:       id,
		Name:     req.Name,
		Position: req.Position,
		Email:    req.Email,
		PhotoURL: req.PhotoURL,
	}

	if err := s.staffRepo.Update(r.Context(), member); err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			writeNotFound(w, "staff member not found")
			return
		}
		s.logger.Error("update staff failed", "error", err)
		writeInternalError(w, "failed to update staff member")
		return
	}

	s.logger.Info("staff member updated", "staff_id", id, "updated_by", actor.ID)
	s.auditLog(audit.ActionStaffUpdated, "staff", fmt.Sprint(id), &actor.ID, nil)

	writeJSON(w, http.StatusOK, member)
}

// handleDeleteStaff removes a staff member. Linked user accounts keep
// working; the database clears their staff reference.
func (s *Server) handleDeleteStaff(w http.ResponseWriter, r *http.Request) {
	id, err := staffIDParam(r)
	if err != nil {
		writeBadRequest(w, "invalid staff id")
		return
	}
	actor := userFromContext(r.Context())

	if err := s.staffRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, staff.ErrNotFound) {
			writeNotFound(w, "staff member not found")
			return
		}
		s.logger.Error("delete staff failed", "error", err)
		writeInternalError(w, "failed to delete staff member")
		return
	}

	s.logger.Info("staff member deleted", "staff_id", id, "deleted_by", actor.ID)
	s.auditLog(audit.ActionStaffDeleted, "staff", fmt.Sprint(id), &actor.ID, nil)

	w.WriteHeader(http.StatusNoContent)
}

// ─── Helpers ───────────────────────────────────────────────────────

// decodeStaffRequest decodes and validates a staff create/update body.
// A non-nil fields map means validation failed.
func (s *Server) decodeStaffRequest(r *http.Request) (staffRequest, map[string]string) {
	var req staffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, map[string]string{"request": "invalid JSON body"}
	}

	if err := s.validate.Struct(req); err != nil {
		fields := map[string]string{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				fields[strings.ToLower(fe.Field())] = validationMessage(fe)
			}
		} else {
			fields["request"] = "invalid request"
		}
		return req, fields
	}

	return req, nil
}

// staffIDParam parses the {id} route parameter.
func staffIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
