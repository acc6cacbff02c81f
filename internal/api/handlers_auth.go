package api

import (
	"net/http"

	"github.com/jellydator/validation"

	apperrors "github.com/wallet-insights/internal/errors"
	"github.com/wallet-insights/internal/service"
)

// decodeAndValidate parses the JSON body into req and validates it. On
// failure the 400 response has already been written.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req validation.Validatable) bool {
	if err := parseJSONBody(r, req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidBody, "Invalid request body", nil)
		return false
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, apperrors.CodeValidation, "Validation failed", fieldErrors(err))
		return false
	}
	return true
}

// handleRegister handles POST /api/auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input := service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Preferences != nil {
		prefs := req.Preferences.PreferencesUpdate
		input.Preferences = &prefs
	}

	result, err := s.auth.Register(r.Context(), input)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

// handleLogin handles POST /api/auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleValidateToken handles POST /api/auth/validate. It always answers 200;
// the body says whether the token is valid.
func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := parseJSONBody(r, &req); err != nil || req.Token == "" {
		respondJSON(w, http.StatusOK, service.TokenValidation{Valid: false, Error: "Invalid token"})
		return
	}

	respondJSON(w, http.StatusOK, s.auth.ValidateToken(r.Context(), req.Token))
}

// handleRefresh handles POST /api/auth/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleUpdatePassword handles PATCH /api/auth/password
func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user := currentUser(r)
	if err := s.auth.UpdatePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

// handleDeleteAccount handles DELETE /api/auth/account
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	if err := s.auth.DeleteAccount(r.Context(), user.ID); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, successResponse{Success: true})
}

type successResponse struct {
	Success bool `json:"success"`
}
