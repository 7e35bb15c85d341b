package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"omitempty,max=150"`
	LastName  string `json:"last_name" validate:"omitempty,max=150"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
	Token    string `json:"token"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsActive  bool   `json:"is_active"`
	IsAdmin   bool   `json:"is_admin"`
}

type purgeResponse struct {
	BlacklistPurged int64 `json:"blacklist_purged"`
	SessionsPurged  int64 `json:"sessions_purged"`
}

// writeError renders err with the status chosen by kind. Internal errors are
// logged; their text never reaches the client.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error, overrides map[string]int) {
	body := errorBodyFor(err)
	status := statusFor(body.Kind, overrides)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "error", err, "route", routePattern(r), "request_id", RequestIDFromContext(r.Context()))
	}
	writeJSON(w, status, body)
}

func (s *HTTPServer) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	pair, err := s.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairBody{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	pair, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairBody{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *HTTPServer) logout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		s.writeError(w, r, common.NewValidationError(common.AuthorizationHeaderName, "bearer token is required"), nil)
		return
	}

	if err := s.sessions.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err, tokenErrorsAreBadRequest)
		return
	}

	writeDetail(w, http.StatusOK, "Logged out successfully.")
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	_, err := s.registry.Register(r.Context(), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	writeDetail(w, http.StatusCreated, "Registration successful. Check your email.")
}

func (s *HTTPServer) verifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		s.writeError(w, r, common.NewValidationError("token", "is required"), nil)
		return
	}

	if err := s.recovery.ConfirmEmailVerification(r.Context(), token); err != nil {
		s.writeError(w, r, err, tokenErrorsAreBadRequest)
		return
	}

	writeDetail(w, http.StatusOK, "Email verified successfully.")
}

func (s *HTTPServer) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	if err := s.recovery.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	writeDetail(w, http.StatusOK, "A reset link has been sent to your email.")
}

func (s *HTTPServer) resetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req resetPasswordRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	// a body token, when sent, must name the same link
	if req.Token != "" && req.Token != token {
		s.writeError(w, r, common.NewValidationError("token", "does not match the reset link"), nil)
		return
	}

	if err := s.recovery.ConfirmPasswordReset(r.Context(), token, req.Password); err != nil {
		s.writeError(w, r, err, tokenErrorsAreBadRequest)
		return
	}

	writeDetail(w, http.StatusOK, "Password updated successfully.")
}

func (s *HTTPServer) me(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFromContext(r.Context())
	u := p.User
	writeJSON(w, http.StatusOK, userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		IsAdmin:   u.IsAdmin,
	})
}

func (s *HTTPServer) purge(w http.ResponseWriter, r *http.Request) {
	res, err := s.purger.Purge(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, purgeResponse{BlacklistPurged: res.BlacklistPurged, SessionsPurged: res.SessionsPurged})
}
