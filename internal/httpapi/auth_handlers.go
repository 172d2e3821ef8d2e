package httpapi

import (
	"net/http"

	"github.com/quesbackend/ques-core/internal/apperr"
	"github.com/quesbackend/ques-core/internal/identity"
)

type registerRequest struct {
	Provider    string  `json:"provider" validate:"required,oneof=phone email wechat google"`
	ProviderID  string  `json:"provider_id" validate:"required"`
	Code        string  `json:"code" validate:"required"`
	DisplayName string  `json:"display_name" validate:"required"`
	Password    *string `json:"password"`
}

type loginRequest struct {
	Provider   string  `json:"provider" validate:"required,oneof=phone email wechat google"`
	ProviderID string  `json:"provider_id" validate:"required"`
	Code       *string `json:"code"`
	Password   *string `json:"password"`
	Device     string  `json:"device"`
}

type sendCodeRequest struct {
	Provider   string `json:"provider" validate:"required,oneof=phone email wechat google"`
	ProviderID string `json:"provider_id" validate:"required"`
	Purpose    string `json:"purpose" validate:"required,oneof=register login reset verify"`
}

type verifyCodeRequest struct {
	Provider   string `json:"provider" validate:"required,oneof=phone email wechat google"`
	ProviderID string `json:"provider_id" validate:"required"`
	Code       string `json:"code" validate:"required"`
	Purpose    string `json:"purpose" validate:"required,oneof=register login reset verify"`
}

type oauthLoginRequest struct {
	Provider    string `json:"provider" validate:"required,oneof=google"`
	Code        string `json:"code" validate:"required"`
	DisplayName string `json:"display_name"`
	Device      string `json:"device"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	Device       string `json:"device"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenResponse struct {
	UserID       int64  `json:"user_id"`
	DisplayName  string `json:"display_name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func tokenResponseFrom(u *identity.User, tokens identity.TokenPair) tokenResponse {
	return tokenResponse{
		UserID:       u.UserID,
		DisplayName:  u.DisplayName,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	user, tokens, err := s.Identity.Register(r.Context(), identity.Provider(req.Provider), req.ProviderID, req.Code, req.DisplayName, req.Password)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, tokenResponseFrom(user, tokens))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	user, tokens, err := s.Identity.Login(r.Context(), identity.Provider(req.Provider), req.ProviderID, req.Code, req.Password, req.Device)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, tokenResponseFrom(user, tokens))
}

func (s *Server) handleOAuthLogin(w http.ResponseWriter, r *http.Request) {
	if s.OAuth == nil {
		writeAppErr(w, r, apperr.New(apperr.Internal, "oauth provider not configured"))
		return
	}

	var req oauthLoginRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	providerID, email, err := s.OAuth.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = email
	}

	user, tokens, err := s.Identity.LoginOrRegisterOAuth(r.Context(), identity.Provider(req.Provider), providerID, displayName, req.Device)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, tokenResponseFrom(user, tokens))
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	if err := s.Identity.SendCode(r.Context(), identity.Provider(req.Provider), req.ProviderID, identity.CodePurpose(req.Purpose)); err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusAccepted, map[string]bool{"sent": true})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	ok, err := s.Identity.VerifyCode(r.Context(), identity.Provider(req.Provider), req.ProviderID, req.Code, identity.CodePurpose(req.Purpose))
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	tokens, err := s.Identity.Refresh(r.Context(), req.RefreshToken, req.Device)
	if err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeAppErr(w, r, err)
		return
	}

	if err := s.Identity.Logout(r.Context(), req.RefreshToken); err != nil {
		writeAppErr(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r.Context())
	if !ok {
		writeAppErr(w, r, apperr.New(apperr.Unauthorized, "not authenticated"))
		return
	}
	writeOK(w, http.StatusOK, user)
}
