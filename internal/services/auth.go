package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	"golang.org/x/oauth2"
)

// AuthService wraps the /auth endpoints.
type AuthService struct {
	api *APIClient
}

// NewAuthService creates an [AuthService] that sends requests through api.
func NewAuthService(api *APIClient) *AuthService {
	return &AuthService{api: api}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. It does not log the user in.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	var user models.User
	req := request{
		method:   http.MethodPost,
		path:     "/auth/register",
		endpoint: "auth.register",
		body:     registerRequest{Email: email, Password: password, FullName: fullName},
	}
	if err := s.api.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	var token oauth2.Token
	req := request{
		method:   http.MethodPost,
		path:     "/auth/login",
		endpoint: "auth.login",
		body:     loginRequest{Email: email, Password: password},
	}
	if err := s.api.do(ctx, req, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, &APIError{Kind: shared.ErrService, Status: http.StatusOK, Message: "Login response is missing an access token"}
	}
	if token.TokenType == "" {
		token.TokenType = "bearer"
	}
	return &token, nil
}

// CurrentUser returns the account that token belongs to.
//
// An empty token fails locally with [shared.ErrUnauthorized] and no request is made.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, &APIError{Kind: shared.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "No authentication token available"}
	}

	var user models.User
	req := request{method: http.MethodGet, path: "/auth/me", endpoint: "auth.me", token: token}
	if err := s.api.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout is local-only: the service keeps no server-side session for bearer tokens.
func (s *AuthService) Logout(context.Context) error { return nil }
