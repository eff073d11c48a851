package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/internal/auth"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

type registerRequest struct {
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"max=100"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// sessionResponse is returned by register and login.
type sessionResponse struct {
	Message      string      `json:"message"`
	User         *types.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// startSession issues a token pair and stores the refresh token, replacing
// any earlier one.
func (s *Server) startSession(c *gin.Context, u *types.User, message string) (*sessionResponse, error) {
	access, err := s.issuer.IssueAccess(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(u)
	if err != nil {
		return nil, err
	}
	if err := s.diary.Users().SetRefreshToken(c.Request.Context(), u.ID, refresh); err != nil {
		return nil, err
	}
	return &sessionResponse{Message: message, User: u, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.CheckCredentials(req.Email, req.Password); err != nil {
		s.fail(c, err)
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.fail(c, err)
		return
	}
	u := &types.User{
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  types.OptionalString(req.DisplayName),
	}
	if _, err := s.diary.Users().Create(c.Request.Context(), u); err != nil {
		s.fail(c, err)
		return
	}
	resp, err := s.startSession(c, u, "User created successfully")
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("user registered", "user_id", u.ID)
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) login(c *gin.Context) {
	if s.throttle != nil && !s.throttle.Allow(c.ClientIP()) {
		s.fail(c, errThrottled)
		return
	}
	var req loginRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.diary.Users().GetByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, types.ErrNotFound) {
		s.fail(c, types.ErrInvalidCredentials)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.ComparePassword(u.PasswordHash, req.Password); err != nil {
		s.fail(c, err)
		return
	}
	resp, err := s.startSession(c, u, "Login successful")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	claims, err := s.issuer.VerifyRefresh(req.RefreshToken)
	if err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.diary.Users().MatchRefreshToken(c.Request.Context(), claims.UserID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			err = types.ErrInvalidToken
		}
		s.fail(c, err)
		return
	}
	access, err := s.issuer.IssueAccess(u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": access, "user": u})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.diary.Users().SetRefreshToken(c.Request.Context(), userID(c), ""); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

func (s *Server) me(c *gin.Context) {
	u, err := s.diary.Users().Get(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (s *Server) changePassword(c *gin.Context) {
	var req passwordRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	u, err := s.diary.Users().Get(ctx, userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := auth.ComparePassword(u.PasswordHash, req.CurrentPassword); err != nil {
		s.fail(c, err)
		return
	}
	if !auth.ValidPassword(req.NewPassword) {
		s.fail(c, types.ErrWeakPassword)
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.Users().UpdatePassword(ctx, u.ID, hash); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}
