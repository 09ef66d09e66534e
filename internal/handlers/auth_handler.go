package handlers

import (
	"errors"
	"net/http"

	"focusflow/internal/auth"
	"focusflow/internal/logging"

	"github.com/gin-gonic/gin"
)

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the token a client sends as "Bearer <token>".
type LoginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	ExpiresIn int64  `json:"expiresIn"` // seconds
}

// Login handles POST /api/login against the configured account.
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	token, err := auth.Login(req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDisabled):
			c.JSON(http.StatusNotFound, gin.H{"error": "Authentication is not enabled"})
		case errors.Is(err, auth.ErrInvalidCredentials):
			logging.Logger.WithField("username", req.Username).WithField("ip", c.ClientIP()).Warn("failed login")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		default:
			logging.Logger.WithError(err).Error("failed to issue token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		}
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		Username:  req.Username,
		ExpiresIn: int64(auth.TokenTTL.Seconds()),
	})
}
