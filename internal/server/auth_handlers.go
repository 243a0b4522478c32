package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/users"
)

type authRequestPayload struct {
	IDToken string `json:"id_token"`
}

type authResponsePayload struct {
	AccessToken string             `json:"access_token"`
	ExpiresIn   int64              `json:"expires_in"`
	TokenType   string             `json:"token_type"`
	Registered  bool               `json:"registered"`
	Identity    authIdentityFields `json:"identity"`
}

// authIdentityFields echoes the Google profile claims so a first-time client
// can prefill the username-selection screen.
type authIdentityFields struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (h *httpHandler) handleGoogleAuth(c *gin.Context) {
	var request authRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.IDToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	claims, err := h.verifier.Verify(c.Request.Context(), request.IDToken)
	if err != nil {
		h.logger.Warn("google token verification failed", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, expiresIn, err := h.tokens.IssueBackendToken(c.Request.Context(), claims)
	if err != nil {
		h.logger.Error("failed to issue backend token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	registered := false
	if _, err := h.users.GetProfile(c.Request.Context(), claims.Subject); err == nil {
		registered = true
	} else if !errors.Is(err, users.ErrProfileNotFound) {
		h.logger.Warn("profile lookup failed during sign-in", zap.Error(err))
	}

	c.JSON(http.StatusOK, authResponsePayload{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Registered:  registered,
		Identity: authIdentityFields{
			Email:   claims.Email,
			Name:    claims.Name,
			Picture: claims.Picture,
		},
	})
}
