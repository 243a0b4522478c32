package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/users"
)

type profilePayload struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

func profileToPayload(profile users.Profile) profilePayload {
	return profilePayload{
		UserID:      profile.UserID,
		Email:       profile.Email,
		Username:    profile.Username,
		FullName:    profile.FullName,
		DisplayName: profile.DisplayName,
		PhotoURL:    profile.PhotoURL,
		Bio:         profile.Bio,
	}
}

func (h *httpHandler) handleUsernameAvailable(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username_required"})
		return
	}
	taken, err := h.users.UsernameExists(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "username_check_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": !taken})
}

type createProfileRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

func (h *httpHandler) handleCreateProfile(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request createProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	profile, err := h.users.CreateProfile(c.Request.Context(), actorID, request.Email, request.Username, request.FullName)
	if errors.Is(err, users.ErrUsernameTaken) {
		c.JSON(http.StatusConflict, gin.H{"error": "username_taken"})
		return
	}
	if errors.Is(err, users.ErrInvalidUsername) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_username"})
		return
	}
	if err != nil {
		h.logger.Error("profile creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_create_failed"})
		return
	}
	c.JSON(http.StatusCreated, profileToPayload(profile))
}

func (h *httpHandler) handleOwnProfile(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	profile, err := h.users.GetProfile(c.Request.Context(), actorID)
	if errors.Is(err, users.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_query_failed"})
		return
	}
	c.JSON(http.StatusOK, profileToPayload(profile))
}

type updateProfileRequest struct {
	FullName *string `json:"full_name"`
	PhotoURL *string `json:"photo_url"`
	Bio      *string `json:"bio"`
}

func (h *httpHandler) handleUpdateProfile(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request updateProfileRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err := h.users.UpdateProfile(c.Request.Context(), actorID, users.ProfileUpdate{
		FullName: request.FullName,
		PhotoURL: request.PhotoURL,
		Bio:      request.Bio,
	})
	if errors.Is(err, users.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_update_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleSearchUsers looks up a profile by exact username or email.
func (h *httpHandler) handleSearchUsers(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	email := strings.TrimSpace(c.Query("email"))

	var (
		profile users.Profile
		err     error
	)
	switch {
	case username != "":
		profile, err = h.users.SearchByUsername(c.Request.Context(), username)
	case email != "":
		profile, err = h.users.SearchByEmail(c.Request.Context(), email)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "query_required"})
		return
	}
	if errors.Is(err, users.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search_failed"})
		return
	}
	c.JSON(http.StatusOK, profileToPayload(profile))
}

type friendRequestPayload struct {
	FriendID string `json:"friend_id"`
}

func (h *httpHandler) handleSendFriendRequest(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request friendRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.FriendID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.users.SendFriendRequest(c.Request.Context(), actorID, request.FriendID); err != nil {
		h.logger.Error("friend request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friend_request_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleFriendRequests(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	requests, err := h.users.FriendRequests(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "requests_query_failed"})
		return
	}
	type requestPayload struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Username    string `json:"username"`
		PhotoURL    string `json:"photo_url,omitempty"`
	}
	payloads := make([]requestPayload, 0, len(requests))
	for _, request := range requests {
		payloads = append(payloads, requestPayload{
			UserID:      request.OtherID,
			DisplayName: request.DisplayName,
			Username:    request.Username,
			PhotoURL:    request.PhotoURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"requests": payloads})
}

func (h *httpHandler) handleAcceptFriendRequest(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	if err := h.users.AcceptFriendRequest(c.Request.Context(), actorID, c.Param("friendID")); err != nil {
		h.logger.Error("friend accept failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friend_accept_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRejectFriendRequest(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	if err := h.users.RejectFriendRequest(c.Request.Context(), actorID, c.Param("friendID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friend_reject_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleFriends(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	friends, err := h.users.Friends(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friends_query_failed"})
		return
	}
	type friendPayload struct {
		UserID      string `json:"user_id"`
		DisplayName string `json:"display_name"`
		Username    string `json:"username"`
		PhotoURL    string `json:"photo_url,omitempty"`
	}
	payloads := make([]friendPayload, 0, len(friends))
	for _, friend := range friends {
		payloads = append(payloads, friendPayload{
			UserID:      friend.FriendID,
			DisplayName: friend.DisplayName,
			Username:    friend.Username,
			PhotoURL:    friend.PhotoURL,
		})
	}
	c.JSON(http.StatusOK, gin.H{"friends": payloads})
}

func (h *httpHandler) handleRemoveFriend(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	if err := h.users.RemoveFriend(c.Request.Context(), actorID, c.Param("friendID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "friend_remove_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type movieRefRequest struct {
	TMDBID     int64  `json:"tmdb_id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

func (h *httpHandler) handleFavorites(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	favorites, err := h.users.Favorites(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorites_query_failed"})
		return
	}
	type favoritePayload struct {
		FavoriteID string `json:"favorite_id"`
		TMDBID     int64  `json:"tmdb_id"`
		Title      string `json:"title"`
		PosterPath string `json:"poster_path,omitempty"`
	}
	payloads := make([]favoritePayload, 0, len(favorites))
	for _, favorite := range favorites {
		payloads = append(payloads, favoritePayload{
			FavoriteID: favorite.FavoriteID,
			TMDBID:     favorite.TMDBID,
			Title:      favorite.Title,
			PosterPath: favorite.PosterPath,
		})
	}
	c.JSON(http.StatusOK, gin.H{"favorites": payloads})
}

func (h *httpHandler) handleAddFavorite(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request movieRefRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.TMDBID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	favoriteID, err := h.users.AddFavorite(c.Request.Context(), actorID, users.MovieRef{
		TMDBID:     request.TMDBID,
		Title:      request.Title,
		PosterPath: request.PosterPath,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_add_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"favorite_id": favoriteID})
}

func (h *httpHandler) handleRemoveFavorite(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	if err := h.users.RemoveFavorite(c.Request.Context(), actorID, c.Param("favoriteID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "favorite_remove_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleTopFive(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	entries, err := h.users.TopFive(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "top5_query_failed"})
		return
	}
	type topFivePayload struct {
		Position   int    `json:"position"`
		TMDBID     int64  `json:"tmdb_id"`
		Title      string `json:"title"`
		PosterPath string `json:"poster_path,omitempty"`
	}
	payloads := make([]topFivePayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, topFivePayload{
			Position:   entry.Position,
			TMDBID:     entry.TMDBID,
			Title:      entry.Title,
			PosterPath: entry.PosterPath,
		})
	}
	c.JSON(http.StatusOK, gin.H{"top5": payloads})
}

func (h *httpHandler) handleSetTopFive(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_position"})
		return
	}

	var request movieRefRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.TMDBID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	err = h.users.SetTopFive(c.Request.Context(), actorID, position, users.MovieRef{
		TMDBID:     request.TMDBID,
		Title:      request.Title,
		PosterPath: request.PosterPath,
	})
	if errors.Is(err, users.ErrInvalidPosition) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_position"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "top5_set_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
