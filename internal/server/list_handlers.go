package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/moviemu/backend/internal/lists"
	"github.com/moviemu/backend/internal/users"
)

type createListRequest struct {
	Name     string `json:"name"`
	IsShared bool   `json:"is_shared"`
}

type listPayload struct {
	ListID           string    `json:"list_id"`
	Name             string    `json:"name"`
	CreatedBy        string    `json:"created_by"`
	IsShared         bool      `json:"is_shared"`
	AllowOthersToAdd bool      `json:"allow_others_to_add"`
	CreatedAt        time.Time `json:"created_at"`
}

func listToPayload(list lists.List) listPayload {
	return listPayload{
		ListID:           list.ListID,
		Name:             list.Name,
		CreatedBy:        list.CreatorID,
		IsShared:         list.IsShared,
		AllowOthersToAdd: list.AllowOthersToAdd,
		CreatedAt:        list.CreatedAt,
	}
}

func (h *httpHandler) handleCreateList(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request createListRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	list, err := h.lists.Create(c.Request.Context(), actorID, request.Name, request.IsShared)
	if errors.Is(err, lists.ErrInvalidListName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_list_name"})
		return
	}
	if err != nil {
		h.logger.Error("list creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_create_failed"})
		return
	}
	c.JSON(http.StatusCreated, listToPayload(list))
}

func (h *httpHandler) handleListsByUser(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	userLists, err := h.lists.ByUser(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lists_query_failed"})
		return
	}
	payloads := make([]listPayload, 0, len(userLists))
	for _, list := range userLists {
		payloads = append(payloads, listToPayload(list))
	}
	c.JSON(http.StatusOK, gin.H{"lists": payloads})
}

func (h *httpHandler) handleGetList(c *gin.Context) {
	list, err := h.lists.Get(c.Request.Context(), c.Param("listID"))
	if errors.Is(err, lists.ErrListNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "list_not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_query_failed"})
		return
	}

	participants, err := h.lists.Participants(c.Request.Context(), list.ListID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_query_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"list":         listToPayload(list),
		"participants": participants,
	})
}

func (h *httpHandler) handleDeleteList(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	err := h.lists.Delete(c.Request.Context(), c.Param("listID"), actorID)
	if errors.Is(err, lists.ErrListNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "list_not_found"})
		return
	}
	if errors.Is(err, lists.ErrNotCreator) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not_list_creator"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_delete_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleJoinList(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	if err := h.lists.Join(c.Request.Context(), c.Param("listID"), actorID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_join_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type oneOnOneListRequest struct {
	FriendID string `json:"friend_id"`
}

// handleOneOnOneList returns the shared list that contains exactly the caller
// and the named friend, creating one named after the pair when none exists.
func (h *httpHandler) handleOneOnOneList(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request oneOnOneListRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.FriendID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.FriendID == actorID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	actorName, _, err := h.users.DisplayFields(c.Request.Context(), actorID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_query_failed"})
		return
	}
	friendName, _, err := h.users.DisplayFields(c.Request.Context(), request.FriendID)
	if errors.Is(err, users.ErrProfileNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile_not_found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "profile_query_failed"})
		return
	}

	list, err := h.lists.FindOrCreateOneOnOne(c.Request.Context(), actorID, request.FriendID, actorName, friendName)
	if err != nil {
		h.logger.Error("one-on-one list lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_create_failed"})
		return
	}
	c.JSON(http.StatusOK, listToPayload(list))
}

type addParticipantsRequest struct {
	UserIDs []string `json:"user_ids"`
}

func (h *httpHandler) handleAddParticipants(c *gin.Context) {
	var request addParticipantsRequest
	if err := c.ShouldBindJSON(&request); err != nil || len(request.UserIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.lists.AddParticipants(c.Request.Context(), c.Param("listID"), request.UserIDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "participants_add_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleLeaveList(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	if err := h.lists.Leave(c.Request.Context(), c.Param("listID"), actorID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list_leave_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

type movieEntryPayload struct {
	EntryID    string     `json:"entry_id"`
	TMDBID     int64      `json:"tmdb_id"`
	Title      string     `json:"title"`
	PosterPath string     `json:"poster_path,omitempty"`
	AddedBy    string     `json:"added_by"`
	AddedAt    time.Time  `json:"added_at"`
	Watched    bool       `json:"watched"`
	WatchedAt  *time.Time `json:"watched_at,omitempty"`
	IsMatch    bool       `json:"is_match"`
}

func (h *httpHandler) handleListMovies(c *gin.Context) {
	movies, err := h.lists.Movies(c.Request.Context(), c.Param("listID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "movies_query_failed"})
		return
	}
	payloads := make([]movieEntryPayload, 0, len(movies))
	for _, movie := range movies {
		payloads = append(payloads, movieEntryPayload{
			EntryID:    movie.EntryID,
			TMDBID:     movie.TMDBID,
			Title:      movie.Title,
			PosterPath: movie.PosterPath,
			AddedBy:    movie.AddedBy,
			AddedAt:    movie.AddedAt,
			Watched:    movie.Watched,
			WatchedAt:  movie.WatchedAt,
			IsMatch:    movie.IsMatch,
		})
	}
	c.JSON(http.StatusOK, gin.H{"movies": payloads})
}

type addMovieRequest struct {
	TMDBID     int64  `json:"tmdb_id"`
	Title      string `json:"title"`
	PosterPath string `json:"poster_path"`
}

func (h *httpHandler) handleAddMovie(c *gin.Context) {
	actorID := c.GetString(userIDContextKey)

	var request addMovieRequest
	if err := c.ShouldBindJSON(&request); err != nil || request.TMDBID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	entryID, err := h.lists.AddMovie(c.Request.Context(), c.Param("listID"), actorID, lists.MovieEntry{
		TMDBID:     request.TMDBID,
		Title:      request.Title,
		PosterPath: request.PosterPath,
	})
	if errors.Is(err, lists.ErrListNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "list_not_found"})
		return
	}
	if errors.Is(err, lists.ErrPermissionDenied) {
		c.JSON(http.StatusForbidden, gin.H{"error": "permission_denied"})
		return
	}
	if err != nil {
		h.logger.Error("movie add failed", zap.String("list_id", c.Param("listID")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "movie_add_failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry_id": entryID})
}

func (h *httpHandler) handleRemoveMovie(c *gin.Context) {
	if err := h.lists.RemoveMovie(c.Request.Context(), c.Param("listID"), c.Param("entryID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "movie_remove_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMarkWatched(c *gin.Context) {
	if err := h.lists.MarkWatched(c.Request.Context(), c.Param("listID"), c.Param("entryID")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "movie_watch_failed"})
		return
	}
	c.Status(http.StatusNoContent)
}
