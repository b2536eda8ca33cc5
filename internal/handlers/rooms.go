package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openlobby/lobby-service/internal/lobby"
	"github.com/openlobby/lobby-service/internal/middleware"
	"github.com/openlobby/lobby-service/internal/models"
)

// Rooms exposes the lobby service over HTTP. Handlers only bind input,
// resolve the caller identity and translate errors; every decision
// lives in the service.
type Rooms struct {
	service *lobby.Service
}

func NewRooms(service *lobby.Service) *Rooms {
	return &Rooms{service: service}
}

// List returns every room.
func (h *Rooms) List(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// Create creates a room with the caller as host.
func (h *Rooms) Create(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing parameters"})
		return
	}

	room, err := h.service.CreateRoom(c.Request.Context(), ident, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// Get returns a room by id.
func (h *Rooms) Get(c *gin.Context) {
	room, err := h.service.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Search finds a room by partial code or name.
func (h *Rooms) Search(c *gin.Context) {
	room, err := h.service.SearchRoom(c.Request.Context(), c.Param("codeOrName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// Join adds the caller to the room.
func (h *Rooms) Join(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	room, err := h.service.JoinRoom(c.Request.Context(), c.Param("id"), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

// SetReady sets the caller's ready flag from the request body.
func (h *Rooms) SetReady(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.SetReadyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing "ready" parameter in request body`})
		return
	}

	room, err := h.service.SetReady(c.Request.Context(), c.Param("id"), ident, *req.Ready)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// RemovePlayer removes the player named in the path, or the caller when
// the path carries no user id. Removing the host deletes the room.
func (h *Rooms) RemovePlayer(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	room, deleted, err := h.service.RemovePlayer(c.Request.Context(), c.Param("id"), ident, c.Param("userId"))
	if err != nil {
		writeError(c, err)
		return
	}
	if deleted {
		c.JSON(http.StatusOK, gin.H{"message": "Room deleted because the host left"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// Start triggers the game start for the caller's room.
func (h *Rooms) Start(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	if err := h.service.StartGame(c.Request.Context(), c.Param("id"), ident); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete removes a room unconditionally. Admin only.
func (h *Rooms) Delete(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	room, err := h.service.DeleteRoom(c.Request.Context(), c.Param("id"), ident)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// writeError maps the lobby error taxonomy onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		validation *lobby.ValidationError
		conflict   *lobby.ConflictError
		state      *lobby.StateError
		upstream   *lobby.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
	case errors.As(err, &state),
		errors.Is(err, lobby.ErrPlayersNotReady),
		errors.Is(err, lobby.ErrNotEnoughPlayers),
		errors.Is(err, lobby.ErrAlreadyStarted):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lobby.ErrRoomFull):
		c.JSON(http.StatusForbidden, gin.H{"error": "Room is full"})
	case errors.Is(err, lobby.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, lobby.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, lobby.ErrPlayerNotInRoom):
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found in this room"})
	case errors.As(err, &upstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to start game"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
