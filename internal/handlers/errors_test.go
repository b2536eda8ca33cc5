package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/openlobby/lobby-service/internal/lobby"
)

func TestWriteErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &lobby.ValidationError{Field: "name", Reason: "required"}, http.StatusBadRequest},
		{"name conflict", &lobby.ConflictError{Field: "name"}, http.StatusConflict},
		{"already in a room", &lobby.ConflictError{Field: "player", Detail: "already in room ABCDE"}, http.StatusConflict},
		{"not found", lobby.ErrNotFound, http.StatusNotFound},
		{"player not in room", lobby.ErrPlayerNotInRoom, http.StatusNotFound},
		{"forbidden", lobby.ErrForbidden, http.StatusForbidden},
		{"room full", lobby.ErrRoomFull, http.StatusForbidden},
		{"joined after start", &lobby.StateError{Op: "join", Status: "playing"}, http.StatusBadRequest},
		{"players not ready", lobby.ErrPlayersNotReady, http.StatusBadRequest},
		{"too few players", lobby.ErrNotEnoughPlayers, http.StatusBadRequest},
		{"duplicate start", lobby.ErrAlreadyStarted, http.StatusBadRequest},
		{"upstream failure", &lobby.UpstreamError{Err: errors.New("timeout")}, http.StatusBadGateway},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			writeError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
