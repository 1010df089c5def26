package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/VoiceRelay/internal/app/orch"
	"github.com/dkeye/VoiceRelay/internal/domain"
)

type handlers struct {
	orch *orch.Orchestrator
	ice  []webrtc.ICEServer
}

type CreateRoomRequest struct {
	RoomID   domain.RoomID `json:"room_id"`
	Password string        `json:"password"`
}

type CreateRoomResponse struct {
	RoomID domain.RoomID `json:"room_id"`
}

func (h *handlers) createRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RoomID == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room_id and password are required"})
		return
	}

	room, err := h.orch.CreateRoom(req.RoomID, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRoomConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Room already exists"})
		return
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, CreateRoomResponse{RoomID: room.ID})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *handlers) getRoom(c *gin.Context) {
	info, ok := h.orch.Rooms.Get(domain.RoomID(c.Param("id")))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ice_servers": h.ice})
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": h.orch.Gateway.Count(),
	})
}
