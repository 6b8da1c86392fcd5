package handler

import (
	"linku/backend/internal/api/middleware"
	"linku/backend/internal/api/response"
	"linku/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

type createRoomRequest struct {
	PostID   *uint `json:"postId"`
	OwnerUID uint  `json:"ownerUid"`
}

// CreateRoom returns the pair room of the caller and the owner, creating it
// on first use.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperr.ErrInvalidInput.WithMessage("invalid room request body"))
		return
	}
	room, err := h.Chat.OpenRoom(c.Request.Context(), middleware.UID(c), req.PostID, req.OwnerUID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, room)
}

func (h *Handler) ListMessages(c *gin.Context) {
	roomID, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	msgs, err := h.Chat.History(c.Request.Context(), middleware.UID(c), roomID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, msgs)
}

func (h *Handler) MyRooms(c *gin.Context) {
	rooms, err := h.Chat.ListMyRooms(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, rooms)
}

func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.Chat.Leave(c.Request.Context(), middleware.UID(c), roomID); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondEmpty(c)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	roomID, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	n, err := h.Chat.Unread(c.Request.Context(), middleware.UID(c), roomID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"roomId": roomID, "unreadCount": n})
}
