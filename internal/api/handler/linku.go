package handler

import (
	"linku/backend/internal/api/middleware"
	"linku/backend/internal/api/response"
	"linku/backend/internal/apperr"
	"linku/backend/internal/linku"

	"github.com/gin-gonic/gin"
)

type proposeRequest struct {
	TargetUID uint   `json:"targetUid"`
	Message   string `json:"message"`
	PostRef   *uint  `json:"postRef"`
}

func (h *Handler) LinkuState(c *gin.Context) {
	roomID, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	state, err := h.Linku.State(c.Request.Context(), middleware.UID(c), roomID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, state)
}

func (h *Handler) ProposeLinku(c *gin.Context) {
	roomID, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req proposeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TargetUID == 0 {
		response.RespondError(c, apperr.ErrInvalidInput.WithMessage("targetUid is required"))
		return
	}
	state, err := h.Linku.Propose(c.Request.Context(), middleware.UID(c), roomID, req.TargetUID, req.PostRef, req.Message)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, state)
}

func (h *Handler) AcceptLinku(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	state, err := h.Linku.Accept(c.Request.Context(), id, middleware.UID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, state)
}

func (h *Handler) RejectLinku(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.Linku.Reject(c.Request.Context(), id, middleware.UID(c)); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondEmpty(c)
}

func (h *Handler) WriteReview(c *gin.Context) {
	roomID, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	var req linku.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperr.ErrInvalidInput.WithMessage("invalid review body"))
		return
	}
	if _, err := h.Linku.WriteReview(c.Request.Context(), roomID, middleware.UID(c), req); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondEmpty(c)
}

func (h *Handler) MyReviews(c *gin.Context) {
	reviews, err := h.Linku.Reviews(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, reviews)
}

func (h *Handler) UserReviews(c *gin.Context) {
	reviews, err := h.Linku.ReviewsByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, reviews)
}

func (h *Handler) DeleteReview(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if err := h.Linku.DeleteReview(c.Request.Context(), middleware.UID(c), id); err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondEmpty(c)
}

func (h *Handler) MyRating(c *gin.Context) {
	rating, err := h.Linku.Rating(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, rating)
}

func (h *Handler) UserRating(c *gin.Context) {
	rating, err := h.Linku.RatingByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, rating)
}

func (h *Handler) UserRatingByID(c *gin.Context) {
	uid, err := idParam(c, "uid")
	if err != nil {
		response.RespondError(c, err)
		return
	}
	rating, err := h.Linku.RatingByUID(c.Request.Context(), uid)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, rating)
}

func (h *Handler) MyConnections(c *gin.Context) {
	conns, err := h.Linku.MyConnections(c.Request.Context(), middleware.UID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, conns)
}
