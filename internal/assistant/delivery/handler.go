package delivery

import (
	"errors"
	"net/http"

	accountdelivery "homeops-backend/internal/account/delivery"
	"homeops-backend/internal/assistant/domain"
	"homeops-backend/internal/assistant/usecase"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	assistantUsecase usecase.AssistantUsecase
}

func NewAssistantHandler(assistantUsecase usecase.AssistantUsecase) *AssistantHandler {
	return &AssistantHandler{assistantUsecase: assistantUsecase}
}

type ChatRequest struct {
	Message string `json:"message" binding:"required"`
}

// Chat handles POST /api/assistant/chat
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.assistantUsecase.Chat(c.Request.Context(), accountdelivery.UserID(c), req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrUnavailable):
			status = http.StatusServiceUnavailable
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reply)
}
