package delivery

import (
	"net/http"

	accountdelivery "homeops-backend/internal/account/delivery"
	"homeops-backend/internal/dashboard/usecase"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardUsecase usecase.DashboardUsecase
}

func NewDashboardHandler(dashboardUsecase usecase.DashboardUsecase) *DashboardHandler {
	return &DashboardHandler{dashboardUsecase: dashboardUsecase}
}

// GetOverview handles GET /api/dashboard
func (h *DashboardHandler) GetOverview(c *gin.Context) {
	overview, err := h.dashboardUsecase.GetOverview(c.Request.Context(), accountdelivery.UserID(c))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, overview)
}
