package api

import (
	accountUsecase "homeops-backend/internal/account/usecase"
	assistantDelivery "homeops-backend/internal/assistant/delivery"
	assistantUsecase "homeops-backend/internal/assistant/usecase"
	dashboardDelivery "homeops-backend/internal/dashboard/delivery"
	dashboardUsecase "homeops-backend/internal/dashboard/usecase"
	inboxDelivery "homeops-backend/internal/inbox/delivery"
	inboxUsecase "homeops-backend/internal/inbox/usecase"
	taskDelivery "homeops-backend/internal/task/delivery"
	taskUsecase "homeops-backend/internal/task/usecase"
	"homeops-backend/pkg/logger"
	"homeops-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services are the usecases the HTTP layer serves. SyncQueue may be nil, in
// which case syncs run inline.
type Services struct {
	Accounts  accountUsecase.AccountUsecase
	Inbox     inboxUsecase.InboxUsecase
	SyncQueue inboxUsecase.Enqueuer
	Tasks     taskUsecase.TaskUsecase
	Dashboard dashboardUsecase.DashboardUsecase
	Assistant assistantUsecase.AssistantUsecase
	Settings  *SettingsHandler
	Metrics   *metrics.Metrics
}

type Handler struct {
	accountUsecase   accountUsecase.AccountUsecase
	inboxHandler     *inboxDelivery.InboxHandler
	taskHandler      *taskDelivery.TaskHandler
	dashboardHandler *dashboardDelivery.DashboardHandler
	assistantHandler *assistantDelivery.AssistantHandler
	settingsHandler  *SettingsHandler
	metrics          *metrics.Metrics
	log              zerolog.Logger
}

func NewHandler(svc Services, log zerolog.Logger) *Handler {
	return &Handler{
		accountUsecase:   svc.Accounts,
		inboxHandler:     inboxDelivery.NewInboxHandler(svc.Inbox, svc.SyncQueue),
		taskHandler:      taskDelivery.NewTaskHandler(svc.Tasks),
		dashboardHandler: dashboardDelivery.NewDashboardHandler(svc.Dashboard),
		assistantHandler: assistantDelivery.NewAssistantHandler(svc.Assistant),
		settingsHandler:  svc.Settings,
		metrics:          svc.Metrics,
		log:              log,
	}
}

// Router builds the gin engine with middleware and every route.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Gin(h.log))

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}
