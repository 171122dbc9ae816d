package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/eventpro/internal/app"
	"github.com/qs-lzh/eventpro/internal/metrics"
	"github.com/qs-lzh/eventpro/internal/model"
)

type Handler struct {
	app *app.App
}

func New(app *app.App) *Handler {
	return &Handler{
		app: app,
	}
}

// NewRouter builds the HTTP API on top of app.
func NewRouter(app *app.App) *gin.Engine {
	h := New(app)

	r := gin.New()
	r.Use(RequestID(), Logger(app.Logger), Recovery(app.Logger), Metrics())

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)

	api.GET("/events", h.SearchEvents)
	api.GET("/events/popular", h.PopularEvents)
	api.GET("/events/available", h.AvailableEvents)
	api.GET("/events/category/:category", h.EventsByCategory)
	api.GET("/events/city/:city", h.EventsByCity)
	api.GET("/events/:id", h.GetEvent)

	authed := api.Group("", Authenticate(app.Tokens, app.UserService))
	{
		authed.GET("/me", h.Me)
		authed.PUT("/me", h.UpdateMe)
		authed.POST("/me/password", h.ChangePassword)
		authed.GET("/me/statistics", h.MyStatistics)

		manage := Require(model.CapManageOwnEvents)
		authed.POST("/events", manage, h.CreateEvent)
		authed.PUT("/events/:id", manage, h.UpdateEvent)
		authed.POST("/events/:id/publish", manage, h.PublishEvent)
		authed.POST("/events/:id/cancel", manage, h.CancelEvent)
		authed.DELETE("/events/:id", manage, h.DeleteEvent)
		authed.GET("/events/:id/reservations", manage, h.EventReservations)
		authed.GET("/events/:id/statistics", manage, h.EventStatistics)
		authed.GET("/organizer/events", manage, h.OrganizerEvents)
		authed.GET("/organizer/statistics", manage, h.OrganizerStatistics)

		authed.POST("/events/:id/reservations", Require(model.CapReserve), h.CreateReservation)
		authed.GET("/reservations/mine", h.MyReservations)
		authed.GET("/reservations/code/:code", h.GetReservationByCode)
		authed.GET("/reservations/:id", h.GetReservation)
		authed.GET("/reservations/:id/summary", h.GetReservationSummary)
		authed.POST("/reservations/:id/confirm", h.ConfirmReservation)
		authed.POST("/reservations/:id/cancel", h.CancelReservation)
	}

	admin := authed.Group("/admin")
	{
		users := Require(model.CapManageUsers)
		admin.GET("/users", users, h.ListUsers)
		admin.GET("/users/:id/statistics", users, h.UserStatistics)
		admin.PATCH("/users/:id/role", users, h.ChangeUserRole)
		admin.POST("/users/:id/activate", users, h.ActivateUser)
		admin.POST("/users/:id/deactivate", users, h.DeactivateUser)

		stats := Require(model.CapViewAllStatistics)
		admin.GET("/reservations", stats, h.SearchReservations)
		admin.GET("/statistics", stats, h.GlobalStatistics)

		events := Require(model.CapManageAllEvents)
		admin.GET("/events", events, h.EventsByStatus)
		admin.POST("/events/finish", events, h.FinishEvents)
	}

	return r
}

func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.app.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}

	status := gin.H{"status": "ok", "database": "ok"}
	if h.app.Cache != nil {
		if err := h.app.Cache.Ping(); err != nil {
			status["cache"] = err.Error()
		} else {
			status["cache"] = "ok"
		}
	}
	c.JSON(http.StatusOK, status)
}
