package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/repository"
	"github.com/qs-lzh/eventpro/internal/service/workflow"
)

type ChangeRoleRequest struct {
	Role model.UserRole `json:"role" binding:"required"`
}

type reservationQuery struct {
	Keyword string                  `form:"keyword"`
	Status  model.ReservationStatus `form:"status"`
	UserID  uint                    `form:"user_id"`
	EventID uint                    `form:"event_id"`
	From    time.Time               `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To      time.Time               `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Days    int                     `form:"days"`
	Limit   int                     `form:"limit"`
	Offset  int                     `form:"offset"`
}

// ListUsers searches by keyword when q is set, otherwise filters by role.
func (h *Handler) ListUsers(c *gin.Context) {
	var (
		users []model.User
		err   error
	)
	switch {
	case c.Query("q") != "":
		users, err = h.app.UserService.SearchUsers(c.Query("q"))
	case c.Query("role") != "":
		role := model.UserRole(c.Query("role"))
		if !role.Valid() {
			badRequest(c, "unknown role")
			return
		}
		users, err = h.app.UserService.GetUsersByRole(role, c.Query("active") == "true")
	default:
		users, err = h.app.UserService.GetAllUsers()
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) UserStatistics(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	stats, err := h.app.UserService.GetUserStatistics(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) ChangeUserRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	user, err := h.app.UserService.ChangeRole(id, req.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	user, err := h.app.UserService.SetActive(id, active)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SearchReservations returns the last days of reservations when days is
// set, otherwise a filtered page.
func (h *Handler) SearchReservations(c *gin.Context) {
	var q reservationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	if q.Status != "" && !q.Status.Valid() {
		badRequest(c, "unknown status")
		return
	}

	if q.Days > 0 {
		reservations, err := h.app.ReservationService.GetRecentReservations(q.Days)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, listResponse[model.Reservation]{Items: reservations, Total: int64(len(reservations))})
		return
	}

	filter := repository.ReservationFilter{
		Keyword: q.Keyword,
		Status:  q.Status,
		UserID:  q.UserID,
		EventID: q.EventID,
	}
	if !q.From.IsZero() {
		filter.From = &q.From
	}
	if !q.To.IsZero() {
		filter.To = &q.To
	}

	reservations, total, err := h.app.ReservationService.SearchReservations(filter, repository.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse[model.Reservation]{Items: reservations, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func (h *Handler) GlobalStatistics(c *gin.Context) {
	events, err := h.app.EventService.GetGlobalStatistics()
	if err != nil {
		writeError(c, err)
		return
	}
	reservations, err := h.app.ReservationService.GetGlobalStatistics()
	if err != nil {
		writeError(c, err)
		return
	}
	users, err := h.app.UserService.GetGlobalStatistics()
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events":       events,
		"reservations": reservations,
		"users":        users,
	})
}

func (h *Handler) EventsByStatus(c *gin.Context) {
	status := model.EventStatus(c.DefaultQuery("status", string(model.EventStatusPublished)))
	if !status.Valid() {
		badRequest(c, "unknown status")
		return
	}

	events, err := h.app.EventService.GetEventsByStatus(status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) FinishEvents(c *gin.Context) {
	n, err := h.app.EventWorkflow.FinishEvents()
	if errors.Is(err, workflow.ErrSweepRunning) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"finished": n})
}
