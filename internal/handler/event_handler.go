package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/repository"
	"github.com/qs-lzh/eventpro/internal/service"
	"github.com/qs-lzh/eventpro/internal/service/domain"
)

const defaultPopularLimit = 10

type eventQuery struct {
	Keyword  string              `form:"keyword"`
	Category model.EventCategory `form:"category"`
	City     string              `form:"city"`
	Status   model.EventStatus   `form:"status"`
	MinPrice *float64            `form:"min_price"`
	MaxPrice *float64            `form:"max_price"`
	From     time.Time           `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To       time.Time           `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit    int                 `form:"limit"`
	Offset   int                 `form:"offset"`
}

type listResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// SearchEvents lists published or finished events; drafts and cancelled
// events are only visible to their organizers.
func (h *Handler) SearchEvents(c *gin.Context) {
	var q eventQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "invalid query: "+err.Error())
		return
	}
	if q.Category != "" && !q.Category.Valid() {
		badRequest(c, "unknown category")
		return
	}
	switch q.Status {
	case "":
		q.Status = model.EventStatusPublished
	case model.EventStatusPublished, model.EventStatusFinished:
	default:
		badRequest(c, "status must be PUBLISHED or FINISHED")
		return
	}

	filter := repository.EventFilter{
		Keyword:  q.Keyword,
		Category: q.Category,
		City:     q.City,
		Status:   q.Status,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
	}
	if !q.From.IsZero() {
		filter.From = &q.From
	}
	if !q.To.IsZero() {
		filter.To = &q.To
	}
	page := repository.Page{Limit: q.Limit, Offset: q.Offset}

	events, total, err := h.app.EventService.SearchEvents(filter, page)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse[model.EventView]{Items: events, Total: total, Limit: q.Limit, Offset: q.Offset})
}

func (h *Handler) PopularEvents(c *gin.Context) {
	limit := defaultPopularLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "invalid limit")
			return
		}
		limit = n
	}

	events, err := h.app.EventService.GetMostPopularEvents(limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) AvailableEvents(c *gin.Context) {
	events, err := h.app.EventService.GetAvailableEvents()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) EventsByCategory(c *gin.Context) {
	category := model.EventCategory(c.Param("category"))
	if !category.Valid() {
		badRequest(c, "unknown category")
		return
	}

	events, err := h.app.EventService.GetPublishedEventsByCategory(category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) EventsByCity(c *gin.Context) {
	events, err := h.app.EventService.GetUpcomingEventsByCity(c.Param("city"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	event, err := h.app.EventService.GetEventByID(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if event.Status == model.EventStatusDraft {
		writeError(c, service.NotFound("event %d not found", id))
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	var req domain.EventDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	event, err := h.app.EventService.CreateEvent(req, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (h *Handler) UpdateEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req domain.EventDetails
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	event, err := h.app.EventService.UpdateEvent(id, req, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handler) PublishEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	event, err := h.app.EventWorkflow.Publish(id, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handler) CancelEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	event, err := h.app.EventWorkflow.Cancel(id, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.app.EventService.DeleteEvent(id, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// managedEvent loads the event named by the id param and checks that the
// current user may manage it.
func (h *Handler) managedEvent(c *gin.Context) (*model.EventView, bool) {
	id, ok := idParam(c, "id")
	if !ok {
		return nil, false
	}
	event, err := h.app.EventService.GetEventByID(id)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	user := currentUser(c)
	if !user.Role.Can(model.CapManageAllEvents) && !event.IsOwnedBy(user.ID) {
		writeError(c, service.Forbidden("you can only view your own events"))
		return nil, false
	}
	return event, true
}

func (h *Handler) EventReservations(c *gin.Context) {
	event, ok := h.managedEvent(c)
	if !ok {
		return
	}
	status := model.ReservationStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		badRequest(c, "unknown status")
		return
	}

	reservations, err := h.app.ReservationService.GetEventReservations(event.ID, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

func (h *Handler) EventStatistics(c *gin.Context) {
	event, ok := h.managedEvent(c)
	if !ok {
		return
	}

	stats, err := h.app.ReservationService.GetEventStatistics(event.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) OrganizerEvents(c *gin.Context) {
	events, err := h.app.EventService.GetEventsByOrganizer(currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) OrganizerStatistics(c *gin.Context) {
	stats, err := h.app.EventService.GetOrganizerStatistics(currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
