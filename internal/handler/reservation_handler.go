package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/service"
	"github.com/qs-lzh/eventpro/internal/service/domain"
)

func (h *Handler) CreateReservation(c *gin.Context) {
	eventID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req domain.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	reservation, err := h.app.ReservationWorkflow.Reserve(req, currentUser(c), eventID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

func (h *Handler) MyReservations(c *gin.Context) {
	user := currentUser(c)

	var (
		reservations []model.Reservation
		err          error
	)
	if c.Query("upcoming") == "true" {
		reservations, err = h.app.ReservationService.GetUpcomingReservations(user.ID)
	} else {
		reservations, err = h.app.ReservationService.GetUserReservations(user.ID)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// canView allows the holder, administrators and the organizer of the event.
func (h *Handler) canView(user *model.User, r *model.Reservation) (bool, error) {
	if r.UserID == user.ID || user.Role.Can(model.CapManageAllEvents) {
		return true, nil
	}
	if !user.Role.Can(model.CapManageOwnEvents) {
		return false, nil
	}
	event, err := h.app.EventRepo.GetByID(r.EventID)
	if err != nil {
		return false, service.NotFoundOr(err, "event", r.EventID)
	}
	return event.IsOwnedBy(user.ID), nil
}

func (h *Handler) writeReservation(c *gin.Context, r *model.Reservation) {
	ok, err := h.canView(currentUser(c), r)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		writeError(c, service.Forbidden("you can not view this reservation"))
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.app.ReservationService.GetReservationByID(id)
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeReservation(c, reservation)
}

func (h *Handler) GetReservationByCode(c *gin.Context) {
	reservation, err := h.app.ReservationService.GetReservationByCode(c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	h.writeReservation(c, reservation)
}

func (h *Handler) GetReservationSummary(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.app.ReservationService.GetReservationByID(id)
	if err != nil {
		writeError(c, err)
		return
	}
	allowed, err := h.canView(currentUser(c), reservation)
	if err != nil {
		writeError(c, err)
		return
	}
	if !allowed {
		writeError(c, service.Forbidden("you can not view this reservation"))
		return
	}

	summary, err := h.app.ReservationService.GetReservationSummary(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) ConfirmReservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.app.ReservationWorkflow.Confirm(id, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}

func (h *Handler) CancelReservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	reservation, err := h.app.ReservationWorkflow.Cancel(id, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reservation)
}
