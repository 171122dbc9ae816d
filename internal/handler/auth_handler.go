package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/eventpro/internal/model"
	"github.com/qs-lzh/eventpro/internal/service/domain"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	Current string `json:"current_password" binding:"required"`
	New     string `json:"new_password" binding:"required"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *Handler) Register(c *gin.Context) {
	var req domain.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	user, err := h.app.UserService.Register(req)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.app.Tokens.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tokenResponse{Token: token, User: user})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	user, ok, err := h.app.UserService.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	token, err := h.app.Tokens.Issue(user)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokenResponse{Token: token, User: user})
}

type meResponse struct {
	*model.User
	Capabilities []model.Capability `json:"capabilities"`
}

func (h *Handler) Me(c *gin.Context) {
	user := currentUser(c)
	c.JSON(http.StatusOK, meResponse{User: user, Capabilities: user.Role.Capabilities()})
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req domain.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	user, err := h.app.UserService.UpdateProfile(currentUser(c).ID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request format: "+err.Error())
		return
	}

	if err := h.app.UserService.ChangePassword(currentUser(c).ID, req.Current, req.New); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MyStatistics(c *gin.Context) {
	stats, err := h.app.ReservationService.GetUserStatistics(currentUser(c).ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
