package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/service"
)

func (h *HTTPHandler) AdminListUsers(c *gin.Context) {
	filter := service.UserFilter{Query: c.Query("q")}
	if raw := c.Query("status"); raw != "" && raw != "all" {
		status, err := domain.ParseUserStatus(raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		filter.Status = status
	}

	users, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *HTTPHandler) AdminCreateUser(c *gin.Context) {
	var in service.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	user, err := h.users.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// AdminUpdateUser takes the account email from the path; an email in the
// body is ignored.
func (h *HTTPHandler) AdminUpdateUser(c *gin.Context) {
	var in service.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("email"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *HTTPHandler) AdminDeactivateUser(c *gin.Context) {
	user, err := h.users.Deactivate(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
