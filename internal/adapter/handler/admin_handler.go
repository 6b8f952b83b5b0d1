package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/catrink/internal/core/domain"
	"github.com/rl1809/catrink/internal/core/service"
)

func (h *HTTPHandler) Dashboard(c *gin.Context) {
	stats, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *HTTPHandler) AdminListOrders(c *gin.Context) {
	filter := service.OrderFilter{Query: c.Query("q")}
	if raw := c.Query("status"); raw != "" && raw != "all" {
		status, err := domain.ParseOrderStatus(raw)
		if err != nil {
			h.fail(c, err)
			return
		}
		filter.Status = status
	}

	orders, err := h.ledger.SearchOrders(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *HTTPHandler) AdminGetOrder(c *gin.Context) {
	order, scope, err := h.ledger.FindOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "customerEmail": scope})
}

type statusUpdateRequest struct {
	Status   string `json:"status" binding:"required"`
	Location string `json:"location"`
}

func (h *HTTPHandler) AdminUpdateStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "status is required"})
		return
	}
	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}

	order, err := h.tracking.UpdateStatus(c.Request.Context(), c.Param("id"), status, req.Location)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *HTTPHandler) AdminSendUpdate(c *gin.Context) {
	if err := h.tracking.SendUpdate(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "update email queued"})
}

func (h *HTTPHandler) AdminAddProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	created, err := h.catalog.AddProduct(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *HTTPHandler) AdminUpdateProduct(c *gin.Context) {
	var p domain.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	updated, err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), p)
	h.respondChanged(c, updated, err, service.ErrProductNotFound)
}

func (h *HTTPHandler) AdminDeleteProduct(c *gin.Context) {
	deleted, err := h.catalog.DeleteProduct(c.Request.Context(), c.Param("id"))
	h.respondChanged(c, deleted, err, service.ErrProductNotFound)
}

func (h *HTTPHandler) AdminAddFlavor(c *gin.Context) {
	var f domain.Flavor
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	created, err := h.catalog.AddFlavor(c.Request.Context(), f)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *HTTPHandler) AdminUpdateFlavor(c *gin.Context) {
	var f domain.Flavor
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	updated, err := h.catalog.UpdateFlavor(c.Request.Context(), c.Param("id"), f)
	h.respondChanged(c, updated, err, service.ErrFlavorNotFound)
}

func (h *HTTPHandler) AdminDeleteFlavor(c *gin.Context) {
	deleted, err := h.catalog.DeleteFlavor(c.Request.Context(), c.Param("id"))
	h.respondChanged(c, deleted, err, service.ErrFlavorNotFound)
}

func (h *HTTPHandler) AdminListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, coupons)
}

func (h *HTTPHandler) AdminCreateCoupon(c *gin.Context) {
	var coupon domain.Coupon
	if err := c.ShouldBindJSON(&coupon); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	created, err := h.coupons.Create(c.Request.Context(), coupon)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *HTTPHandler) AdminUpdateCoupon(c *gin.Context) {
	var coupon domain.Coupon
	if err := c.ShouldBindJSON(&coupon); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	updated, err := h.coupons.Update(c.Request.Context(), c.Param("id"), coupon)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *HTTPHandler) AdminDeleteCoupon(c *gin.Context) {
	if err := h.coupons.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *HTTPHandler) AdminGetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *HTTPHandler) AdminUpdateSettings(c *gin.Context) {
	var settings domain.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	saved, err := h.settings.Update(c.Request.Context(), settings)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// respondChanged reports catalog writes that succeed silently when the
// target is missing: the store is left alone and the caller gets a 404.
func (h *HTTPHandler) respondChanged(c *gin.Context, changed bool, err error, notFound error) {
	if err == nil && !changed {
		err = notFound
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
