package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"canteen/internal/meal"
	"canteen/internal/order"
)

// ---------- Orders ----------

func (h *Handler) ListOrders(c *gin.Context) {
	limit, offset := pagination(c)
	orders, err := h.orders.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("list orders failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list orders failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type createOrderRequest struct {
	MealType string       `json:"meal_type" binding:"required"`
	Items    []order.Item `json:"items" binding:"required"`
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mt, err := meal.Parse(req.MealType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.orders.Create(c.Request.Context(), mt, req.Items)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.log.Error("get order failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get order failed"})
		return
	}
	c.JSON(http.StatusOK, o)
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TransitionOrder moves an order along its lifecycle. The coupon code is
// minted when a paid order is confirmed and appears in this response.
func (h *Handler) TransitionOrder(c *gin.Context) {
	var req orderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, err := h.orders.Transition(c.Request.Context(), c.Param("id"), order.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, order.ErrBadTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.log.Error("order transition failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order transition failed"})
		}
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) PayOrder(c *gin.Context) {
	id := c.Param("id")
	if err := h.orders.MarkPaid(c.Request.Context(), id); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		h.log.Error("mark paid failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "mark paid failed"})
		return
	}
	o, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("get order failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get order failed"})
		return
	}
	c.JSON(http.StatusOK, o)
}
