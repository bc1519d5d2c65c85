package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/billing"
	"canteen/internal/meal"
)

// ---------- Packages ----------

func (h *Handler) ListPackages(c *gin.Context) {
	pkgs, err := h.billing.ListPackages(c.Request.Context())
	if err != nil {
		h.log.Error("list packages failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list packages failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"packages": pkgs})
}

type createPackageRequest struct {
	Name         string   `json:"name" binding:"required"`
	DurationDays int      `json:"duration_days" binding:"required"`
	Price        float64  `json:"price"`
	Meals        []string `json:"meals_included" binding:"required"`
}

func (h *Handler) CreatePackage(c *gin.Context) {
	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meals := meal.Set{}
	for _, raw := range req.Meals {
		m, err := meal.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		meals[m] = true
	}

	pkg, err := h.billing.CreatePackage(c.Request.Context(), req.Name, req.DurationDays, req.Price, meals)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

// ---------- Subscriptions ----------

func (h *Handler) ListSubscriptions(c *gin.Context) {
	status := billing.Status(c.Query("status"))
	limit, offset := pagination(c)
	subs, err := h.billing.ListSubscriptions(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.log.Error("list subscriptions failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list subscriptions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

type createSubscriptionRequest struct {
	StudentID string `json:"student_id" binding:"required"`
	PackageID string `json:"package_id" binding:"required"`
	Facility  string `json:"facility"`
	StartDate string `json:"start_date" binding:"required"`
}

func (h *Handler) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}

	sub, err := h.billing.CreateSubscription(c.Request.Context(), req.StudentID, req.PackageID, req.Facility, start)
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "package not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, sub)
}

func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.billing.GetSubscription(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, billing.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
			return
		}
		h.log.Error("get subscription failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get subscription failed"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

type subscriptionStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateSubscriptionStatus(c *gin.Context) {
	var req subscriptionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.billing.SetStatus(c.Request.Context(), c.Param("id"), billing.Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		case errors.Is(err, billing.ErrBadTransition):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.log.Error("subscription status change failed", "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status change failed"})
		}
		return
	}
	c.JSON(http.StatusOK, sub)
}
