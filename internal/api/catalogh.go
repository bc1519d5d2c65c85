package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/catalog"
	"canteen/internal/meal"
	"canteen/internal/mealplan"
)

// ---------- Vendors ----------

func (h *Handler) ListVendors(c *gin.Context) {
	vendors, err := h.catalog.ListVendors(c.Request.Context())
	if err != nil {
		h.log.Error("list vendors failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list vendors failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

func (h *Handler) UpsertVendor(c *gin.Context) {
	var v catalog.Vendor
	if err := c.ShouldBindJSON(&v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.catalog.UpsertVendor(c.Request.Context(), v)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

// ---------- Items ----------

func (h *Handler) ListItems(c *gin.Context) {
	lowOnly := c.Query("low_stock") == "true"
	items, err := h.catalog.ListItems(c.Request.Context(), lowOnly)
	if err != nil {
		h.log.Error("list items failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list items failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) UpsertItem(c *gin.Context) {
	var it catalog.Item
	if err := c.ShouldBindJSON(&it); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out, err := h.catalog.UpsertItem(c.Request.Context(), it)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}

type stockRequest struct {
	Delta float64 `json:"delta" binding:"required"`
}

// AdjustStock applies a signed delta; a result below zero is rejected.
func (h *Handler) AdjustStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.catalog.AdjustStock(c.Request.Context(), c.Param("id"), req.Delta); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	item, err := h.catalog.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Error("get item failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get item failed"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// ---------- Dishes ----------

type upsertDishRequest struct {
	Name        string               `json:"name" binding:"required"`
	MealType    string               `json:"meal_type" binding:"required"`
	ServingSize string               `json:"serving_size"`
	Recipe      []catalog.RecipeLine `json:"recipe"`
}

func (h *Handler) UpsertDish(c *gin.Context) {
	var req upsertDishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mt, err := meal.Parse(req.MealType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dish, err := h.catalog.UpsertDish(c.Request.Context(), req.Name, mt, req.ServingSize, req.Recipe)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, dish)
}

func (h *Handler) GetDish(c *gin.Context) {
	dish, err := h.catalog.GetDish(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "dish not found"})
			return
		}
		h.log.Error("get dish failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get dish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dish": dish, "cost": dish.Cost()})
}

func (h *Handler) ListDishes(c *gin.Context) {
	dishes, err := h.catalog.ListDishes(c.Request.Context())
	if err != nil {
		h.log.Error("list dishes failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list dishes failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dishes": dishes})
}

// ---------- Meal plans ----------

func (h *Handler) ListMealPlans(c *gin.Context) {
	day, err := queryDate(c, "date")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plans, err := h.plans.ListByDate(c.Request.Context(), day)
	if err != nil {
		h.log.Error("list meal plans failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list meal plans failed"})
		return
	}
	headcount, err := h.planner.PlannedHeadcount(c.Request.Context(), day)
	if err != nil {
		h.log.Error("planned headcount failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "planned headcount failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "planned_headcount": headcount})
}

type upsertPlanRequest struct {
	PlanDate   string `json:"plan_date" binding:"required"`
	MealType   string `json:"meal_type" binding:"required"`
	DishID     string `json:"dish_id" binding:"required"`
	PlannedQty int    `json:"planned_qty"`
}

func (h *Handler) UpsertMealPlan(c *gin.Context) {
	var req upsertPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	day, err := time.Parse("2006-01-02", req.PlanDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan_date must be YYYY-MM-DD"})
		return
	}
	mt, err := meal.Parse(req.MealType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	plan, err := h.plans.Upsert(c.Request.Context(), mealplan.Plan{
		PlanDate:   day,
		MealType:   mt,
		DishID:     req.DishID,
		PlannedQty: req.PlannedQty,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *Handler) DeleteMealPlan(c *gin.Context) {
	if err := h.plans.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
