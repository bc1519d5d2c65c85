package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/auth"
	"canteen/internal/meal"
	"canteen/internal/queue"
	"canteen/internal/scanner"
)

// ---------- Scan ----------

type scanRequest struct {
	QRCode   string `json:"qr_code" binding:"required"`
	DeviceID string `json:"device_id" binding:"required"`
}

// Scan validates a scanned code and returns the access decision. Business
// denials come back as 200 responses with a discriminating field; only
// infrastructure failures produce 5xx.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims := auth.FromContext(c)
	resp, err := h.scans.Scan(c.Request.Context(), scanner.Request{
		Code:     req.QRCode,
		DeviceID: req.DeviceID,
		Role:     claims.Role,
		At:       time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("scan failed", "device", req.DeviceID, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "scan temporarily unavailable"})
		return
	}

	if resp.AccessGranted && resp.LogID != "" {
		if err := h.queue.Publish(c.Request.Context(), queue.Message{Type: queue.TypeScan, Body: []byte(resp.LogID)}); err != nil {
			h.log.Warn("queue publish failed", "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"access_granted":    resp.AccessGranted,
		"duplicate_scan":    resp.DuplicateScan,
		"requires_approval": resp.RequiresApproval,
		"approval_token":    resp.ApprovalToken,
		"meal_type":         resp.MealType,
		"message":           resp.Message,
		"student":           resp.Student,
		"order":             resp.Order,
	})
}

// ---------- Manual approval ----------

type approvalRequest struct {
	Token    string `json:"approval_token" binding:"required"`
	Approved *bool  `json:"approved" binding:"required"`
	MealType string `json:"meal_type"`
	DeviceID string `json:"device_id"`
}

// ManualApproval resolves a pending out-of-window scan.
func (h *Handler) ManualApproval(c *gin.Context) {
	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var mealType meal.Type
	if req.MealType != "" {
		m, err := meal.Parse(req.MealType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mealType = m
	}

	claims := auth.FromContext(c)
	resp, err := h.scans.Approve(c.Request.Context(), scanner.Approval{
		Token:    req.Token,
		Approved: *req.Approved,
		MealType: mealType,
		DeviceID: req.DeviceID,
		Role:     claims.Role,
		At:       time.Now().UTC(),
	})
	if err != nil {
		h.log.Error("approval failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "approval temporarily unavailable"})
		return
	}

	if resp.AccessGranted && resp.LogID != "" {
		if err := h.queue.Publish(c.Request.Context(), queue.Message{Type: queue.TypeScan, Body: []byte(resp.LogID)}); err != nil {
			h.log.Warn("queue publish failed", "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"access_granted": resp.AccessGranted,
		"meal_type":      resp.MealType,
		"message":        resp.Message,
		"student":        resp.Student,
		"order":          resp.Order,
	})
}

// ---------- Recent scans ----------

// RecentScans returns the newest scan rows plus live stats for the meal in
// progress; the scanner UI polls this.
func (h *Handler) RecentScans(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	logs, stats, err := h.scans.RecentScans(c.Request.Context(), limit, time.Now().UTC())
	if err != nil {
		h.log.Error("recent scans failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recent scans unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"scans": logs,
		"stats": gin.H{
			"expectedToCome": stats.ExpectedToCome,
			"served":         stats.Served,
			"mealType":       stats.MealType,
		},
	})
}
