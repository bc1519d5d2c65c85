package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ---------- System config ----------

// GetConfig returns the raw key/value view with defaults filled in.
func (h *Handler) GetConfig(c *gin.Context) {
	raw, err := h.sysconfig.Raw(c.Request.Context())
	if err != nil {
		h.log.Error("load config failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load config failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": raw})
}

type putConfigRequest struct {
	Key   string `json:"key" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// PutConfig writes a key; values that would break the typed snapshot are
// rejected before they reach storage.
func (h *Handler) PutConfig(c *gin.Context) {
	var req putConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.sysconfig.Update(c.Request.Context(), req.Key, req.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": req.Key})
}
