package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"canteen/internal/student"
)

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	limit, offset := pagination(c)
	students, err := h.students.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error("list students failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list students failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

type createStudentRequest struct {
	RegisterNumber string `json:"register_number" binding:"required"`
	Name           string `json:"name" binding:"required"`
	UserType       string `json:"user_type"`
	Department     string `json:"department"`
	PhotoURL       string `json:"photo_url"`
}

// CreateStudent enrols a diner; the QR token is minted here and returned
// exactly once in this response body.
func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s, err := h.students.Create(c.Request.Context(), req.RegisterNumber, req.Name,
		student.UserType(req.UserType), req.Department, req.PhotoURL)
	if err != nil {
		if errors.Is(err, student.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) GetStudent(c *gin.Context) {
	s, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.log.Error("get student failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get student failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

type updateStudentRequest struct {
	Name       string `json:"name" binding:"required"`
	Department string `json:"department"`
	PhotoURL   string `json:"photo_url"`
}

// UpdateStudent changes profile fields; register number and QR token are
// immutable.
func (h *Handler) UpdateStudent(c *gin.Context) {
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := h.students.UpdateProfile(c.Request.Context(), id, req.Name, req.Department, req.PhotoURL); err != nil {
		if errors.Is(err, student.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		h.log.Error("update student failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update student failed"})
		return
	}
	s, err := h.students.Get(c.Request.Context(), id)
	if err != nil {
		h.log.Error("get student failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get student failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}
