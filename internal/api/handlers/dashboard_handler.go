package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/services"
)

type DashboardHandler struct {
	service *services.DashboardService
}

func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) Summary(c *gin.Context) {
	sum, err := h.service.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load dashboard summary")
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *DashboardHandler) Alerts(c *gin.Context) {
	var q services.AlertQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := h.service.Alerts(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "Failed to list alerts")
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *DashboardHandler) GetAlert(c *gin.Context) {
	alert, err := h.service.GetAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (h *DashboardHandler) SetAlertStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	alert, err := h.service.SetAlertStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		respondError(c, err, "Failed to update alert")
		return
	}
	c.JSON(http.StatusOK, alert)
}
