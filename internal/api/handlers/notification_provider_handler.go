package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
	"github.com/sp2025/darkwatch/internal/util"
)

type NotificationProviderHandler struct {
	service *services.NotificationService
}

func NewNotificationProviderHandler(service *services.NotificationService) *NotificationProviderHandler {
	return &NotificationProviderHandler{service: service}
}

func (h *NotificationProviderHandler) List(c *gin.Context) {
	providers, err := h.service.ListProviders()
	if err != nil {
		respondError(c, err, "Failed to list providers")
		return
	}
	if providers == nil {
		providers = []models.NotificationProvider{}
	}
	c.JSON(http.StatusOK, providers)
}

func (h *NotificationProviderHandler) Create(c *gin.Context) {
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		badJSON(c, err)
		return
	}
	provider.ID = ""
	if err := h.service.CreateProvider(&provider); err != nil {
		respondError(c, err, "Failed to create provider")
		return
	}
	c.JSON(http.StatusCreated, provider)
}

func (h *NotificationProviderHandler) Update(c *gin.Context) {
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		badJSON(c, err)
		return
	}
	provider.ID = c.Param("id")
	if err := h.service.UpdateProvider(&provider); err != nil {
		respondError(c, err, "Failed to update provider")
		return
	}
	c.JSON(http.StatusOK, provider)
}

func (h *NotificationProviderHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteProvider(c.Param("id")); err != nil {
		respondError(c, err, "Failed to delete provider")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Provider deleted"})
}

func (h *NotificationProviderHandler) Test(c *gin.Context) {
	var provider models.NotificationProvider
	if err := c.ShouldBindJSON(&provider); err != nil {
		badJSON(c, err)
		return
	}

	if err := h.service.TestProvider(provider); err != nil {
		msg := fmt.Sprintf("Provider %s test failed: %v", util.SanitizeForLog(provider.Name), err)
		_, _ = h.service.Create(models.NotificationTypeError, models.NotificationCategorySystem, "Test Failed", msg)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Test notification sent"})
}
