package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/api/middleware"
	"github.com/sp2025/darkwatch/internal/services"
)

var notFoundErrors = []error{
	services.ErrRuleNotFound,
	services.ErrAlertNotFound,
	services.ErrCrawlerNotFound,
	services.ErrScheduleNotFound,
	services.ErrJobNotFound,
	services.ErrProviderNotFound,
	services.ErrNotificationNotFound,
}

var badRequestErrors = []error{
	services.ErrInvalidAlertStatus,
	services.ErrInvalidSchedule,
	services.ErrInvalidNotifyAddress,
}

// respondError maps service errors onto status codes. Unknown errors are
// logged and hidden behind fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
		return
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, gin.H{"error": target.Error()})
			return
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if errors.Is(err, services.ErrJobNotCancelable) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	middleware.GetRequestLogger(c).WithError(err).Error(fallback)
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

func badJSON(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}
