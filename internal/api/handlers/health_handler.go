package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/sp2025/darkwatch/internal/version"
)

type healthResponse struct {
	version.Info
	Status   string `json:"status"`
	Database string `json:"database"`
}

// HealthHandler reports build metadata and whether the database answers.
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := healthResponse{Info: version.Current(), Status: "ok", Database: "ok"}
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			code, resp.Status, resp.Database = http.StatusServiceUnavailable, "degraded", "unavailable"
		}
		c.JSON(code, resp)
	}
}
