package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/services"
)

type SensitivityHandler struct {
	service *services.SensitivityService
}

func NewSensitivityHandler(service *services.SensitivityService) *SensitivityHandler {
	return &SensitivityHandler{service: service}
}

func (h *SensitivityHandler) Get(c *gin.Context) {
	cfg, err := h.service.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load sensitivity")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Update accepts {"gamma": <number or numeric string>}.
func (h *SensitivityHandler) Update(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badJSON(c, err)
		return
	}
	var body map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		badJSON(c, err)
		return
	}

	gamma, err := services.CoerceGamma(body["gamma"])
	if err != nil {
		respondError(c, err, "Failed to save sensitivity")
		return
	}
	cfg, err := h.service.Save(c.Request.Context(), gamma)
	if err != nil {
		respondError(c, err, "Failed to save sensitivity")
		return
	}
	c.JSON(http.StatusOK, cfg)
}
