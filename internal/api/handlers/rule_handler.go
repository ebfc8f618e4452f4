package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
	"github.com/sp2025/darkwatch/internal/severity"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// RuleHandler serves the active keyword rule manager.
type RuleHandler struct {
	rules *services.RuleService
	audit *services.AuditService
}

func NewRuleHandler(rules *services.RuleService, audit *services.AuditService) *RuleHandler {
	return &RuleHandler{rules: rules, audit: audit}
}

func (h *RuleHandler) List(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list rules")
		return
	}
	if rules == nil {
		rules = []models.ActiveKeywordRule{}
	}
	c.JSON(http.StatusOK, rules)
}

func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (h *RuleHandler) Create(c *gin.Context) {
	var in models.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, "Failed to create rule")
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (h *RuleHandler) Update(c *gin.Context) {
	var in models.RuleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c, err)
		return
	}
	rule, err := h.rules.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err, "Failed to update rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

// Rubric returns the scoring guide shown next to the rule form.
func (h *RuleHandler) Rubric(c *gin.Context) {
	c.JSON(http.StatusOK, severity.Rubric())
}

func (h *RuleHandler) Audit(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	entries, err := h.audit.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to list audit entries")
		return
	}
	if entries == nil {
		entries = []models.RuleAudit{}
	}
	c.JSON(http.StatusOK, entries)
}
