package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
	"github.com/sp2025/darkwatch/internal/severity"
)

func TestDashboardHandler(t *testing.T) {
	api := newTestAPI(t)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	alerts := []models.DashboardAlert{
		{TopicName: "Selling access", Keyword: "vpn", AITags: []string{"access"}, PostAt: now, Severity: severity.LevelCritical},
		{TopicName: "Dump", Keyword: "vpn", PostAt: now.Add(-time.Hour), Severity: severity.LevelMed},
	}
	for i := range alerts {
		require.NoError(t, api.db.Create(&alerts[i]).Error)
	}

	w := api.do(t, http.MethodGet, "/api/v1/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum services.DashboardSummary
	decode(t, w, &sum)
	assert.Equal(t, int64(1), sum.SeverityCounts[severity.LevelCritical])
	require.Len(t, sum.TopKeywords, 1)
	assert.Equal(t, int64(2), sum.TopKeywords[0].Count)

	w = api.do(t, http.MethodGet, "/api/v1/dashboard/alerts?q=access&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page services.AlertPage
	decode(t, w, &page)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 10, page.PageSize)

	w = api.do(t, http.MethodGet, "/api/v1/dashboard/alerts?page=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPut, "/api/v1/dashboard/alerts/"+alerts[1].ID+"/status", `{"status":"reviewed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var a models.DashboardAlert
	decode(t, w, &a)
	assert.Equal(t, models.AlertStatusReviewed, a.Status)

	w = api.do(t, http.MethodPut, "/api/v1/dashboard/alerts/"+alerts[1].ID+"/status", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/dashboard/alerts/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
