package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
)

func TestCrawlerHandler_Flow(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/crawler/profiles", `{"name":"xss","allow_domains":["XSS.is, exploit.in"],"alert_to":"soc@example.com"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var profile models.CrawlerProfile
	decode(t, w, &profile)
	assert.Equal(t, []string{"xss.is", "exploit.in"}, profile.AllowDomains)

	w = api.do(t, http.MethodPost, "/api/v1/crawler/profiles", `{"allow_domains":[]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var verr struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, w, &verr)
	assert.Contains(t, verr.Fields, "name")

	w = api.do(t, http.MethodPost, "/api/v1/crawler/schedules", map[string]interface{}{
		"name":          "every 30m",
		"crawler_id":    profile.ID,
		"enabled":       true,
		"schedule_mode": "INTERVAL",
		"interval":      map[string]interface{}{"every": 30, "period": "minutes"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sched models.ScheduleJob
	decode(t, w, &sched)
	assert.NotNil(t, sched.NextRun)

	w = api.do(t, http.MethodPost, "/api/v1/crawler/schedules", `{"name":"bad","crawler_id":"`+profile.ID+`","schedule_mode":"CRONTAB","crontab":{"minute":"77"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/crawler/schedules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var schedules []models.ScheduleJob
	decode(t, w, &schedules)
	require.Len(t, schedules, 1)

	w = api.do(t, http.MethodPost, "/api/v1/crawler/schedules/"+sched.ID+"/run", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	var job models.JobHistory
	decode(t, w, &job)
	assert.Equal(t, models.JobStatusRunning, job.Status)

	w = api.do(t, http.MethodPost, "/api/v1/crawler/jobs/"+job.JobID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodPost, "/api/v1/crawler/jobs/"+job.JobID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = api.do(t, http.MethodPost, "/api/v1/crawler/jobs/"+job.JobID+"/complete", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = api.do(t, http.MethodPost, "/api/v1/crawler/jobs/nope/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/crawler/jobs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var jobs []models.JobHistory
	decode(t, w, &jobs)
	require.Len(t, jobs, 1)
	assert.Equal(t, models.JobStatusCanceled, jobs[0].Status)
}

func TestCrawlerHandler_Workers(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/crawler/workers", `{"worker":"celery@w1","status":"Online","active":1,"processed":4,"succeeded":3,"failed":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/v1/crawler/workers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Workers []models.WorkerStatus `json:"workers"`
		Totals  services.WorkerTotals `json:"totals"`
	}
	decode(t, w, &body)
	require.Len(t, body.Workers, 1)
	assert.Equal(t, 4, body.Totals.Processed)
}
