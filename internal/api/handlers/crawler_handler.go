package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sp2025/darkwatch/internal/models"
	"github.com/sp2025/darkwatch/internal/services"
)

type CrawlerHandler struct {
	service *services.CrawlerService
}

func NewCrawlerHandler(service *services.CrawlerService) *CrawlerHandler {
	return &CrawlerHandler{service: service}
}

func (h *CrawlerHandler) ListProfiles(c *gin.Context) {
	profiles, err := h.service.ListProfiles(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list crawler profiles")
		return
	}
	if profiles == nil {
		profiles = []models.CrawlerProfile{}
	}
	c.JSON(http.StatusOK, profiles)
}

func (h *CrawlerHandler) GetProfile(c *gin.Context) {
	p, err := h.service.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to get crawler profile")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *CrawlerHandler) CreateProfile(c *gin.Context) {
	var p models.CrawlerProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		badJSON(c, err)
		return
	}
	if err := h.service.CreateProfile(c.Request.Context(), &p); err != nil {
		respondError(c, err, "Failed to create crawler profile")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *CrawlerHandler) UpdateProfile(c *gin.Context) {
	var p models.CrawlerProfile
	if err := c.ShouldBindJSON(&p); err != nil {
		badJSON(c, err)
		return
	}
	updated, err := h.service.UpdateProfile(c.Request.Context(), c.Param("id"), &p)
	if err != nil {
		respondError(c, err, "Failed to update crawler profile")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CrawlerHandler) ListSchedules(c *gin.Context) {
	jobs, err := h.service.ListSchedules(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list schedules")
		return
	}
	if jobs == nil {
		jobs = []models.ScheduleJob{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *CrawlerHandler) CreateSchedule(c *gin.Context) {
	var job models.ScheduleJob
	if err := c.ShouldBindJSON(&job); err != nil {
		badJSON(c, err)
		return
	}
	if err := h.service.CreateSchedule(c.Request.Context(), &job); err != nil {
		respondError(c, err, "Failed to create schedule")
		return
	}
	c.JSON(http.StatusCreated, job)
}

func (h *CrawlerHandler) UpdateSchedule(c *gin.Context) {
	var job models.ScheduleJob
	if err := c.ShouldBindJSON(&job); err != nil {
		badJSON(c, err)
		return
	}
	updated, err := h.service.UpdateSchedule(c.Request.Context(), c.Param("id"), &job)
	if err != nil {
		respondError(c, err, "Failed to update schedule")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *CrawlerHandler) RunSchedule(c *gin.Context) {
	entry, err := h.service.RunSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to start job")
		return
	}
	c.JSON(http.StatusAccepted, entry)
}

func (h *CrawlerHandler) ListJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	jobs, err := h.service.ListJobs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to list jobs")
		return
	}
	if jobs == nil {
		jobs = []models.JobHistory{}
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *CrawlerHandler) CancelJob(c *gin.Context) {
	job, err := h.service.CancelJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel job")
		return
	}
	c.JSON(http.StatusOK, job)
}

// CompleteJob is the worker callback reporting a job outcome.
func (h *CrawlerHandler) CompleteJob(c *gin.Context) {
	var body struct {
		Success *bool `json:"success" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badJSON(c, err)
		return
	}
	job, err := h.service.CompleteJob(c.Request.Context(), c.Param("id"), *body.Success)
	if err != nil {
		respondError(c, err, "Failed to complete job")
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *CrawlerHandler) ListWorkers(c *gin.Context) {
	workers, totals, err := h.service.ListWorkers(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list workers")
		return
	}
	if workers == nil {
		workers = []models.WorkerStatus{}
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers, "totals": totals})
}

// ReportWorker is the worker heartbeat.
func (h *CrawlerHandler) ReportWorker(c *gin.Context) {
	var w models.WorkerStatus
	if err := c.ShouldBindJSON(&w); err != nil {
		badJSON(c, err)
		return
	}
	if err := h.service.ReportWorker(c.Request.Context(), &w); err != nil {
		respondError(c, err, "Failed to record worker heartbeat")
		return
	}
	c.JSON(http.StatusOK, w)
}
