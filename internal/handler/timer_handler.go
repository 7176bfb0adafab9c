package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"teamboard/backend/internal/middleware"
	"teamboard/backend/internal/service"
)

type TimerHandler struct {
	timerService *service.TimerService
}

type startRequest struct {
	Projects []string `json:"projects"`
	Task     string   `json:"task"`
}

type manualLogRequest struct {
	Projects  []string   `json:"projects"`
	Task      string     `json:"task"`
	Duration  int        `json:"duration"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

type updateEntryRequest struct {
	Projects  *[]string  `json:"projects"`
	Task      *string    `json:"task"`
	Status    *string    `json:"status"`
	Overtime  *bool      `json:"overtime"`
	Duration  *int       `json:"duration"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
}

func NewTimerHandler(timerService *service.TimerService) *TimerHandler {
	return &TimerHandler{timerService: timerService}
}

func (h *TimerHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.Start(c.Request.Context(), userID, req.Projects, req.Task)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.Pause(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeEntryOrNull(c, entry)
}

func (h *TimerHandler) Resume(c *gin.Context) {
	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.Resume(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeEntryOrNull(c, entry)
}

func (h *TimerHandler) Stop(c *gin.Context) {
	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.Stop(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeEntryOrNull(c, entry)
}

func (h *TimerHandler) DayEnd(c *gin.Context) {
	userID := middleware.UserID(c)
	result, apiErr := h.timerService.DayEnd(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *TimerHandler) Active(c *gin.Context) {
	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.ActiveEntry(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	writeEntryOrNull(c, entry)
}

func (h *TimerHandler) ListEntries(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	userID := middleware.UserID(c)
	entries, apiErr := h.timerService.ListEntries(c.Request.Context(), userID, from, to)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *TimerHandler) LogManual(c *gin.Context) {
	var req manualLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.LogManual(c.Request.Context(), userID, service.ManualLogInput{
		Projects:  req.Projects,
		Task:      req.Task,
		Duration:  req.Duration,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (h *TimerHandler) UpdateEntry(c *gin.Context) {
	var req updateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{"code": "invalid_json", "message": "invalid request body"},
		})
		return
	}

	userID := middleware.UserID(c)
	entry, apiErr := h.timerService.Update(c.Request.Context(), userID, c.Param("id"), service.UpdatePatch{
		Projects:  req.Projects,
		Task:      req.Task,
		Status:    req.Status,
		Overtime:  req.Overtime,
		Duration:  req.Duration,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

func (h *TimerHandler) DeleteEntry(c *gin.Context) {
	userID := middleware.UserID(c)
	if apiErr := h.timerService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeEntryOrNull(c *gin.Context, entry *service.EntryView) {
	if entry == nil {
		c.JSON(http.StatusOK, gin.H{"entry": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// parseTimeQuery reads an optional timestamp query parameter, accepting
// RFC3339 or a bare date. Writes the error response itself on bad input.
func parseTimeQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		utc := t.UTC()
		return &utc, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		utc := t.UTC()
		return &utc, true
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error": gin.H{"code": "invalid_" + key, "message": key + " must be RFC3339 or YYYY-MM-DD"},
	})
	return nil, false
}
