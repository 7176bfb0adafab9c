package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teamboard/backend/internal/middleware"
	"teamboard/backend/internal/service"
)

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Summary rolls up completed entries. Defaults to the requesting user;
// userId=all widens to every user.
func (h *AnalyticsHandler) Summary(c *gin.Context) {
	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	userID := c.Query("userId")
	if userID == "" {
		userID = middleware.UserID(c)
	} else if userID == "all" {
		userID = ""
	}

	summary, apiErr := h.analyticsService.Summarize(c.Request.Context(), userID, from, to)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
