package handler

import (
	"net/http"
	"time"

	"tempspec/internal/service"
	"tempspec/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
	now               func() time.Time
	log               *zap.Logger
}

func NewStatisticsHandler(statisticsService service.StatisticsService, logger *zap.Logger) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService, now: time.Now, log: logger.Named("statistics_handler")}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	statsGroup := router.Group("/statistics", auth)
	{
		statsGroup.GET("", h.GetStatistics)
	}
}

// @Summary      Get Dashboard Statistics
// @Description  Spec counts per status, extension total and top applicants for specs created in a date range
// @Tags         statistics
// @Produce      json
// @Param        start_date query string false "Start date (YYYY-MM-DD, default first day of this month)"
// @Param        end_date   query string false "End date inclusive (YYYY-MM-DD, default today)"
// @Success      200 {object} response.Response{data=model.StatisticsResponse}
// @Failure      400 {object} response.Response "Invalid date format"
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      500 {object} response.Response "Internal server error"
// @Security     BearerAuth
// @Router       /api/statistics [get]
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	// Default to current month if no dates are provided
	now := h.now()
	startDate := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	endDate := now
	var err error
	if s := c.Query("start_date"); s != "" {
		if startDate, err = time.Parse(time.DateOnly, s); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected YYYY-MM-DD"))
			return
		}
	}
	if s := c.Query("end_date"); s != "" {
		if endDate, err = time.Parse(time.DateOnly, s); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected YYYY-MM-DD"))
			return
		}
	}

	stats, err := h.statisticsService.GetStatistics(c.Request.Context(), actor, startDate, endDate)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
