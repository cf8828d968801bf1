package handler

import (
	"net/http"

	"tempspec/internal/service"
	"tempspec/pkg/pagination"
	"tempspec/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	activityService service.ActivityService
	log             *zap.Logger
}

func NewActivityHandler(activityService service.ActivityService, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{activityService: activityService, log: logger.Named("activity_handler")}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup, auth gin.HandlerFunc) {
	group := router.Group("/activity", auth)
	{
		group.GET("", h.GetActivity)
	}
}

// GetActivity lists lifecycle actions across all specs, newest first
// @Summary      Get activity feed
// @Description  History entries of every spec joined with the spec code and acting user (admin only)
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action query     string  false  "CREATE, ACTIVATE, EXTEND, TERMINATE or EXPIRE"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 15)"
// @Success      200    {object}  response.Response{data=response.Page{items=[]service.ActivityResponse}}
// @Failure      400    {object}  response.Response
// @Failure      403    {object}  response.Response
// @Router       /api/activity [get]
func (h *ActivityHandler) GetActivity(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	entries, total, err := h.activityService.List(c.Request.Context(), actor, c.Query("action"), p.Page, p.Limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.NewPage(entries, total, p.Page, p.Limit)))
}
