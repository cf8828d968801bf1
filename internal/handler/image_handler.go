package handler

import (
	"net/http"

	"tempspec/internal/service"
	"tempspec/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ImageHandler struct {
	images    service.ImageService
	maxUpload int64
	log       *zap.Logger
}

func NewImageHandler(images service.ImageService, maxUpload int64, logger *zap.Logger) *ImageHandler {
	return &ImageHandler{images: images, maxUpload: maxUpload, log: logger.Named("image_handler")}
}

func (h *ImageHandler) RegisterRoutes(router *gin.RouterGroup, auth, throttle gin.HandlerFunc) {
	router.POST("/images", auth, throttle, h.Upload)
}

// Upload handles POST /images from the narrative editor
// @Summary      Upload an inline image
// @Description  Returns the URL to embed in the Markdown narrative
// @Tags         images
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Image"
// @Success      200   {object}  service.ImageUploadResponse
// @Failure      400   {object}  response.Response
// @Router       /api/images [post]
func (h *ImageHandler) Upload(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	file, err := readFile(c, "file", h.maxUpload)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	if file == nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "No file part"))
		return
	}

	res, err := h.images.Upload(c.Request.Context(), actor, *file)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	// editors expect the bare {"location": ...} body
	c.JSON(http.StatusOK, res)
}
