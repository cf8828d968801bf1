package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"tempspec/internal/authz"
	"tempspec/internal/middleware"
	"tempspec/internal/service"
	"tempspec/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// writeError maps service sentinel errors onto status codes. Unexpected
// errors are logged and answered with a generic message.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, service.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrIllegalTransition), errors.Is(err, service.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrUnauthorized):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrGeneration):
		message = "Document generation failed"
	}

	if status == http.StatusInternalServerError {
		requestID, _ := c.Get("request_id")
		log.Error("request failed",
			zap.Any("request_id", requestID),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, response.Error(status, message))
}

// currentActor returns the authenticated actor or answers 401
func currentActor(c *gin.Context) (authz.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
	}
	return a, ok
}

// readFile returns the multipart file in field, or nil when none was sent
func readFile(c *gin.Context, field string, maxBytes int64) (*service.UploadedFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, errFileTooLarge
	}
	return readHeader(header)
}

func readHeader(header *multipart.FileHeader) (*service.UploadedFile, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &service.UploadedFile{Name: header.Filename, Data: data}, nil
}

var errFileTooLarge = errors.New("uploaded file is too large")
