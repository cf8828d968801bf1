package handler

import (
	"fmt"
	"net/http"

	"tempspec/internal/service"
	"tempspec/pkg/pagination"
	"tempspec/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SpecHandler struct {
	specs     service.SpecService
	history   service.HistoryService
	maxUpload int64
	log       *zap.Logger
}

// NewSpecHandler sets up the routing dependencies for spec endpoints
func NewSpecHandler(specs service.SpecService, history service.HistoryService, maxUpload int64, logger *zap.Logger) *SpecHandler {
	return &SpecHandler{specs: specs, history: history, maxUpload: maxUpload, log: logger.Named("spec_handler")}
}

// RegisterRoutes binds the endpoints; auth authenticates, throttle limits the expensive preview
func (h *SpecHandler) RegisterRoutes(router *gin.RouterGroup, auth, throttle gin.HandlerFunc) {
	specs := router.Group("/specs", auth)
	{
		specs.GET("", h.ListSpecs)
		specs.POST("", throttle, h.CreateSpec)
		specs.GET("/next-code", h.NextCode)
		specs.POST("/preview", throttle, h.Preview)
		specs.POST("/expire", h.ExpireDue)
		specs.GET("/:id", h.GetSpec)
		specs.GET("/:id/history", h.GetHistory)
		specs.GET("/:id/download/:artifact", h.Download)
		specs.POST("/:id/activate", h.Activate)
		specs.POST("/:id/extend", h.Extend)
		specs.POST("/:id/terminate", h.Terminate)
		specs.DELETE("/:id", h.DeleteSpec)
	}
}

// ListSpecs handles GET /specs
// @Summary      List temporary specs
// @Description  Paginated, newest first; filter by code/title substring and status
// @Tags         specs
// @Produce      json
// @Security     BearerAuth
// @Param        q       query     string  false  "Code or title substring"
// @Param        status  query     string  false  "pending_approval, active, expired or terminated"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 15)"
// @Success      200     {object}  response.Response{data=response.Page{items=[]service.SpecResponse}}
// @Failure      400     {object}  response.Response
// @Router       /api/specs [get]
func (h *SpecHandler) ListSpecs(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	specs, total, err := h.specs.List(c.Request.Context(), actor, service.SpecListFilter{
		Query:  c.Query("q"),
		Status: c.Query("status"),
		Page:   p.Page,
		Limit:  p.Limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, response.NewPage(specs, total, p.Page, p.Limit)))
}

// CreateSpec handles POST /specs
// @Summary      Create a temporary spec
// @Description  Allocates the next code, generates Word and PDF documents and records a CREATE entry
// @Tags         specs
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateSpecRequest  true  "Application form"
// @Success      201      {object}  response.Response{data=service.SpecResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/specs [post]
func (h *SpecHandler) CreateSpec(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.CreateSpecRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	spec, err := h.specs.Create(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, spec))
}

// NextCode handles GET /specs/next-code
// @Summary      Preview the next spec code
// @Description  The code is not reserved; creation may still receive a later one
// @Tags         specs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=map[string]string}
// @Router       /api/specs/next-code [get]
func (h *SpecHandler) NextCode(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	code, err := h.specs.NextCode(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"spec_code": code}))
}

// Preview handles POST /specs/preview
// @Summary      Preview the PDF of unsaved form data
// @Tags         specs
// @Accept       json
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        payload  body      service.PreviewRequest  true  "Form data"
// @Success      200      {file}    file
// @Failure      400      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/specs/preview [post]
func (h *SpecHandler) Preview(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	pdf, err := h.specs.Preview(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="preview.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// GetSpec handles GET /specs/:id
// @Summary      Get a spec
// @Tags         specs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Spec ID"
// @Success      200  {object}  response.Response{data=service.SpecResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/specs/{id} [get]
func (h *SpecHandler) GetSpec(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	spec, err := h.specs.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, spec))
}

// GetHistory handles GET /specs/:id/history
// @Summary      Spec history
// @Description  Lifecycle entries newest first
// @Tags         specs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Spec ID"
// @Success      200  {object}  response.Response{data=service.SpecHistoryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/specs/{id}/history [get]
func (h *SpecHandler) GetHistory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	res, err := h.history.ForSpec(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Download handles GET /specs/:id/download/:artifact
// @Summary      Download a spec document
// @Description  artifact is pdf, word (editor/admin) or signed (latest upload)
// @Tags         specs
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id        path      string  true  "Spec ID"
// @Param        artifact  path      string  true  "pdf, word or signed"
// @Success      200       {file}    file
// @Failure      403       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/specs/{id}/download/{artifact} [get]
func (h *SpecHandler) Download(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	dl, err := h.specs.Download(c.Request.Context(), actor, c.Param("id"), service.Artifact(c.Param("artifact")))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer dl.Body.Close()

	c.DataFromReader(http.StatusOK, -1, dl.ContentType, dl.Body, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, dl.Filename),
	})
}

// Activate handles POST /specs/:id/activate
// @Summary      Activate a spec
// @Description  Uploads the signed document and moves the spec from pending_approval to active
// @Tags         specs
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true  "Spec ID"
// @Param        file  formData  file    true  "Signed PDF"
// @Success      200   {object}  response.Response{data=service.SpecResponse}
// @Failure      400   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /api/specs/{id}/activate [post]
func (h *SpecHandler) Activate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	file, err := readFile(c, "file", h.maxUpload)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}
	var signed service.UploadedFile
	if file != nil {
		signed = *file
	}

	spec, err := h.specs.Activate(c.Request.Context(), actor, c.Param("id"), signed)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, spec))
}

// Extend handles POST /specs/:id/extend
// @Summary      Extend an active spec
// @Tags         specs
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        id            path      string  true   "Spec ID"
// @Param        new_end_date  formData  string  true   "YYYY-MM-DD, not before the current end date"
// @Param        file          formData  file    false  "Extension approval document"
// @Success      200           {object}  response.Response{data=service.SpecResponse}
// @Failure      400           {object}  response.Response
// @Failure      409           {object}  response.Response
// @Router       /api/specs/{id}/extend [post]
func (h *SpecHandler) Extend(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.ExtendRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}
	file, err := readFile(c, "file", h.maxUpload)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	spec, err := h.specs.Extend(c.Request.Context(), actor, c.Param("id"), req, file)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, spec))
}

// Terminate handles POST /specs/:id/terminate
// @Summary      Terminate a spec
// @Tags         specs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Spec ID"
// @Param        payload  body      service.TerminateRequest  true  "Reason"
// @Success      200      {object}  response.Response{data=service.SpecResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/specs/{id}/terminate [post]
func (h *SpecHandler) Terminate(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req service.TerminateRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload"))
		return
	}

	spec, err := h.specs.Terminate(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, spec))
}

// DeleteSpec handles DELETE /specs/:id
// @Summary      Delete a spec
// @Description  Removes the spec, its uploads, history, generated documents and inline images
// @Tags         specs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Spec ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/specs/{id} [delete]
func (h *SpecHandler) DeleteSpec(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.specs.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Spec deleted successfully"))
}

// ExpireDue handles POST /specs/expire
// @Summary      Expire overdue specs now
// @Description  Runs the daily expiry job on demand (admin)
// @Tags         specs
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=map[string]int}
// @Failure      403  {object}  response.Response
// @Router       /api/specs/expire [post]
func (h *SpecHandler) ExpireDue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	n, err := h.specs.ExpireDue(c.Request.Context(), actor)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"expired": n}))
}
