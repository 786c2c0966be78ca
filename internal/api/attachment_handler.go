package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"alcyxob/attachment-service/internal/service"

	"github.com/gin-gonic/gin"
)

// HeaderTotal carries the number of records matching a list request.
const HeaderTotal = "X-Total"

// AttachmentHandler holds the attachment service dependency.
type AttachmentHandler struct {
	attachmentService service.AttachmentService
	logger            *slog.Logger
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(attachmentService service.AttachmentService, logger *slog.Logger) *AttachmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentHandler{
		attachmentService: attachmentService,
		logger:            logger.With(slog.String("component", "api.attachments")),
	}
}

// CreateFile handles POST /entities/:ownerId/files
func (h *AttachmentHandler) CreateFile(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	id, err := h.attachmentService.Create(c.Request.Context(), c.Param("ownerId"), payload)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// ListFiles handles GET /entities/:ownerId/files
func (h *AttachmentHandler) ListFiles(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "page must be a number")
		return
	}
	pageSize, err := queryInt(c, "pageSize")
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "pageSize must be a number")
		return
	}

	params := service.ListParams{
		Filters:       c.QueryMap("filters"),
		SortBy:        c.Query("sortBy"),
		SortDirection: c.Query("sortDirection"),
		Page:          page,
		PageSize:      pageSize,
	}

	result, err := h.attachmentService.List(c.Request.Context(), c.Param("ownerId"), params)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.Header(HeaderTotal, strconv.FormatInt(result.Total, 10))
	c.JSON(http.StatusOK, result.Items)
}

// GetFile handles GET /entities/:ownerId/files/:fileId
func (h *AttachmentHandler) GetFile(c *gin.Context) {
	view, err := h.attachmentService.Get(c.Request.Context(), c.Param("ownerId"), c.Param("fileId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// DownloadFile handles GET /entities/:ownerId/files/:fileId/download
func (h *AttachmentHandler) DownloadFile(c *gin.Context) {
	url, err := h.attachmentService.Download(c.Request.Context(), c.Param("ownerId"), c.Param("fileId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// DeleteFile handles DELETE /entities/:ownerId/files/:fileId
func (h *AttachmentHandler) DeleteFile(c *gin.Context) {
	id, err := h.attachmentService.Delete(c.Request.Context(), c.Param("ownerId"), c.Param("fileId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id})
}

// GetCredentials handles POST /entities/:ownerId/files/credentials
func (h *AttachmentHandler) GetCredentials(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	creds, err := h.attachmentService.GetCredentials(c.Request.Context(), c.Param("ownerId"), payload)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, creds)
}

// RequestUploadURL handles POST /entities/:ownerId/files/upload-url
func (h *AttachmentHandler) RequestUploadURL(c *gin.Context) {
	payload, ok := bindPayload(c)
	if !ok {
		return
	}

	ticket, err := h.attachmentService.RequestUpload(c.Request.Context(), c.Param("ownerId"), payload)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// bindPayload reads a JSON object body. Numbers decode as float64.
func bindPayload(c *gin.Context) (map[string]any, bool) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return nil, false
	}
	if payload == nil {
		abortWithError(c, http.StatusBadRequest, "Request body must be a JSON object")
		return nil, false
	}
	return payload, true
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// writeServiceError maps a service error to the response status.
// Client errors carry the cause, server errors a generic message.
func (h *AttachmentHandler) writeServiceError(c *gin.Context, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		h.logger.Error("unexpected error", slog.Any("error", err))
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	switch se.Kind {
	case service.KindConfig, service.KindValidation:
		abortWithError(c, http.StatusBadRequest, se.Err.Error())
	case service.KindNotFound:
		abortWithError(c, http.StatusNotFound, se.Err.Error())
	default:
		h.logger.Error("attachment operation failed",
			slog.String("op", string(se.Op)),
			slog.String("kind", string(se.Kind)),
			slog.Any("error", se.Err),
		)
		abortWithError(c, http.StatusInternalServerError, "Failed to "+describeOp(se.Op))
	}
}

func describeOp(op service.Op) string {
	switch op {
	case service.OpRelation:
		return "relate file"
	case service.OpGet:
		return "get file"
	case service.OpList:
		return "list files"
	case service.OpDelete:
		return "delete file"
	case service.OpDownload:
		return "download file"
	case service.OpCredentials:
		return "get credentials"
	case service.OpUpload:
		return "create upload url"
	}
	return "process request"
}
