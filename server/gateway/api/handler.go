package api

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	commonlog "media_gateway/server/common/log"
	"media_gateway/server/common/middleware"
	"media_gateway/server/common/transport/httpresp"
	"media_gateway/server/gateway/domain"
	"media_gateway/server/gateway/service"
)

const (
	fileField = "file"
	// room for multipart boundaries and part headers on top of the file cap
	multipartSlack = 64 << 10
)

type Handler struct {
	files          *service.FileService
	tenantHeader   string
	maxUploadBytes int64
}

func NewHandler(files *service.FileService, tenantHeader string, maxUploadBytes int64) *Handler {
	return &Handler{files: files, tenantHeader: tenantHeader, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpresp.NewMessageResponse(httpresp.StatusServerRunning))
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpresp.NewStatusResponse("ok"))
	})

	tenant := r.Group("/")
	tenant.Use(middleware.TenantRequired(h.tenantHeader))
	{
		tenant.POST("/upload/", h.upload)
		tenant.GET("/files/", h.listFiles)
	}
}

func (h *Handler) upload(c *gin.Context) {
	ns := domain.Resolve(tenantFromContext(c))

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartSlack)
	}
	header, err := c.FormFile(fileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(httpresp.ErrFileTooLarge))
			return
		}
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(httpresp.ErrMissingFile))
		return
	}
	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, httpresp.NewErrorResponse(httpresp.ErrFileTooLarge))
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, httpresp.NewErrorResponse(err.Error()))
		return
	}
	defer f.Close()

	filename := rawFilename(header)
	result, err := h.files.PutObject(c.Request.Context(), ns, filename, f, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.fail(c, err)
		return
	}
	commonlog.Infof("stored %s (%d bytes, %s)", ns.ObjectKey(filename), header.Size, result.Type)
	c.JSON(http.StatusOK, result)
}

// rawFilename returns the filename as the client sent it. mime/multipart
// reduces it to its base name, which would fold "a/x.png" and "b/x.png"
// into one key.
func rawFilename(header *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(header.Header.Get("Content-Disposition"))
	if err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return header.Filename
}

func (h *Handler) listFiles(c *gin.Context) {
	ns := domain.Resolve(tenantFromContext(c))

	entries, err := h.files.ListObjects(c.Request.Context(), ns)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if domain.KindOf(err) == domain.FaultInput {
		status = http.StatusBadRequest
	}
	var de *domain.Error
	if errors.As(err, &de) {
		commonlog.Errorf("%s failed (%s fault): %v", de.Op, de.Kind, err)
	} else {
		commonlog.Errorf("request failed: %v", err)
	}
	c.JSON(status, httpresp.NewErrorResponse(err.Error()))
}

func tenantFromContext(c *gin.Context) string {
	return c.GetString(middleware.TenantIDKey)
}
