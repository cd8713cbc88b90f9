// internal/api/handlers/upload_handler.go
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"delivery-fleet-api-server/internal/api/response"
	"delivery-fleet-api-server/internal/apperr"
	"delivery-fleet-api-server/internal/logger"
	"delivery-fleet-api-server/internal/s3"

	"github.com/gin-gonic/gin"
)

const maxUploadPhotos = 20

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	UploadFile(ctx context.Context, file io.Reader, objectKey, contentType string) (string, error)
}

type UploadHandler struct {
	Uploader FileUploader
	Folder   string
	Log      logger.Logger
}

// UploadPhotos stores the multipart "photos" files and returns their URLs in
// the order they were sent.
func (h *UploadHandler) UploadPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["photos"]) == 0 {
		response.Error(c, h.Log, apperr.New(http.StatusBadRequest, apperr.CodeFilesNotProvided, nil))
		return
	}
	files := form.File["photos"]
	if len(files) > maxUploadPhotos {
		response.Error(c, h.Log, apperr.BadParameters([]string{fmt.Sprintf("photos is max=%d", maxUploadPhotos)}))
		return
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.Error(c, h.Log, apperr.Internal(err))
			return
		}
		url, err := h.Uploader.UploadFile(c.Request.Context(), f, s3.ObjectKey(h.Folder, fh.Filename), fh.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			response.Error(c, h.Log, apperr.Internal(err))
			return
		}
		urls = append(urls, url)
	}

	h.Log.Info("photos uploaded", logger.Int("count", len(urls)))
	response.OK(c, urls)
}
