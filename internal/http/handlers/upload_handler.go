// Upload HTTP handler.
//
// POST /uploads accepts one multipart image, pushes it through the
// normalization pipeline (EXIF orientation, center-crop square, fixed-size
// JPEG), and answers with the public URL under /uploads/.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UploadResponse carries the public URL of a processed upload.
type UploadResponse struct {
	URL string `json:"url" example:"http://localhost:8080/uploads/1716400000000000000-4d2a.jpg"`
}

// requestScheme reports the client-facing scheme, honoring proxies that
// terminate TLS and forward the original scheme.
func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return "https"
	}
	return "http"
}

// Upload godoc
// @ID          upload
// @Summary     Upload an image
// @Description Normalizes the image (EXIF orientation, center-crop to a square, fixed-size JPEG) and stores it. The returned URL is ready to embed in recipe or attempt payloads.
// @Tags        Uploads
// @Accept      multipart/form-data
// @Produce     json
//
// @Param       file  formData  file  true  "Image file"
//
// @Success     200  {object}  handlers.UploadResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing, oversized, or non-image file"
// @Failure     500  {object}  handlers.ErrorResponse  "Pipeline failure"
// @Router      /uploads [post]
func (h *Handlers) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, fieldPtr("file"), "file is required")
		return
	}
	if fh.Size > h.upload.maxBytes() {
		fail(c, http.StatusBadRequest, fieldPtr("file"), "file exceeds the upload size limit")
		return
	}
	// A declared non-image type is rejected up front; an undeclared one is
	// left for the decoder to judge.
	if ct := fh.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		fail(c, http.StatusBadRequest, fieldPtr("file"), "file must be an image")
		return
	}

	f, err := fh.Open()
	if err != nil {
		failServiceError(c, err)
		return
	}
	defer f.Close()

	name, err := h.uploadSvc.Save(c.Request.Context(), f)
	if err != nil {
		failServiceError(c, err)
		return
	}
	ok(c, http.StatusOK, UploadResponse{
		URL: fmt.Sprintf("%s://%s/uploads/%s", requestScheme(c.Request), c.Request.Host, name),
	})
}
