package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/internal/photos"
	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

var errNoFile = invalid("no file uploaded")

// uploadTarget resolves the optional plant_id form field to a plant name.
// An empty name sends files to the user's temp folder.
func (s *Server) uploadTarget(c *gin.Context) (string, error) {
	raw := c.PostForm("plant_id")
	if raw == "" {
		return "", nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", types.ErrInvalidID
	}
	p, err := s.diary.Plants().Get(c.Request.Context(), userID(c), id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (s *Server) ingestFile(uid int64, plantName string, fh *multipart.FileHeader) (*photos.Upload, error) {
	if fh.Size > s.ingest.MaxBytes() {
		return nil, photos.ErrTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload: %w", err)
	}
	defer f.Close()

	up, err := s.ingest.Ingest(uid, plantName, fh.Filename, f)
	if err != nil {
		return nil, err
	}
	s.metrics.Upload(up.Format)
	return up, nil
}

func (s *Server) uploadSingle(c *gin.Context) {
	fh, err := c.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		s.fail(c, errNoFile)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	plantName, err := s.uploadTarget(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	up, err := s.ingestFile(userID(c), plantName, fh)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"filename": up.Filename,
		"path":     up.Path,
		"size":     up.Size,
		"takenAt":  up.TakenAt,
	})
}

func (s *Server) uploadMultiple(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		s.fail(c, err)
		return
	}
	files := form.File["photos"]
	if len(files) == 0 {
		s.fail(c, errNoFile)
		return
	}
	if len(files) > photos.MaxFilesPerUpload {
		s.fail(c, photos.ErrTooManyFiles)
		return
	}
	plantName, err := s.uploadTarget(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	uid := userID(c)
	uploaded := make([]*photos.Upload, 0, len(files))
	for _, fh := range files {
		up, err := s.ingestFile(uid, plantName, fh)
		if err != nil {
			// Drop what this request already stored.
			for _, done := range uploaded {
				if rmErr := s.store.Remove(done.Path); rmErr != nil {
					s.logger.Warn("uploaded file not removed", "path", done.Path, "error", rmErr)
				}
			}
			s.fail(c, err)
			return
		}
		uploaded = append(uploaded, up)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("%d files uploaded successfully", len(uploaded)),
		"files":   uploaded,
	})
}
