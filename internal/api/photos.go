package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

type photoRequest struct {
	PlantID   int64   `json:"plant_id" binding:"required,gt=0"`
	PhotoPath string  `json:"photo_path" binding:"required"`
	Caption   *string `json:"caption"`
	TakenAt   string  `json:"taken_at"`
}

type photoUpdate struct {
	Caption *string `json:"caption"`
	TakenAt string  `json:"taken_at"`
}

// parseTakenAt returns nil for an empty value.
func parseTakenAt(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := types.ParseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Server) listPhotos(c *gin.Context) {
	plantID, err := pathID(c, "plantId")
	if err != nil {
		s.fail(c, err)
		return
	}
	list, err := s.diary.Photos().ListByPlant(c.Request.Context(), userID(c), plantID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createPhoto(c *gin.Context) {
	var req photoRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	takenAt, err := parseTakenAt(req.TakenAt)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), userID(c)
	p, err := s.diary.Plants().Get(ctx, uid, req.PlantID)
	if err != nil {
		s.fail(c, err)
		return
	}
	stored, err := s.attachPhoto(uid, p.Name, req.PhotoPath)
	if err != nil {
		s.fail(c, err)
		return
	}
	ph := &types.PlantPhoto{
		PlantID:   p.ID,
		PhotoPath: stored,
		Caption:   trimmed(req.Caption),
		TakenAt:   takenAt,
	}
	if _, err := s.diary.Photos().Create(ctx, uid, ph); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ph)
}

func (s *Server) updatePhoto(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req photoUpdate
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	takenAt, err := parseTakenAt(req.TakenAt)
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), userID(c)
	ph := &types.PlantPhoto{ID: id, Caption: trimmed(req.Caption), TakenAt: takenAt}
	if err := s.diary.Photos().Update(ctx, uid, ph); err != nil {
		s.fail(c, err)
		return
	}
	updated, err := s.diary.Photos().Get(ctx, uid, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) deletePhoto(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	ctx, uid := c.Request.Context(), userID(c)
	ph, err := s.diary.Photos().Get(ctx, uid, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.Photos().Delete(ctx, uid, id); err != nil {
		s.fail(c, err)
		return
	}
	if err := s.store.Remove(ph.PhotoPath); err != nil && !errors.Is(err, types.ErrInvalidPath) {
		s.logger.Warn("photo file not removed", "photo_id", id, "path", ph.PhotoPath, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Photo deleted successfully"})
}
