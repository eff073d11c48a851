package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

type eventRequest struct {
	PlantID   int64   `json:"plant_id" binding:"required,gt=0"`
	EventType string  `json:"event_type" binding:"required,max=100"`
	EventDate string  `json:"event_date" binding:"required,isodate"`
	Notes     *string `json:"notes"`
}

// eventUpdate omits plant_id: events stay with their plant.
type eventUpdate struct {
	EventType string  `json:"event_type" binding:"required,max=100"`
	EventDate string  `json:"event_date" binding:"required,isodate"`
	Notes     *string `json:"notes"`
}

func (s *Server) listEvents(c *gin.Context) {
	plantID, err := pathID(c, "plantId")
	if err != nil {
		s.fail(c, err)
		return
	}
	events, err := s.diary.Events().ListByPlant(c.Request.Context(), userID(c), plantID, c.Query("eventType"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) getEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	e, err := s.diary.Events().Get(c.Request.Context(), userID(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) createEvent(c *gin.Context) {
	var req eventRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	e := &types.PlantEvent{
		PlantID:   req.PlantID,
		EventType: req.EventType,
		EventDate: req.EventDate,
		Notes:     trimmed(req.Notes),
	}
	if _, err := s.diary.Events().Create(c.Request.Context(), userID(c), e); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *Server) updateEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req eventUpdate
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	e := &types.PlantEvent{
		ID:        id,
		EventType: req.EventType,
		EventDate: req.EventDate,
		Notes:     trimmed(req.Notes),
	}
	if err := s.diary.Events().Update(c.Request.Context(), userID(c), e); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.Events().Delete(c.Request.Context(), userID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event deleted successfully"})
}
