package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

type eventTypeRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Emoji string `json:"emoji" binding:"required,max=16"`
}

func (s *Server) listEventTypes(c *gin.Context) {
	list, err := s.diary.EventTypes().List(c.Request.Context(), userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) createEventType(c *gin.Context) {
	var req eventTypeRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	et := &types.EventType{Name: req.Name, Emoji: req.Emoji}
	if _, err := s.diary.EventTypes().Create(c.Request.Context(), userID(c), et); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, et)
}

// deleteEventType removes a custom type. Built-in types answer 404.
func (s *Server) deleteEventType(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.EventTypes().Delete(c.Request.Context(), userID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Event type deleted successfully"})
}
