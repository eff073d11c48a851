package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/pkg/types"
)

type tagRequest struct {
	TagName string `json:"tag_name" binding:"required,max=100"`
	TagType string `json:"tag_type"`
}

func (s *Server) listTags(c *gin.Context) {
	var tagType types.TagType
	if raw := c.Query("type"); raw != "" {
		tt, err := types.ParseTagType(raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		tagType = tt
	}
	tags, err := s.diary.Tags().List(c.Request.Context(), userID(c), tagType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tags)
}

func (s *Server) createTag(c *gin.Context) {
	var req tagRequest
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	t := &types.Tag{TagName: req.TagName, TagType: types.TagType(req.TagType)}
	if t.TagType == "" {
		t.TagType = types.TagOther
	}
	if _, err := s.diary.Tags().Create(c.Request.Context(), userID(c), t); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) deleteTag(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.diary.Tags().Delete(c.Request.Context(), userID(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted successfully"})
}
