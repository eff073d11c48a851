package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/plantdiaries/internal/importer"
)

// importCSV loads a plants CSV for the current user. Profile photos are not
// imported over HTTP; there is no media folder to read them from.
func (s *Server) importCSV(c *gin.Context) {
	fh, err := c.FormFile("csv")
	if errors.Is(err, http.ErrMissingFile) {
		s.fail(c, invalid("no CSV file uploaded"))
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	clearExisting := false
	if raw := c.PostForm("clearExisting"); raw != "" {
		if clearExisting, err = strconv.ParseBool(raw); err != nil {
			s.fail(c, invalid("clearExisting must be true or false"))
			return
		}
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, fmt.Errorf("opening upload: %w", err))
		return
	}
	defer f.Close()

	res, err := s.importer.ImportPlants(c.Request.Context(), userID(c), f,
		importer.PlantOptions{ClearExisting: clearExisting})
	if err != nil {
		s.fail(c, err)
		return
	}
	body := gin.H{
		"success": true,
		"message": "CSV import completed",
		"stats": gin.H{
			"total":   res.Total,
			"success": res.Success,
			"errors":  res.Errors,
		},
	}
	if len(res.Messages) > 0 {
		body["errors"] = res.Messages
	}
	c.JSON(http.StatusOK, body)
}
