package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// cleanupOrphans removes photo records whose file is gone. ?dryRun=true
// only reports them.
func (s *Server) cleanupOrphans(c *gin.Context) {
	dryRun := false
	if raw := c.Query("dryRun"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.fail(c, invalid("dryRun must be true or false"))
			return
		}
		dryRun = v
	}
	rep, err := s.jobs.CleanupOrphans(c.Request.Context(), dryRun)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info("orphan cleanup", "checked", rep.Checked, "orphaned", rep.Orphaned, "removed", rep.Removed, "dry_run", dryRun)
	c.JSON(http.StatusOK, rep)
}
