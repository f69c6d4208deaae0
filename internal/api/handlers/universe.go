package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/logger"

	"github.com/gin-gonic/gin"
)

// UniverseHandler serves the instrument presets.
type UniverseHandler struct {
	dir string
	log *slog.Logger
}

// NewUniverseHandler creates a handler reading presets from dir
// (config.DefaultUniverseDir when empty).
func NewUniverseHandler(dir string) *UniverseHandler {
	if dir == "" {
		dir = config.DefaultUniverseDir()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	h := &UniverseHandler{dir: dir, log: logger.Component("api")}
	h.log.Info("using universe directory", "dir", dir)
	return h
}

// Dir returns the preset directory.
func (h *UniverseHandler) Dir() string {
	return h.dir
}

// ListUniverses handles GET /api/v1/universes
func (h *UniverseHandler) ListUniverses(c *gin.Context) {
	universes, err := config.ListUniverses(h.dir)
	if err != nil {
		h.log.Warn("failed to list universes", "dir", h.dir, "error", err)
		universes = []config.Universe{}
	}
	c.JSON(http.StatusOK, gin.H{"universes": universes})
}

// GetUniverse handles GET /api/v1/universes/:id
func (h *UniverseHandler) GetUniverse(c *gin.Context) {
	id := c.Param("id")
	if strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		writeError(c, badRequest(fmt.Errorf("invalid universe id %q", id)))
		return
	}
	u, err := config.LoadUniverse(filepath.Join(h.dir, id+".yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("universe %q not found", id), nil)
			return
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
