package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/systemiqofficial/steel-iq-sub000/internal/api/models"
	"github.com/systemiqofficial/steel-iq-sub000/internal/data"
)

// ScenarioHandler lists the scenario files shipped with the server
type ScenarioHandler struct {
	dir string
	log *slog.Logger
}

// NewScenarioHandler creates a scenario handler reading from dir, or from
// SCENARIO_DIR, or from ./data/scenarios.
func NewScenarioHandler(dir string, log *slog.Logger) *ScenarioHandler {
	if dir == "" {
		dir = os.Getenv("SCENARIO_DIR")
	}
	if dir == "" {
		dir = filepath.Join(".", "data", "scenarios")
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("ScenarioHandler: using scenario directory", slog.String("dir", dir))
	return &ScenarioHandler{dir: dir, log: log}
}

// Dir returns the scenario directory path
func (h *ScenarioHandler) Dir() string { return h.dir }

// ListScenarios handles GET /api/v1/scenarios
func (h *ScenarioHandler) ListScenarios(c *gin.Context) {
	scenarios := []models.ScenarioInfo{}
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		h.log.Warn("ScenarioHandler: read scenario directory", slog.String("dir", h.dir), slog.Any("err", err))
		c.JSON(http.StatusOK, gin.H{"scenarios": scenarios})
		return
	}
	for _, entry := range entries {
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml" && ext != ".json") {
			continue
		}
		path := filepath.Join(h.dir, entry.Name())
		info, err := loadScenarioInfo(path, entry.Name())
		if err != nil {
			// Skip invalid files
			h.log.Warn("ScenarioHandler: skipping scenario", slog.String("file", path), slog.Any("err", err))
			continue
		}
		scenarios = append(scenarios, info)
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": scenarios})
}

func loadScenarioInfo(path, filename string) (models.ScenarioInfo, error) {
	sc, err := data.LoadScenario(path)
	if err != nil {
		return models.ScenarioInfo{}, err
	}
	id := strings.TrimSuffix(filename, filepath.Ext(filename))
	name := sc.Name
	if name == "" {
		name = id
	}
	seen := map[string]bool{}
	var locs []string
	for _, a := range sc.Assets {
		if !seen[a.Location] {
			seen[a.Location] = true
			locs = append(locs, a.Location)
		}
	}
	sort.Strings(locs)
	return models.ScenarioInfo{ID: id, Name: name, File: path, Assets: len(sc.Assets), Locations: locs}, nil
}
