package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/systemiqofficial/steel-iq-sub000/internal/api/models"
	"github.com/systemiqofficial/steel-iq-sub000/internal/model"
)

// TechnologyHandler serves the technology registry and the selection
// strategies
type TechnologyHandler struct{}

func NewTechnologyHandler() *TechnologyHandler {
	return &TechnologyHandler{}
}

// ListTechnologies handles GET /api/v1/technologies
func (h *TechnologyHandler) ListTechnologies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"technologies": model.Technologies()})
}

// ListSelectors handles GET /api/v1/strategies
func (h *TechnologyHandler) ListSelectors(c *gin.Context) {
	selectors := []models.SelectorInfo{
		{
			Name:        "argmax",
			Description: "Switch to the candidate technology with the highest NPV net of stranded-asset cost.",
		},
		{
			Name:        "weighted",
			Description: "Draw the switch target at random, weighting each candidate by its positive NPV.",
		},
	}
	c.JSON(http.StatusOK, gin.H{"strategies": selectors})
}
