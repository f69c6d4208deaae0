package handlers

import (
	"net/http"

	"portfolio-frontier/internal/api/models"
	"portfolio-frontier/internal/config"
	"portfolio-frontier/internal/optimizer"

	"github.com/gin-gonic/gin"
)

// SolverHandler handles solver-related requests
type SolverHandler struct{}

// NewSolverHandler creates a new solver handler
func NewSolverHandler() *SolverHandler {
	return &SolverHandler{}
}

// ListSolvers handles GET /api/v1/solvers
func (h *SolverHandler) ListSolvers(c *gin.Context) {
	def := config.Defaults().Solver
	params := []models.ParameterInfo{
		{
			Name:        "max_iterations",
			Type:        "int",
			Description: "Iteration budget; a trial that exhausts it keeps its best iterate and is flagged as not converged",
			Default:     def.MaxIterations,
		},
		{
			Name:        "tolerance",
			Type:        "float",
			Description: "Convergence tolerance on the objective (nelder-mead) or the projected step (projected-gradient)",
			Default:     def.Tolerance,
		},
	}

	infos := optimizer.Solvers()
	solvers := make([]models.SolverInfo, 0, len(infos))
	for _, info := range infos {
		solvers = append(solvers, models.SolverInfo{
			Name:         info.Name,
			Description:  info.Description,
			UsesGradient: info.UsesGradient,
			Parameters:   params,
		})
	}
	c.JSON(http.StatusOK, gin.H{"solvers": solvers, "default": def.Name})
}
