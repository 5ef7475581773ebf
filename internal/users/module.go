// Package users provides the user directory bounded context module.
package users

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/internal/users/repository"
	"imobcrm_backend/internal/users/service"
	"imobcrm_backend/platform/httpkit"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the users module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	return &Module{
		service: service.New(repo),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Service returns the directory service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the auth module.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

type corretorResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}

// RegisterRoutes mounts the roster endpoint for the manager UI.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Gestor.GET("/corretores", func(c *gin.Context) {
		identity := httpkit.MustGetIdentity(c)
		if identity == nil {
			return
		}

		roster, err := m.service.Roster(c.Request.Context(), identity.UserID())
		if httpkit.HandleError(c, err) {
			return
		}

		out := make([]corretorResponse, 0, len(roster))
		for _, user := range roster {
			out = append(out, corretorResponse{
				ID:        user.ID.String(),
				Name:      user.Name,
				Email:     user.Email,
				CreatedAt: user.CreatedAt.Format(time.RFC3339),
			})
		}
		c.JSON(http.StatusOK, gin.H{"items": out})
	})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
