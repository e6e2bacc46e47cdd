package handlers

import (
	"mlops-monitoring-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	baselineSvc *services.BaselineBuilder
	driftSvc    *services.DriftDetector
	registrySvc *services.RegistryService
	lineageSvc  *services.LineageService
}

func New(
	baselineSvc *services.BaselineBuilder,
	driftSvc *services.DriftDetector,
	registrySvc *services.RegistryService,
	lineageSvc *services.LineageService,
) *Handler {
	return &Handler{
		baselineSvc: baselineSvc,
		driftSvc:    driftSvc,
		registrySvc: registrySvc,
		lineageSvc:  lineageSvc,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Monitoring
	r.POST("/monitoring/baselines", h.BuildBaseline)
	r.GET("/monitoring/baselines/:version", h.GetBaseline)
	r.DELETE("/monitoring/baselines/:version", h.DeleteBaseline)
	r.POST("/monitoring/drift", h.DetectDrift)

	// Registry
	r.POST("/registry/groups/:group/versions", h.RegisterVersion)
	r.GET("/registry/groups/:group/versions", h.ListVersions)
	r.GET("/registry/groups/:group/versions/:ver", h.GetVersion)
	r.DELETE("/registry/groups/:group/versions/:ver", h.DeleteVersion)
	r.POST("/registry/groups/:group/versions/:ver/approval", h.DecideVersion)
	r.GET("/registry/groups/:group/compare", h.CompareVersions)
	r.POST("/registry/groups/:group/rollback", h.Rollback)
	r.GET("/registry/groups/:group/active", h.GetActiveVersion)
	r.DELETE("/registry/groups/:group", h.DeleteGroup)

	// Lineage
	r.GET("/lineage/:group/:ver", h.GetLineage)
}
