package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/adapters/primary/http/dto"
	"mlops-monitoring-service/internal/core/services"
)

func (h *Handler) RegisterVersion(c *gin.Context) {
	var req dto.RegisterVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	v, err := h.registrySvc.Register(c.Request.Context(), c.Param("group"), services.RegisterInput{
		Algorithm:        req.Algorithm,
		Framework:        req.Framework,
		FrameworkVersion: req.FrameworkVersion,
		Hyperparameters:  req.Hyperparameters,
		Metrics:          req.Metrics,
		DatasetVersion:   req.DatasetVersion,
		BaselineVersion:  req.BaselineVersion,
		CreatedBy:        req.CreatedBy,
		Tags:             req.Tags,
		ArtifactRef:      req.ArtifactRef,
	})
	if err != nil {
		log.WithError(err).Error("register model version failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToModelVersionResponse(v))
}

func (h *Handler) ListVersions(c *gin.Context) {
	versions, err := h.registrySvc.List(c.Request.Context(), c.Param("group"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ModelVersionResponse, 0, len(versions))
	for _, v := range versions {
		items = append(items, dto.ToModelVersionResponse(v))
	}
	c.JSON(http.StatusOK, dto.ListVersionsResponse{Items: items, Total: len(items)})
}

func (h *Handler) GetVersion(c *gin.Context) {
	v, err := h.registrySvc.Get(c.Request.Context(), c.Param("group"), c.Param("ver"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToModelVersionResponse(v))
}

func (h *Handler) DecideVersion(c *gin.Context) {
	version, ok := parseVersionParam(c)
	if !ok {
		return
	}

	var req dto.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.registrySvc.Approve(c.Request.Context(), c.Param("group"), version, req.Decision, req.Reviewer, req.Note)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) CompareVersions(c *gin.Context) {
	a, errA := strconv.Atoi(c.Query("a"))
	b, errB := strconv.Atoi(c.Query("b"))
	if errA != nil || errB != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters a and b must be version numbers"})
		return
	}

	cmp, err := h.registrySvc.Compare(c.Request.Context(), c.Param("group"), a, b)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, cmp)
}

func (h *Handler) Rollback(c *gin.Context) {
	var req dto.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registrySvc.Rollback(c.Request.Context(), c.Param("group"), req.TargetVersion); err != nil {
		mapDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) GetActiveVersion(c *gin.Context) {
	v, err := h.registrySvc.Active(c.Request.Context(), c.Param("group"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToModelVersionResponse(v))
}

func (h *Handler) DeleteVersion(c *gin.Context) {
	version, ok := parseVersionParam(c)
	if !ok {
		return
	}
	if err := h.registrySvc.DeleteVersion(c.Request.Context(), c.Param("group"), version); err != nil {
		mapDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.registrySvc.DeleteGroup(c.Request.Context(), c.Param("group")); err != nil {
		mapDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
