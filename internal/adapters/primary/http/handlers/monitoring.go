package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/adapters/primary/http/dto"
	"mlops-monitoring-service/internal/core/domain"
)

func (h *Handler) BuildBaseline(c *gin.Context) {
	var req dto.BuildBaselineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	baseline, err := h.baselineSvc.Build(c.Request.Context(), req.Dataset.ToDataset(), req.FeatureTypes, req.DatasetVersion)
	if err != nil {
		log.WithError(err).Error("baseline build failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, baseline)
}

func (h *Handler) GetBaseline(c *gin.Context) {
	baseline, err := h.baselineSvc.Load(c.Request.Context(), c.Param("version"))
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, baseline)
}

func (h *Handler) DeleteBaseline(c *gin.Context) {
	if err := h.baselineSvc.Delete(c.Request.Context(), c.Param("version")); err != nil {
		mapDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DetectDrift(c *gin.Context) {
	var req dto.DetectDriftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	baseline := req.Baseline
	if baseline == nil {
		if req.BaselineVersion == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "baseline_version or inline baseline is required"})
			return
		}
		var err error
		baseline, err = h.baselineSvc.Load(c.Request.Context(), req.BaselineVersion)
		if err != nil {
			mapDomainError(c, err)
			return
		}
	}

	report, err := h.driftSvc.Detect(c.Request.Context(), req.Dataset.ToDataset(), baseline)
	if err != nil {
		log.WithError(err).Error("drift detection failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetLineage(c *gin.Context) {
	version, ok := parseVersionParam(c)
	if !ok {
		return
	}
	rec, err := h.lineageSvc.GetLineage(c.Request.Context(), c.Param("group"), version)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func parseVersionParam(c *gin.Context) (int, bool) {
	version, err := strconv.Atoi(c.Param("ver"))
	if err != nil || version < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrInvalidVersion.Error()})
		return 0, false
	}
	return version, true
}
