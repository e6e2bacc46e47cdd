package handlers

import (
	"errors"
	"net/http"

	"mlops-monitoring-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	switch {
	// Not found errors
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrVersionNotFound),
		errors.Is(err, domain.ErrBaselineNotFound),
		errors.Is(err, domain.ErrLineageNotFound),
		errors.Is(err, domain.ErrArtifactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict / dependency errors
	case errors.Is(err, domain.ErrVersionConflict),
		errors.Is(err, domain.ErrVersionReferenced),
		errors.Is(err, domain.ErrGroupHasLiveVersions):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrEmptyDataset),
		errors.Is(err, domain.ErrFeatureNotFound),
		errors.Is(err, domain.ErrTypeMismatch),
		errors.Is(err, domain.ErrInvalidGroupName),
		errors.Is(err, domain.ErrInvalidVersion),
		errors.Is(err, domain.ErrInvalidDecision),
		errors.Is(err, domain.ErrInvalidFeatureType),
		errors.Is(err, domain.ErrMissingDatasetVersion),
		errors.Is(err, domain.ErrRollbackNotApproved),
		errors.Is(err, domain.ErrVersionDeleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	// Retry later
	case errors.Is(err, domain.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	// Unrecoverable numeric failure
	case errors.Is(err, domain.ErrComputationFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
