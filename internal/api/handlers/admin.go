package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/api/middleware"
	"github.com/mysqft/leadcapture/internal/digest"
)

func (h *Handler) RefreshDirectory(c *gin.Context) {
	if err := h.directory.Refresh(c.Request.Context(), true); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "directory refresh failed"})
		return
	}

	snap := h.directory.Snapshot()
	h.logger.Info("Directory refreshed by operator",
		zap.String("subject", c.GetString(middleware.SubjectKey)),
		zap.Int("tenants", snap.Len()))

	c.JSON(http.StatusOK, gin.H{
		"tenants":   snap.Len(),
		"loaded_at": snap.LoadedAt().UTC().Format(time.RFC3339),
	})
}

type digestTenantResponse struct {
	Tenant  string `json:"tenant"`
	Leads   int    `json:"leads"`
	Purged  int64  `json:"purged"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) RunDigest(c *gin.Context) {
	h.logger.Info("Digest run requested by operator",
		zap.String("subject", c.GetString(middleware.SubjectKey)))

	summary, err := h.digest.Run(c.Request.Context())
	if errors.Is(err, digest.ErrRunInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Error("Digest run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "digest run failed"})
		return
	}

	tenants := make([]digestTenantResponse, 0, len(summary.Tenants))
	for _, t := range summary.Tenants {
		r := digestTenantResponse{
			Tenant:  t.Tenant,
			Leads:   t.Leads,
			Purged:  t.Purged,
			Outcome: string(t.Outcome),
		}
		if t.Err != nil {
			r.Error = t.Err.Error()
		}
		tenants = append(tenants, r)
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      summary.RunID,
		"day":         summary.Day.Format(time.DateOnly),
		"duration_ms": summary.Duration.Milliseconds(),
		"tenants":     tenants,
	})
}
