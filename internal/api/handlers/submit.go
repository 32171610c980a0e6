package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/api/middleware"
	"github.com/mysqft/leadcapture/internal/core"
)

const (
	maxSubmitBytes = 1 << 20
	maxMemoryBytes = 1 << 20
	storedMessage  = "Lead stored"
)

func (h *Handler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSubmitBytes)

	err := c.Request.ParseMultipartForm(maxMemoryBytes)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": core.KindValidationEmpty.Message()})
		return
	}

	receipt, err := h.submitter.Submit(c.Request.Context(), c.GetString(middleware.HostKey), c.Request.PostForm)
	if err != nil {
		kind := core.KindOf(err)
		if kind == core.KindPersistence || kind == core.KindUnknown {
			_ = c.Error(err)
		} else {
			h.logger.Debug("Submission rejected",
				zap.String("kind", kind.String()),
				zap.Error(err))
		}
		c.JSON(kind.Status(), gin.H{"error": kind.Message()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": storedMessage,
		"lead_id": receipt.LeadID,
	})
}
