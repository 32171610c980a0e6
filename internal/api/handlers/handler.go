package handlers

import (
	"context"
	"net/url"

	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/digest"
	"github.com/mysqft/leadcapture/internal/directory"
	"github.com/mysqft/leadcapture/internal/ingest"
)

type Submitter interface {
	Submit(ctx context.Context, host string, form url.Values) (*ingest.Receipt, error)
}

type TenantDirectory interface {
	Refresh(ctx context.Context, force bool) error
	Snapshot() *directory.Snapshot
}

type DigestRunner interface {
	Run(ctx context.Context) (*digest.Summary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	submitter Submitter
	directory TenantDirectory
	digest    DigestRunner
	db        Pinger
	logger    *zap.Logger
}

func NewHandler(submitter Submitter, dir TenantDirectory, runner DigestRunner, db Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		submitter: submitter,
		directory: dir,
		digest:    runner,
		db:        db,
		logger:    logger,
	}
}
