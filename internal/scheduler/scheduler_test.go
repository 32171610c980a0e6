package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/digest"
)

func TestAdd_InvalidSpec(t *testing.T) {
	s := New(time.UTC, zap.NewNop())
	err := s.Add(Job{Name: "bad", Spec: "not a cron", Run: func(context.Context) error { return nil }})
	assert.ErrorContains(t, err, "invalid schedule")
}

func TestAdd_SkipsOverlappingRuns(t *testing.T) {
	s := New(time.UTC, zap.NewNop())

	var runs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	require.NoError(t, s.Add(Job{Name: "slow", Spec: "0 6 * * *", Run: func(context.Context) error {
		runs.Add(1)
		started <- struct{}{}
		<-release
		return nil
	}}))

	entries := s.cron.Entries()
	require.Len(t, entries, 1)

	done := make(chan struct{})
	go func() {
		entries[0].WrappedJob.Run()
		close(done)
	}()
	<-started

	// Second trigger while the first is still running.
	entries[0].WrappedJob.Run()

	close(release)
	<-done
	assert.EqualValues(t, 1, runs.Load())
}

func TestAdd_RecoversPanics(t *testing.T) {
	s := New(time.UTC, zap.NewNop())
	require.NoError(t, s.Add(Job{Name: "panics", Spec: "@daily", Run: func(context.Context) error {
		panic("boom")
	}}))

	assert.NotPanics(t, func() { s.cron.Entries()[0].WrappedJob.Run() })
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := New(time.UTC, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

type fakeRunner struct {
	summary *digest.Summary
	err     error
}

func (f fakeRunner) Run(context.Context) (*digest.Summary, error) { return f.summary, f.err }

func TestDigestJob(t *testing.T) {
	job := DigestJob("0 6 * * *", fakeRunner{err: digest.ErrRunInProgress}, zap.NewNop())
	assert.NoError(t, job.Run(context.Background()))

	job = DigestJob("0 6 * * *", fakeRunner{err: errors.New("db down")}, zap.NewNop())
	assert.Error(t, job.Run(context.Background()))

	summary := &digest.Summary{RunID: "r", Tenants: []digest.TenantResult{{Tenant: "a", Err: errors.New("x")}}}
	job = DigestJob("0 6 * * *", fakeRunner{summary: summary}, zap.NewNop())
	assert.NoError(t, job.Run(context.Background()))
}

type fakeRefresher struct{ force []bool }

func (f *fakeRefresher) Refresh(_ context.Context, force bool) error {
	f.force = append(f.force, force)
	return nil
}

func TestRefreshJob_Forces(t *testing.T) {
	r := &fakeRefresher{}
	require.NoError(t, RefreshJob("30 6 * * *", r).Run(context.Background()))
	assert.Equal(t, []bool{true}, r.force)
}
