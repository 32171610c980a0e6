package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mysqft/leadcapture/internal/config"
	"github.com/mysqft/leadcapture/internal/core"
	"github.com/mysqft/leadcapture/internal/metrics"
	"github.com/mysqft/leadcapture/internal/notify"
)

type stubResolver map[string]*core.Tenant

func (r stubResolver) Lookup(_ context.Context, key string) (*core.Tenant, bool) {
	t, ok := r[key]
	return t, ok
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertLead(ctx context.Context, tenantID int64, fields core.Fields) (*core.Lead, error) {
	args := m.Called(ctx, tenantID, fields)
	if lead := args.Get(0); lead != nil {
		return lead.(*core.Lead), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, tenant *core.Tenant, lead *core.Lead, event string, today time.Time) []notify.Delivery {
	args := m.Called(ctx, tenant, lead, event, today)
	if d := args.Get(0); d != nil {
		return d.([]notify.Delivery)
	}
	return nil
}

var now = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store LeadStore, notifier Notifier, opts ...Option) *Service {
	t.Helper()
	tenants := stubResolver{
		"acme": {
			Key: "acme", ID: 7, Name: "Acme", Plan: core.PlanAll,
			PlanExpiry: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			Fields:     []string{"name", "email", "phone"},
		},
		"stale": {
			Key: "stale", ID: 8, Name: "Stale", Plan: core.PlanDiscord,
			PlanExpiry: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC),
			Fields:     []string{"name"},
		},
		"lastday": {
			Key: "lastday", ID: 9, Name: "Last Day", Plan: core.PlanNone,
			PlanExpiry: time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC),
			Fields:     []string{"name"},
		},
	}
	cfg := config.TenancyConfig{RootDomain: "mysqft.in", RootTenant: "mysqft"}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return NewService(tenants, store, notifier, cfg, zap.NewNop(), opts...)
}

func TestSubmit_StoresAndNotifies(t *testing.T) {
	store := new(mockStore)
	notifier := new(mockNotifier)
	svc := newTestService(t, store, notifier)

	want := core.Fields{"name": "Ada", "email": "ada@x.test"}
	lead := &core.Lead{ID: 42, TenantID: 7, Fields: want}
	store.On("InsertLead", mock.Anything, int64(7), want).Return(lead, nil).Once()
	notifier.On("Notify", mock.Anything, mock.Anything, lead, core.EventLeadCreated, core.DateOf(now)).
		Return([]notify.Delivery{{Channel: notify.ChannelDiscord}}).Once()

	form := url.Values{
		"name":    {" Ada "},
		"email":   {"ada@x.test"},
		"phone":   {""},
		"comment": {"not accepted"},
	}
	receipt, err := svc.Submit(context.Background(), "acme.mysqft.in:443", form)

	require.NoError(t, err)
	assert.Equal(t, "acme", receipt.Tenant)
	assert.Equal(t, int64(42), receipt.LeadID)
	assert.Len(t, receipt.Deliveries, 1)
	store.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSubmit_UnknownTenant(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(t, store, nil)

	_, err := svc.Submit(context.Background(), "ghost.mysqft.in", url.Values{"name": {"Ada"}})

	assert.Equal(t, core.KindConfigurationAbsent, core.KindOf(err))
	store.AssertNotCalled(t, "InsertLead", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_UnknownHostsShareOneSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newTestService(t, new(mockStore), nil, WithMetrics(metrics.NewCollector(reg)))

	for i := 0; i < 1000; i++ {
		host := fmt.Sprintf("x%d.mysqft.in", i)
		_, err := svc.Submit(context.Background(), host, url.Values{"name": {"Ada"}})
		require.Equal(t, core.KindConfigurationAbsent, core.KindOf(err))
	}

	families, err := reg.Gather()
	require.NoError(t, err)

	var series []*dto.Metric
	for _, mf := range families {
		if mf.GetName() == "leads_submissions_total" {
			series = mf.GetMetric()
		}
	}
	require.Len(t, series, 1)
	assert.Equal(t, 1000.0, series[0].GetCounter().GetValue())
	for _, lp := range series[0].GetLabel() {
		if lp.GetName() == "tenant" {
			assert.Equal(t, "unknown", lp.GetValue())
		}
	}
}

func TestSubmit_ExpiredPlan(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(t, store, nil)

	_, err := svc.Submit(context.Background(), "stale.mysqft.in", url.Values{"name": {"Ada"}})

	assert.Equal(t, core.KindPlanExpired, core.KindOf(err))
	store.AssertNotCalled(t, "InsertLead", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_ExpiryDayStillAccepted(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(t, store, nil)

	store.On("InsertLead", mock.Anything, int64(9), core.Fields{"name": "Ada"}).
		Return(&core.Lead{ID: 1, TenantID: 9}, nil).Once()

	_, err := svc.Submit(context.Background(), "lastday.mysqft.in", url.Values{"name": {"Ada"}})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSubmit_AllEmptyRejected(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(t, store, nil)

	_, err := svc.Submit(context.Background(), "acme.mysqft.in", url.Values{
		"name":  {"   "},
		"email": {""},
		"other": {"ignored"},
	})

	assert.Equal(t, core.KindValidationEmpty, core.KindOf(err))
	store.AssertNotCalled(t, "InsertLead", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_PersistenceFailureSkipsNotify(t *testing.T) {
	store := new(mockStore)
	notifier := new(mockNotifier)
	svc := newTestService(t, store, notifier)

	store.On("InsertLead", mock.Anything, int64(7), mock.Anything).Return(nil, errors.New("connection reset")).Once()

	_, err := svc.Submit(context.Background(), "acme.mysqft.in", url.Values{"name": {"Ada"}})

	assert.Equal(t, core.KindPersistence, core.KindOf(err))
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_DeliveryFailureStillSucceeds(t *testing.T) {
	store := new(mockStore)
	notifier := new(mockNotifier)
	svc := newTestService(t, store, notifier)

	lead := &core.Lead{ID: 3, TenantID: 7}
	store.On("InsertLead", mock.Anything, int64(7), mock.Anything).Return(lead, nil).Once()
	notifier.On("Notify", mock.Anything, mock.Anything, lead, mock.Anything, mock.Anything).
		Return([]notify.Delivery{{Channel: notify.ChannelWebhook, Err: errors.New("timeout")}}).Once()

	receipt, err := svc.Submit(context.Background(), "acme.mysqft.in", url.Values{"email": {"a@b.test"}})

	require.NoError(t, err)
	assert.Error(t, receipt.Deliveries[0].Err)
}

func TestSubmit_RootHostUsesRootTenant(t *testing.T) {
	store := new(mockStore)
	svc := newTestService(t, store, nil)

	_, err := svc.Submit(context.Background(), "www.mysqft.in", url.Values{"name": {"Ada"}})

	// The root tenant is not in this directory.
	assert.Equal(t, core.KindConfigurationAbsent, core.KindOf(err))
	assert.ErrorContains(t, err, `"mysqft"`)
}

func TestExtractFields(t *testing.T) {
	got := ExtractFields([]string{"a", "b", "c"}, url.Values{"a": {"1"}, "b": {" "}, "d": {"4"}})
	assert.Equal(t, core.Fields{"a": "1"}, got)
}
