package orders_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/cache"
	"courier-driver-agent/internal/dedup"
	"courier-driver-agent/internal/domain"
	"courier-driver-agent/internal/notify"
	"courier-driver-agent/internal/service/orders"
	"courier-driver-agent/internal/store"
	testlog "courier-driver-agent/internal/testutil"
)

type fixture struct {
	gw       *MockGateway
	st       *store.Store
	tracker  *dedup.Tracker
	slot     *notify.Slot
	provider *orders.Provider
	rec      *testlog.Recorder
	slept    []time.Duration
	alerts   []domain.Order
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &fixture{
		gw:      NewMockGateway(ctrl),
		st:      store.New(),
		tracker: dedup.NewTracker(),
		slot:    notify.NewSlot(),
		rec:     testlog.New(),
	}
	f.slot.Set(func(o domain.Order) { f.alerts = append(f.alerts, o) })

	f.provider = orders.NewProvider(
		f.gw, f.st, f.tracker, cache.New[[]domain.Order](), f.slot,
		orders.Options{SettleDelay: time.Second, ListTTL: time.Minute, HistoryTTL: time.Minute},
		f.rec.Logger(),
	).WithSleep(func(_ context.Context, d time.Duration) {
		f.slept = append(f.slept, d)
	})
	return f
}

func available(id, number string) domain.Order {
	return domain.Order{ID: id, Number: number, Status: domain.StatusPending}
}

func batched(id, batchID string) domain.Order {
	o := available(id, "N-"+id)
	o.Batch = &domain.BatchRef{ID: batchID, Number: "BN-" + batchID}
	return o
}

func TestRefreshOrders_NotifiesOncePerBatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	list := []domain.Order{batched("d-2", "B1"), batched("d-1", "B1"), available("d-9", "N-9")}
	f.gw.EXPECT().AvailableOrders(gomock.Any()).Return(list, nil)

	got, err := f.provider.RefreshOrders(ctx, false)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// one alert for the batch with the smallest member id, one for the solo order
	require.Len(t, f.alerts, 2)
	require.Equal(t, "d-1", f.alerts[0].ID)
	require.Equal(t, "d-9", f.alerts[1].ID)

	snap := f.provider.Snapshot()
	require.Len(t, snap.Available, 3)
}

func TestRefreshOrders_CachedReadDoesNotRefetch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.gw.EXPECT().AvailableOrders(gomock.Any()).Return([]domain.Order{available("d-1", "N-1")}, nil).Times(1)

	_, err := f.provider.RefreshOrders(ctx, false)
	require.NoError(t, err)
	_, err = f.provider.RefreshOrders(ctx, false)
	require.NoError(t, err)

	require.Len(t, f.alerts, 1)
}

func TestRefreshOrders_ForcedUnchangedListStaysSilent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	list := []domain.Order{available("d-1", "N-1")}
	f.gw.EXPECT().AvailableOrders(gomock.Any()).Return(list, nil).Times(2)

	_, err := f.provider.RefreshOrders(ctx, true)
	require.NoError(t, err)
	_, err = f.provider.RefreshOrders(ctx, true)
	require.NoError(t, err)

	require.Len(t, f.alerts, 1)
}

func TestAccept_NotAvailableFailsWithoutBackendCall(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.provider.Accept(context.Background(), "unknown")
	require.ErrorIs(t, err, apperr.ErrInvalid)
	require.Empty(t, f.slept)
}

func TestAccept_HappyPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := available("d-1", "N-1")
	require.NoError(t, f.st.Upsert(store.Available, o))

	f.gw.EXPECT().Accept(gomock.Any(), o).Return(nil)
	f.gw.EXPECT().DriverOrders(gomock.Any()).Return([]domain.Order{{ID: "d-1", Number: "N-1", Status: domain.StatusAssigned}}, nil)
	f.gw.EXPECT().AvailableOrders(gomock.Any()).Return(nil, nil)

	require.NoError(t, f.provider.Accept(ctx, "d-1"))

	require.Equal(t, []time.Duration{time.Second}, f.slept)
	snap := f.provider.Snapshot()
	require.Empty(t, snap.Available)
	require.Contains(t, snap.Mine, "d-1")
	require.Equal(t, domain.StatusAssigned, snap.Mine["d-1"].Status)
}

func TestAccept_GoneOrderIsPruned(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := available("d-1", "N-1")
	require.NoError(t, f.st.Upsert(store.Available, o))
	f.gw.EXPECT().Accept(gomock.Any(), o).Return(apperr.ErrNotFound)

	err := f.provider.Accept(ctx, "d-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	snap := f.provider.Snapshot()
	require.Empty(t, snap.Available)
	require.Empty(t, snap.Mine)
	require.Empty(t, f.slept)
}

func TestAccept_RefreshFailureIsOnlyLogged(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	o := available("d-1", "N-1")
	require.NoError(t, f.st.Upsert(store.Available, o))

	f.gw.EXPECT().Accept(gomock.Any(), o).Return(nil)
	f.gw.EXPECT().DriverOrders(gomock.Any()).Return(nil, apperr.ErrNetwork)
	f.gw.EXPECT().AvailableOrders(gomock.Any()).Return(nil, apperr.ErrNetwork)

	require.NoError(t, f.provider.Accept(ctx, "d-1"))
	require.Len(t, f.rec.Messages("warn"), 2)
}

func TestDecline_UntrackedFailsWithoutBackendCall(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.provider.Decline(context.Background(), "unknown", "too far")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestDecline_AvailableOrderSucceeds(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.Upsert(store.Available, available("d-1", "N-1")))
	f.gw.EXPECT().Decline(gomock.Any(), "d-1", "too far").Return(nil)

	require.NoError(t, f.provider.Decline(ctx, "d-1", "too far"))
	require.Empty(t, f.provider.Snapshot().Available)
}

func TestSkip_RemovesFromAvailableOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.Upsert(store.Available, available("d-1", "N-1")))
	f.gw.EXPECT().Skip(gomock.Any(), "d-1").Return(nil)

	require.NoError(t, f.provider.Skip(ctx, "d-1"))
	require.Empty(t, f.provider.Snapshot().Available)

	// skipping an accepted order is rejected locally
	require.NoError(t, f.st.Upsert(store.Mine, available("d-2", "N-2")))
	require.ErrorIs(t, f.provider.Skip(ctx, "d-2"), apperr.ErrInvalid)
}

func TestUpdateStatus_TerminalArchivesOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.Upsert(store.Mine, available("d-1", "N-1")))
	f.gw.EXPECT().UpdateStatus(gomock.Any(), "d-1", domain.StatusDelivered, "ph-1").Return(nil)

	require.NoError(t, f.provider.UpdateStatus(ctx, "d-1", domain.StatusDelivered, "ph-1"))

	snap := f.provider.Snapshot()
	require.Empty(t, snap.Mine)
	require.Contains(t, snap.History, "d-1")
	require.Equal(t, domain.StatusDelivered, snap.History["d-1"].Status)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	err := f.provider.UpdateStatus(context.Background(), "d-1", domain.OrderStatus("lost"), "")
	require.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestClearOrders_ResetsDedupState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	list := []domain.Order{batched("d-1", "B1")}
	f.gw.EXPECT().AvailableOrders(gomock.Any()).Return(list, nil).Times(2)

	_, err := f.provider.RefreshOrders(ctx, true)
	require.NoError(t, err)
	require.Len(t, f.alerts, 1)

	f.provider.ClearOrders()
	require.Empty(t, f.provider.Snapshot().Available)

	// the same batch alerts again after a wipe
	_, err = f.provider.RefreshOrders(ctx, true)
	require.NoError(t, err)
	require.Len(t, f.alerts, 2)
}

func TestDriverOrdersEvictsFromAvailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.Upsert(store.Available, available("d-1", "N-1")))
	f.gw.EXPECT().DriverOrders(gomock.Any()).Return([]domain.Order{{ID: "d-1", Status: domain.StatusAssigned}}, nil)

	_, err := f.provider.DriverOrders(ctx, true)
	require.NoError(t, err)

	snap := f.provider.Snapshot()
	require.Empty(t, snap.Available)
	require.Contains(t, snap.Mine, "d-1")
}

func TestOrderHistory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	done := available("d-1", "N-1")
	done.Status = domain.StatusDelivered
	f.gw.EXPECT().OrderHistory(gomock.Any()).Return([]domain.Order{done}, nil)

	got, err := f.provider.OrderHistory(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Contains(t, f.provider.Snapshot().History, "d-1")
}
