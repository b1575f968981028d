package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitties/internal/ledger/service"
	"kitties/internal/ledger/store/memory"
	id "kitties/pkg/domain"
	"kitties/pkg/platform/events"
	eventsmemory "kitties/pkg/platform/events/store/memory"
	"kitties/pkg/testutil"
)

func newRouter(t *testing.T, lister EventLister) (*chi.Mux, *service.Service) {
	t.Helper()
	svc, err := service.New(memory.New())
	require.NoError(t, err)

	r := chi.NewRouter()
	New(svc, lister, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r, svc
}

func TestHandleBalance(t *testing.T) {
	router, svc := newRouter(t, nil)
	account := id.NewAccountID()
	ctx := context.Background()

	_, err := svc.Deposit(ctx, account, 2500)
	require.NoError(t, err)
	require.NoError(t, svc.Reserve(ctx, account, 1000))

	t.Run("returns free and reserved", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/"+account.String()+"/balance", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[BalanceResponse](t, rr)
		assert.Equal(t, uint64(1500), resp.Free)
		assert.Equal(t, uint64(1000), resp.Reserved)
	})

	t.Run("unknown account has an empty balance", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/"+id.NewAccountID().String()+"/balance", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[BalanceResponse](t, rr)
		assert.Zero(t, resp.Free)
		assert.Zero(t, resp.Reserved)
	})

	t.Run("malformed account", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/x/balance", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_input")
	})

	t.Run("events route is absent without a lister", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/"+account.String()+"/events", nil))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleEvents(t *testing.T) {
	store := eventsmemory.NewInMemoryStore()
	router, _ := newRouter(t, store)
	sender := id.NewAccountID()
	receiver := id.NewAccountID()
	ctx := context.Background()

	require.NoError(t, store.Publish(ctx,
		events.Event{Kind: events.KindKittyCreated, Account: sender, KittyID: 0, Timestamp: time.Now()},
		events.Event{Kind: events.KindKittyTransferred, Account: sender, Counterparty: receiver, KittyID: 0, Timestamp: time.Now()},
	))

	t.Run("receiver sees the transfer", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/"+receiver.String()+"/events", nil))

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := testutil.UnmarshalResponse[EventsResponse](t, rr)
		require.Len(t, resp.Events, 1)
		assert.Equal(t, events.KindKittyTransferred, resp.Events[0].Kind)
	})

	t.Run("sender sees both", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/"+sender.String()+"/events", nil))
		assert.Len(t, testutil.UnmarshalResponse[EventsResponse](t, rr).Events, 2)
	})

	t.Run("uninvolved account sees an empty list", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/"+id.NewAccountID().String()+"/events", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"events":[]`)
	})
}
