package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "kitties/pkg/domain"
	"kitties/pkg/platform/events"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	alice, bob, carol := id.NewAccountID(), id.NewAccountID(), id.NewAccountID()

	store := NewInMemoryStore()
	require.NoError(t, store.Emit(ctx, events.Event{Kind: events.KindKittyCreated, Account: alice, KittyID: 0}))
	require.NoError(t, store.Publish(ctx,
		events.Event{Kind: events.KindKittyCreated, Account: bob, KittyID: 1},
		events.Event{Kind: events.KindKittyTransferred, Account: alice, Counterparty: bob, KittyID: 0},
	))

	t.Run("list by account matches actor and counterparty", func(t *testing.T) {
		got, err := store.ListByAccount(ctx, bob)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, uint32(1), got[0].KittyID)
		assert.Equal(t, events.KindKittyTransferred, got[1].Kind)

		got, err = store.ListByAccount(ctx, carol)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("list recent keeps order", func(t *testing.T) {
		got, err := store.ListRecent(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, bob, got[0].Account)

		got, err = store.ListRecent(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("clear", func(t *testing.T) {
		store.Clear()
		got, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
