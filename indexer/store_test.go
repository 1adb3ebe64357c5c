package indexer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"justfriends/core/events"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "events.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndQuery(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	var first, second [32]byte
	first[31], second[31] = 1, 2
	var author [20]byte
	author[19] = 0xC0

	store.Emit(events.ContentCreated{Hash: first, Creator: author, BasePrice: uint256.NewInt(10), IsPaid: true, AccessUnitID: 1})
	store.Emit(events.ContentCreated{Hash: second, Creator: author, BasePrice: uint256.NewInt(20), IsPaid: true, AccessUnitID: 2})
	store.Emit(events.AccessPurchased{Hash: first, Amount: 3, Cost: uint256.NewInt(14)})
	store.Emit(nil)

	all, err := store.Query(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, events.TypeContentCreated, all[0].Type)
	require.Less(t, all[0].ID, all[1].ID)

	created, err := store.Query(ctx, Filter{Type: events.TypeContentCreated, Creator: "0x00000000000000000000000000000000000000C0"})
	require.NoError(t, err)
	require.Len(t, created, 2)

	byHash, err := store.Query(ctx, Filter{Hash: all[0].Hash})
	require.NoError(t, err)
	require.Len(t, byHash, 2)
	attrs, err := byHash[1].Decode()
	require.NoError(t, err)
	require.Equal(t, "3", attrs["amount"])
	require.Equal(t, "14", attrs["cost"])

	page, err := store.Query(ctx, Filter{AfterID: all[0].ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, all[1].ID, page[0].ID)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
	_, err = New(nil)
	require.Error(t, err)
}
