package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shoplist/internal/shop"
)

func TestCreateList(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1")

	id, err := s.CreateList(ctx)
	require.NoError(t, err)
	assert.Equal(t, "list-1", id)

	l, err := s.GetList(ctx, id)
	require.NoError(t, err)
	assert.True(t, l.Active)
	assert.Equal(t, testEpoch, l.Created)
}

func TestCreateList_RandomIDs(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	a, err := s.CreateList(ctx)
	require.NoError(t, err)
	b, err := s.CreateList(ctx)
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestDeactivateList(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1")

	id, err := s.CreateList(ctx)
	require.NoError(t, err)

	require.NoError(t, s.DeactivateList(ctx, id))

	l, err := s.GetList(ctx, id)
	require.NoError(t, err)
	assert.False(t, l.Active)

	// Deactivation never creates a replacement.
	_, ok, err := s.ActiveListID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := s.CountLists(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeactivateList_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.DeactivateList(context.Background(), "missing")
	assert.True(t, shop.IsNotFound(err), "got %v", err)
}

func TestActivateList(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1")

	id, err := s.CreateList(ctx)
	require.NoError(t, err)
	require.NoError(t, s.DeactivateList(ctx, id))
	require.NoError(t, s.ActivateList(ctx, id))

	got, ok, err := s.ActiveListID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestRemoveList_CascadesAllocations(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1", "item-1")

	listID, err := s.CreateList(ctx)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, listID, shop.ItemInput{Name: "Milk"})
	require.NoError(t, err)

	require.NoError(t, s.RemoveList(ctx, listID))

	exists, err := s.ListExists(ctx, listID)
	require.NoError(t, err)
	assert.False(t, exists)

	var allocations int
	require.NoError(t, s.db.Get(&allocations, "SELECT COUNT(*) FROM item_allocation"))
	assert.Zero(t, allocations)

	// The item itself survives.
	itemExists, err := s.ItemExists(ctx, "Milk")
	require.NoError(t, err)
	assert.True(t, itemExists)
}

func TestRemoveList_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.RemoveList(context.Background(), "missing")
	assert.True(t, shop.IsNotFound(err), "got %v", err)
}

func TestListExists(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1")

	exists, err := s.ListExists(ctx, "list-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.CreateList(ctx)
	require.NoError(t, err)

	exists, err = s.ListExists(ctx, "list-1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetList_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetList(context.Background(), "missing")
	assert.True(t, shop.IsNotFound(err), "got %v", err)
}

func TestActiveListID_NewestWins(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1", "list-2")

	_, err := s.CreateList(ctx)
	require.NoError(t, err)
	_, err = s.CreateList(ctx)
	require.NoError(t, err)

	id, ok, err := s.ActiveListID(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "list-2", id)
}

func TestLists_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1", "list-2", "list-3")

	for i := 0; i < 3; i++ {
		_, err := s.CreateList(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, s.DeactivateList(ctx, "list-1"))

	lists, err := s.Lists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 3)
	assert.Equal(t, "list-3", lists[0].ID)
	assert.Equal(t, "list-1", lists[2].ID)
	assert.False(t, lists[2].Active)
	assert.Equal(t, testEpoch.Add(2*time.Second), lists[0].Created)
}

func TestLists_Empty(t *testing.T) {
	lists, err := createTestStore(t).Lists(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, lists)
	assert.Empty(t, lists)
}

func TestCurrentList_FreshStore(t *testing.T) {
	current, err := createTestStore(t).CurrentList(context.Background())
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestCurrentList_WithItems(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1", "item-1", "item-2")

	listID, err := s.CreateList(ctx)
	require.NoError(t, err)
	_, err = s.AddItem(ctx, listID, shop.ItemInput{Name: "Milk"})
	require.NoError(t, err)
	_, err = s.AddItem(ctx, listID, shop.ItemInput{Name: "Bread", ImagePath: "img/bread.png"})
	require.NoError(t, err)

	current, err := s.CurrentList(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)

	assert.Equal(t, "list-1", current.ID)
	assert.Equal(t, testEpoch, current.Created)
	assert.Equal(t, []shop.Entry{
		{ItemID: "item-2", Name: "Bread", ImagePath: "img/bread.png", Added: testEpoch.Add(2 * time.Second)},
		{ItemID: "item-1", Name: "Milk", Added: testEpoch.Add(time.Second)},
	}, current.Items)
}

func TestCurrentList_OnlyInactiveLists(t *testing.T) {
	ctx := context.Background()
	s := createFixedStore(t, "list-1")

	_, err := s.CreateList(ctx)
	require.NoError(t, err)
	require.NoError(t, s.DeactivateList(ctx, "list-1"))

	current, err := s.CurrentList(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}
