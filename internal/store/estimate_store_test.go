package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platelens/platelens/internal/domain"
)

func TestEstimateStoreReplace(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	session, err := NewSessionStore(d).Create(ctx)
	require.NoError(t, err)

	store := NewEstimateStore(d)
	items, err := store.Replace(ctx, session.ID, []*domain.FoodItemEstimate{
		{Name: "Grilled Chicken Breast", Portion: "1 large breast", Calories: 200, ProteinGrams: 35, CarbsGrams: 4, FatGrams: 2.5},
		{Name: "White Rice", Portion: "1 cup", Calories: 350, ProteinGrams: 2, CarbsGrams: 70, FatGrams: 7},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Grilled Chicken Breast", items[0].Name)
	assert.Equal(t, "White Rice", items[1].Name)
	assert.NotZero(t, items[0].ID)
	assert.Equal(t, session.ID, items[0].SessionID)
}

func TestEstimateStoreReplaceSwapsExisting(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	session, err := NewSessionStore(d).Create(ctx)
	require.NoError(t, err)

	store := NewEstimateStore(d)
	_, err = store.Replace(ctx, session.ID, []*domain.FoodItemEstimate{
		{Name: "Initial Guess", Calories: 100},
	})
	require.NoError(t, err)

	items, err := store.Replace(ctx, session.ID, []*domain.FoodItemEstimate{
		{Name: "Revised Item A", Calories: 250},
		{Name: "Revised Item B", Calories: 300},
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Revised Item A", items[0].Name)
	assert.Equal(t, "Revised Item B", items[1].Name)

	// The first breakdown must be fully gone, not merged.
	listed, err := store.ListBySessionID(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	for _, item := range listed {
		assert.NotEqual(t, "Initial Guess", item.Name)
	}
}

func TestEstimateStoreListBySessionIDOrder(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	session, err := NewSessionStore(d).Create(ctx)
	require.NoError(t, err)

	store := NewEstimateStore(d)
	_, err = store.Replace(ctx, session.ID, []*domain.FoodItemEstimate{
		{Name: "Zucchini"},
		{Name: "Apple"},
		{Name: "Miso Soup"},
	})
	require.NoError(t, err)

	items, err := store.ListBySessionID(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	// Order follows the breakdown as the model gave it, not alphabetical.
	assert.Equal(t, "Zucchini", items[0].Name)
	assert.Equal(t, "Apple", items[1].Name)
	assert.Equal(t, "Miso Soup", items[2].Name)
}
