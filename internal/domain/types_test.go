package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalOf(t *testing.T) {
	items := []*FoodItemEstimate{
		{Name: "Grilled Chicken", Calories: 200, ProteinGrams: 30, CarbsGrams: 0, FatGrams: 8},
		{Name: "Rice", Calories: 350, ProteinGrams: 7, CarbsGrams: 74, FatGrams: 1.5},
	}

	total := TotalOf(items)

	assert.Equal(t, 550.0, total.Calories)
	assert.Equal(t, 37.0, total.ProteinGrams)
	assert.Equal(t, 74.0, total.CarbsGrams)
	assert.Equal(t, 9.5, total.FatGrams)
}

func TestTotalOfEmpty(t *testing.T) {
	total := TotalOf(nil)

	assert.Zero(t, total.Calories)
	assert.Zero(t, total.ProteinGrams)
	assert.Zero(t, total.CarbsGrams)
	assert.Zero(t, total.FatGrams)
}
