package orderform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/types"
)

func TestViewEstimatesFIFOCostForSellLines(t *testing.T) {
	c := newCatalog()
	f := c.form(enums.OrderTypeSell)
	require.NoError(t, f.AddLine(LineInput{VariantID: c.riceID, Quantity: 7}))

	view := f.View()
	require.Len(t, view.Lines, 1)
	line := view.Lines[0]
	assert.Equal(t, "Rice", line.ProductName)
	assert.Equal(t, "5kg", line.VariantName)
	assert.Equal(t, 15, line.AvailableStock)
	assert.Equal(t, 10.5714, line.EstimatedCost)
	require.NotNil(t, line.Allocation)
	require.Len(t, line.Allocation.Takes, 2)
	assert.Equal(t, 2, line.Allocation.Takes[1].Quantity)
	assert.Equal(t, 105.0, view.Calculations.SubTotal)
	assert.True(t, view.Stock.IsValid)
	assert.False(t, view.CanSubmit)
}

func TestViewReportsShortfallAndPointOfSale(t *testing.T) {
	c := newCatalog()
	f := c.form(enums.OrderTypeSell)
	require.NoError(t, f.AddLine(LineInput{VariantID: c.riceID, Quantity: 16}))
	require.NoError(t, f.SetDetails(DetailsInput{EntityID: types.SetUUID(c.walkInID)}))

	view := f.View()
	assert.True(t, view.PointOfSale)
	assert.Equal(t, 0.0, view.Lines[0].EstimatedCost, "uncovered requests are not priced")
	assert.Equal(t, 1, view.Lines[0].Allocation.Shortfall)
	assert.False(t, view.Stock.IsValid)
}

func TestViewOmitsAllocationForBuyLines(t *testing.T) {
	c := newCatalog()
	f := c.form(enums.OrderTypeBuy)
	require.NoError(t, f.AddLine(LineInput{VariantID: c.riceID, Quantity: 2}))
	assert.Nil(t, f.View().Lines[0].Allocation)
}

func TestViewCanSubmitFromReadySummary(t *testing.T) {
	c := newCatalog()
	view := summaryForm(t, c).View()
	assert.True(t, view.CanSubmit)
	assert.Equal(t, 0.0, view.Calculations.RemainingAmount)
}
