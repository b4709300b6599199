package orderform

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/orderdesk-backend/internal/pricing"
	"github.com/angelmondragon/orderdesk-backend/internal/stock"
	"github.com/angelmondragon/orderdesk-backend/internal/validation"
	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/angelmondragon/orderdesk-backend/pkg/money"
)

// LineView is a cart line with catalog names and FIFO estimates.
type LineView struct {
	Index          int               `json:"index"`
	ProductID      uuid.UUID         `json:"product_id"`
	VariantID      uuid.UUID         `json:"variant_id"`
	ProductName    string            `json:"product_name,omitempty"`
	VariantName    string            `json:"variant_name,omitempty"`
	Quantity       int               `json:"quantity"`
	Rate           float64           `json:"rate"`
	Description    string            `json:"description,omitempty"`
	Amount         float64           `json:"amount"`
	AvailableStock int               `json:"available_stock"`
	EstimatedCost  float64           `json:"estimated_cost"`
	Allocation     *stock.Allocation `json:"allocation,omitempty"`
	Complete       bool              `json:"complete"`
}

// View is everything a client renders for one form.
type View struct {
	Cart         Cart                 `json:"cart"`
	Calculations pricing.Calculations `json:"calculations"`
	Lines        []LineView           `json:"lines"`
	Stock        validation.Result    `json:"stock"`
	Balance      validation.Result    `json:"balance"`
	PointOfSale  bool                 `json:"point_of_sale"`
	CanSubmit    bool                 `json:"can_submit"`
}

// View renders the form. Totals are rounded to cents here and nowhere else.
func (f *Form) View() View {
	cart := f.Cart()
	_, pos := posRegister(cart, f.snap)
	view := View{
		Cart:         cart,
		Calculations: cart.Calculations().Rounded(),
		Lines:        make([]LineView, 0, len(cart.Lines)),
		Stock:        f.stockCheck(),
		Balance:      f.balanceCheck(),
		PointOfSale:  pos,
	}
	for i, line := range cart.Lines {
		lv := LineView{
			Index:       i,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Description: line.Description,
			Amount:      money.Round2(line.Amount()),
			Complete:    line.Complete(),
		}
		if variant, product, ok := f.snap.Variant(line.VariantID); ok {
			lv.ProductName = product.Name
			lv.VariantName = variant.Name
			lv.AvailableStock = variant.AvailableStock()
			lv.EstimatedCost = stock.WeightedPrice(variant.Lots, line.Quantity)
			if cart.OrderType == enums.OrderTypeSell {
				alloc := stock.Allocate(variant.Lots, line.Quantity)
				lv.Allocation = &alloc
			}
		}
		view.Lines = append(view.Lines, lv)
	}
	if cart.Stage == enums.FormStageSummary {
		probe := &Form{cart: cart.clone(), snap: f.snap}
		view.CanSubmit = probe.SubmitReady() == nil
	}
	return view
}
