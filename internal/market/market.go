// Package market implements the traded-index price model. A Market is not
// a strategic agent — it only responds to net flow, noise, and momentum.
package market

import "banksim/internal/indicators"

const (
	defaultPriceSensitivity = 0.002
	defaultVolatility       = 0.03
	priceFloor              = 1.0
)

// Market is a single tradable index.
type Market struct {
	ID            string
	Name          string
	InitialPrice  float64
	Price         float64
	TotalInvested float64

	PriceSensitivity float64
	Volatility       float64

	history     *indicators.Window
	flowHistory []float64
}

// New creates a market at the given initial price, using default
// sensitivity and volatility.
func New(id, name string, initialPrice float64) *Market {
	return &Market{
		ID:               id,
		Name:             name,
		InitialPrice:     initialPrice,
		Price:            initialPrice,
		PriceSensitivity: defaultPriceSensitivity,
		Volatility:       defaultVolatility,
		history:          indicators.NewWindow(initialPrice),
	}
}

// UniformSource is the minimal randomness a Market needs: one draw in
// [lo, hi) per flow application. Satisfied by *rng.Source.
type UniformSource interface {
	Uniform(lo, hi float64) float64
}

// ApplyFlow applies net flow for the step: Δ = net·priceSensitivity +
// uniform(−volatility, +volatility)·price + momentum. Price floors at 1.0.
func (m *Market) ApplyFlow(net float64, src UniformSource) float64 {
	momentum := m.history.Momentum()
	noise := src.Uniform(-m.Volatility, m.Volatility) * m.Price
	delta := net*m.PriceSensitivity + noise + momentum

	newPrice := m.Price + delta
	if newPrice < priceFloor {
		newPrice = priceFloor
	}
	m.Price = newPrice
	m.history.Append(newPrice)
	m.flowHistory = append(m.flowHistory, net)
	m.TotalInvested += net
	return delta
}

// Haircut applies an immediate proportional price cut, used by a
// system-wide shock rather than ordinary flow-driven price formation.
// Floors at 1.0 like ApplyFlow.
func (m *Market) Haircut(pct float64) {
	newPrice := m.Price * (1 - pct)
	if newPrice < priceFloor {
		newPrice = priceFloor
	}
	m.Price = newPrice
	m.history.Append(newPrice)
}

// Return reports the cumulative fractional change from the market's
// initial price to its current price. 0 if InitialPrice is 0.
func (m *Market) Return() float64 {
	if m.InitialPrice == 0 {
		return 0
	}
	return (m.Price - m.InitialPrice) / m.InitialPrice
}

// PriceHistory returns the recorded price series, oldest first.
func (m *Market) PriceHistory() []float64 {
	out := make([]float64, 0, m.history.Len())
	for i := 0; i < m.history.Len(); i++ {
		out = append(out, m.history.At(i))
	}
	return out
}
