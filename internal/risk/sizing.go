package risk

// Size is the result of position sizing.
type Size struct {
	SOL    float64
	Tokens float64
}

// SizePosition computes the entry size from available capital.
// tradeable = max(0, available - reserve); SOL = tradeable * sizePercent/100.
func SizePosition(availableSOL, reserveSOL, sizePercent, price float64) Size {
	tradeable := availableSOL - reserveSOL
	if tradeable <= 0 || sizePercent <= 0 {
		return Size{}
	}
	sol := tradeable * sizePercent / 100
	if sol > tradeable {
		sol = tradeable
	}
	s := Size{SOL: sol}
	if price > 0 {
		s.Tokens = sol / price
	}
	return s
}

// FeeModel applies a symmetric fee rate to SOL moved on entry and exit.
type FeeModel struct {
	Rate float64 // fraction, 0.0125 = 1.25%
}

// NewFeeModel builds a FeeModel from a percent value.
func NewFeeModel(feePercent float64) FeeModel {
	return FeeModel{Rate: feePercent / 100}
}

// Settlement is the full fee breakdown of a round trip.
type Settlement struct {
	EntryFeeSOL float64
	GrossExit   float64
	ExitFeeSOL  float64
	NetExit     float64
	PnLSOL      float64
	PnLPercent  float64
}

// Settle computes the realized result of selling tokens at exitPrice after entering with entrySOL.
// pnl = (gross - exit fee) - entrySOL - entry fee.
func (f FeeModel) Settle(entrySOL, tokens, exitPrice float64) Settlement {
	s := Settlement{
		EntryFeeSOL: entrySOL * f.Rate,
		GrossExit:   exitPrice * tokens,
	}
	s.ExitFeeSOL = s.GrossExit * f.Rate
	s.NetExit = s.GrossExit - s.ExitFeeSOL
	s.PnLSOL = s.NetExit - entrySOL - s.EntryFeeSOL
	if entrySOL > 0 {
		s.PnLPercent = s.PnLSOL / entrySOL * 100
	}
	return s
}

// Estimate is a pre-trade profitability estimate.
type Estimate struct {
	GrossProfitSOL float64
	FeesSOL        float64
	NetProfitSOL   float64
	NetPercent     float64
	BreakevenPrice float64
}

// ExpectedProfit estimates the result of a round trip from entryPrice to targetPrice.
func (f FeeModel) ExpectedProfit(entryPrice, targetPrice, positionSOL float64) Estimate {
	if entryPrice <= 0 || positionSOL <= 0 {
		return Estimate{}
	}
	tokens := positionSOL / entryPrice
	s := f.Settle(positionSOL, tokens, targetPrice)
	e := Estimate{
		GrossProfitSOL: s.GrossExit - positionSOL,
		FeesSOL:        s.EntryFeeSOL + s.ExitFeeSOL,
		NetProfitSOL:   s.PnLSOL,
		NetPercent:     s.PnLPercent,
	}
	// net zero when price*tokens*(1-r) = sol*(1+r)
	if f.Rate < 1 {
		e.BreakevenPrice = entryPrice * (1 + f.Rate) / (1 - f.Rate)
	}
	return e
}
