package model

// Quote is one entry of the all-symbols ticker feed.
type Quote struct {
	Symbol string
	Price  float64
	Change float64 // fractional 24h change, e.g. -0.031
	Volume float64 // 24h traded value in the quote currency
}
