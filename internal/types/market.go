package types

import "time"

// MarketSnapshot is the current quote for a symbol.
type MarketSnapshot struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Price      float64   `json:"current_price"`
	Change     float64   `json:"change"`
	ChangeRate float64   `json:"change_rate"`
	Volume     int64     `json:"volume"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Open       float64   `json:"open"`
	PrevClose  float64   `json:"prev_close"`
	Time       time.Time `json:"time"`
	// Synthetic is set when the quote came from the fallback generator
	Synthetic bool `json:"synthetic"`
}

// DailyBar is one daily candle.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// OrderBook holds the best ask and bid levels, best first.
type OrderBook struct {
	Symbol string           `json:"symbol"`
	Asks   []OrderBookLevel `json:"asks"`
	Bids   []OrderBookLevel `json:"bids"`
}

type RankingKind string

const (
	RankingKindFluctuation RankingKind = "fluctuation"
	RankingKindVolume      RankingKind = "volume"
	RankingKindMarketCap   RankingKind = "market_cap"
)

// RankEntry is one row of a brokerage ranking list.
type RankEntry struct {
	Rank       int     `json:"rank"`
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Price      float64 `json:"current_price"`
	ChangeRate float64 `json:"change_rate"`
	Volume     int64   `json:"volume"`
}

type MarketStatus struct {
	IsOpen      bool      `json:"is_open"`
	CurrentTime time.Time `json:"current_time"`
	MarketHours string    `json:"market_hours"`
	NextOpen    time.Time `json:"next_open"`
}
