package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

// SignalAction is the side of a trading signal.
type SignalAction string

const (
	// SignalActionBuy tells the engine to place a buy order
	SignalActionBuy SignalAction = "BUY"
	// SignalActionSell tells the engine to place a sell order
	SignalActionSell SignalAction = "SELL"
)

// OrderKind is the brokerage ORD_DVSN code.
type OrderKind string

const (
	OrderKindLimit  OrderKind = "00"
	OrderKindMarket OrderKind = "01"
)

// validOrderKinds lists the ORD_DVSN codes accepted for cash orders.
var validOrderKinds = map[OrderKind]struct{}{
	"00": {}, "01": {}, "02": {}, "03": {}, "05": {},
	"06": {}, "07": {}, "10": {}, "13": {}, "16": {},
}

// IsValid reports whether k is an accepted order division code.
func (k OrderKind) IsValid() bool {
	_, ok := validOrderKinds[k]

	return ok
}

// Signal is a trade decision for one symbol at one instant.
type Signal struct {
	// ID uniquely identifies the signal in the journal
	ID string `json:"id" validate:"required"`
	// Action is BUY or SELL
	Action SignalAction `json:"action" validate:"required,oneof=BUY SELL"`
	// Symbol is the 6 digit stock code
	Symbol string `json:"symbol" validate:"required,len=6,numeric"`
	// Quantity is the number of shares
	Quantity int `json:"quantity" validate:"gt=0"`
	// Price is the order price
	Price float64 `json:"price" validate:"gte=0"`
	// OrderKind is the ORD_DVSN code
	OrderKind OrderKind `json:"order_kind" validate:"required"`
	// StrategyName is the strategy that produced the signal
	StrategyName string `json:"strategy_name"`
	// Reason is a human readable explanation
	Reason string `json:"reason"`
	// Time is when the signal was produced
	Time time.Time `json:"time"`
}

// NewSignal creates a signal with a fresh ID and the current time.
func NewSignal(action SignalAction, symbol string, quantity int, price float64, kind OrderKind) Signal {
	if kind == "" {
		kind = OrderKindLimit
	}

	return Signal{
		ID:        uuid.New().String(),
		Action:    action,
		Symbol:    symbol,
		Quantity:  quantity,
		Price:     price,
		OrderKind: kind,
		Time:      time.Now(),
	}
}

// Validate validates the Signal struct.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid signal", err)
	}

	if !s.OrderKind.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "invalid order kind %q", s.OrderKind)
	}

	return nil
}
