package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

type OrderStatus string

const (
	OrderStatusExecuted OrderStatus = "EXECUTED"
	OrderStatusFailed   OrderStatus = "FAILED"
	OrderStatusSkipped  OrderStatus = "SKIPPED"
)

// OrderRequest is a cash order sent to the brokerage.
type OrderRequest struct {
	Symbol   string       `json:"symbol" validate:"required,len=6,numeric"`
	Side     SignalAction `json:"side" validate:"required,oneof=BUY SELL"`
	Quantity int          `json:"quantity" validate:"gte=1"`
	Price    float64      `json:"price" validate:"gte=0"`
	Kind     OrderKind    `json:"order_kind"`
}

// Validate validates the OrderRequest struct.
func (o *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if o.Kind != "" && !o.Kind.IsValid() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "invalid order kind %q", o.Kind)
	}

	return nil
}

// OrderRequestFromSignal converts a signal into the order that executes it.
func OrderRequestFromSignal(s Signal) OrderRequest {
	return OrderRequest{
		Symbol:   s.Symbol,
		Side:     s.Action,
		Quantity: s.Quantity,
		Price:    s.Price,
		Kind:     s.OrderKind,
	}
}

// OrderResult is the brokerage acknowledgement of an order.
type OrderResult struct {
	OrderNo   string `json:"order_no"`
	OrderTime string `json:"order_time"`
}

// OrderOutcome records what happened to one signal in a trading cycle.
type OrderOutcome struct {
	Signal   Signal      `json:"signal"`
	Status   OrderStatus `json:"status"`
	OrderNo  string      `json:"order_no,omitempty"`
	Error    string      `json:"error,omitempty"`
	Strategy string      `json:"strategy"`
	Time     time.Time   `json:"time"`
}

// OrderHistoryEntry is one row of the daily order history.
type OrderHistoryEntry struct {
	OrderNo     string  `json:"order_no"`
	Symbol      string  `json:"symbol"`
	Name        string  `json:"name"`
	Side        string  `json:"side"`
	OrderQty    int     `json:"order_qty"`
	FilledQty   int     `json:"filled_qty"`
	OrderPrice  float64 `json:"order_price"`
	FilledPrice float64 `json:"filled_price"`
	OrderDate   string  `json:"order_date"`
	OrderTime   string  `json:"order_time"`
}
