package broker

import (
	"context"
	"strconv"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

const (
	PathOrderCash    = "/uapi/domestic-stock/v1/trading/order-cash"
	PathOrderRvsCncl = "/uapi/domestic-stock/v1/trading/order-rvsecncl"
	PathDailyCcld    = "/uapi/domestic-stock/v1/trading/inquire-daily-ccld"
	TrIDOrderCash    = "TTTC0802U"
	TrIDOrderRvsCncl = "TTTC0803U"
	TrIDDailyCcld    = "TTTC8001R"
	sideCodeSell     = "01"
	sideCodeBuy      = "02"
	cancelCode       = "02"
)

type orderOutput struct {
	OrgNo     string `json:"KRX_FWDG_ORD_ORGNO"`
	OrderNo   string `json:"ODNO"`
	OrderTime string `json:"ORD_TMD"`
}

type orderHistoryOutput struct {
	OrderNo     string `json:"odno"`
	Symbol      string `json:"pdno"`
	Name        string `json:"prdt_name"`
	Side        string `json:"sll_buy_dvsn_cd_name"`
	OrderQty    string `json:"ord_qty"`
	FilledQty   string `json:"tot_ccld_qty"`
	OrderPrice  string `json:"ord_unpr"`
	FilledPrice string `json:"avg_prvs"`
	OrderDate   string `json:"ord_dt"`
	OrderTime   string `json:"ord_tmd"`
}

func (c *Client) requireAccount() error {
	if c.account.CANO == "" {
		return errors.New(errors.ErrCodeInvalidAccount, "account number is not configured")
	}

	return nil
}

// PlaceOrder submits a cash order. Order submission never falls back to
// synthetic data.
func (c *Client) PlaceOrder(ctx context.Context, order types.OrderRequest) (types.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	if err := c.requireAccount(); err != nil {
		return types.OrderResult{}, err
	}

	kind := order.Kind
	if kind == "" {
		kind = types.OrderKindLimit
	}

	sideCode := sideCodeBuy
	if order.Side == types.SignalActionSell {
		sideCode = sideCodeSell
	}

	price := formatPrice(order.Price)
	if kind == types.OrderKindMarket {
		price = "0"
	}

	env, err := c.Do(ctx, Post(PathOrderCash, TrIDOrderCash, map[string]string{
		"CANO":            c.account.CANO,
		"ACNT_PRDT_CD":    c.account.ProductCode,
		"PDNO":            order.Symbol,
		"ORD_DVSN":        string(kind),
		"ORD_QTY":         strconv.Itoa(order.Quantity),
		"ORD_UNPR":        price,
		"SLL_BUY_DVSN_CD": sideCode,
	}))
	if err != nil {
		return types.OrderResult{}, err
	}

	var out orderOutput
	if err := env.DecodeOutput(&out); err != nil {
		return types.OrderResult{}, err
	}

	return types.OrderResult{OrderNo: out.OrderNo, OrderTime: out.OrderTime}, nil
}

// CancelOrder cancels the full remaining quantity of orderNo.
func (c *Client) CancelOrder(ctx context.Context, orderNo string) (types.OrderResult, error) {
	if orderNo == "" {
		return types.OrderResult{}, errors.New(errors.ErrCodeInvalidOrder, "order number is required")
	}

	if err := c.requireAccount(); err != nil {
		return types.OrderResult{}, err
	}

	env, err := c.Do(ctx, Post(PathOrderRvsCncl, TrIDOrderRvsCncl, map[string]string{
		"CANO":               c.account.CANO,
		"ACNT_PRDT_CD":       c.account.ProductCode,
		"KRX_FWDG_ORD_ORGNO": "",
		"ORGN_ODNO":          orderNo,
		"ORD_DVSN":           string(types.OrderKindLimit),
		"RVSE_CNCL_DVSN_CD":  cancelCode,
		"ORD_QTY":            "0",
		"ORD_UNPR":           "0",
		"QTY_ALL_ORD_YN":     "Y",
	}))
	if err != nil {
		return types.OrderResult{}, err
	}

	var out orderOutput
	if err := env.DecodeOutput(&out); err != nil {
		return types.OrderResult{}, err
	}

	return types.OrderResult{OrderNo: out.OrderNo, OrderTime: out.OrderTime}, nil
}

// GetOrderHistory returns orders placed between start and end. Zero times
// select today.
func (c *Client) GetOrderHistory(ctx context.Context, start, end time.Time) ([]types.OrderHistoryEntry, error) {
	if err := c.requireAccount(); err != nil {
		return nil, err
	}

	today := time.Now().In(market.Seoul)
	if start.IsZero() {
		start = today
	}

	if end.IsZero() {
		end = today
	}

	env, err := c.Do(ctx, Get(PathDailyCcld, TrIDDailyCcld, map[string]string{
		"CANO":            c.account.CANO,
		"ACNT_PRDT_CD":    c.account.ProductCode,
		"INQR_STRT_DT":    start.In(market.Seoul).Format(dateLayout),
		"INQR_END_DT":     end.In(market.Seoul).Format(dateLayout),
		"SLL_BUY_DVSN_CD": "00",
		"INQR_DVSN":       "00",
		"PDNO":            "",
		"CCLD_DVSN":       "00",
		"ORD_GNO_BRNO":    "",
		"ODNO":            "",
		"INQR_DVSN_3":     "00",
		"INQR_DVSN_1":     "",
		"CTX_AREA_FK100":  "",
		"CTX_AREA_NK100":  "",
	}))
	if err != nil {
		return nil, err
	}

	var rows []orderHistoryOutput
	if err := env.DecodeOutput1(&rows); err != nil {
		return nil, err
	}

	entries := make([]types.OrderHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, types.OrderHistoryEntry{
			OrderNo:     row.OrderNo,
			Symbol:      row.Symbol,
			Name:        row.Name,
			Side:        row.Side,
			OrderQty:    parseInt(row.OrderQty),
			FilledQty:   parseInt(row.FilledQty),
			OrderPrice:  parseFloat(row.OrderPrice),
			FilledPrice: parseFloat(row.FilledPrice),
			OrderDate:   row.OrderDate,
			OrderTime:   row.OrderTime,
		})
	}

	return entries, nil
}
