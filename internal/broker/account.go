package broker

import (
	"context"

	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const (
	PathInquireBalance = "/uapi/domestic-stock/v1/trading/inquire-balance"
	TrIDInquireBalance = "TTTC8434R"
)

type holdingOutput struct {
	Symbol       string `json:"pdno"`
	Name         string `json:"prdt_name"`
	Quantity     string `json:"hldg_qty"`
	AvgPrice     string `json:"pchs_avg_pric"`
	CurrentPrice string `json:"prpr"`
}

type balanceSummaryOutput struct {
	Cash            string `json:"dnca_tot_amt"`
	Orderable       string `json:"nrcvb_buy_amt"`
	TotalEvaluation string `json:"tot_evlu_amt"`
}

// GetBalance returns cash and holdings for the configured account.
func (c *Client) GetBalance(ctx context.Context) (types.AccountBalance, error) {
	if err := c.requireAccount(); err != nil {
		return types.AccountBalance{}, err
	}

	env, err := c.Do(ctx, Get(PathInquireBalance, TrIDInquireBalance, map[string]string{
		"CANO":                  c.account.CANO,
		"ACNT_PRDT_CD":          c.account.ProductCode,
		"AFHR_FLPR_YN":          "N",
		"OFL_YN":                "",
		"INQR_DVSN":             "02",
		"UNPR_DVSN":             "01",
		"FUND_STTL_ICLD_YN":     "N",
		"FNCG_AMT_AUTO_RDPT_YN": "N",
		"PRCS_DVSN":             "01",
		"CTX_AREA_FK100":        "",
		"CTX_AREA_NK100":        "",
	}))
	if err != nil {
		return types.AccountBalance{}, err
	}

	var holdings []holdingOutput
	if err := env.DecodeOutput1(&holdings); err != nil {
		return types.AccountBalance{}, err
	}

	var summaries []balanceSummaryOutput
	if err := env.DecodeOutput2(&summaries); err != nil {
		return types.AccountBalance{}, err
	}

	balance := types.AccountBalance{}

	if len(summaries) > 0 {
		balance.Cash = parseFloat(summaries[0].Cash)
		balance.Orderable = parseFloat(summaries[0].Orderable)
		balance.TotalEvaluation = parseFloat(summaries[0].TotalEvaluation)
	}

	for _, h := range holdings {
		qty := parseInt(h.Quantity)
		if qty <= 0 {
			continue
		}

		balance.Holdings = append(balance.Holdings, types.Holding{
			Symbol:       h.Symbol,
			Name:         h.Name,
			Quantity:     qty,
			AvgPrice:     parseFloat(h.AvgPrice),
			CurrentPrice: parseFloat(h.CurrentPrice),
		})
	}

	return balance, nil
}
