package broker

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/internal/types"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

const (
	PathInquirePrice   = "/uapi/domestic-stock/v1/quotations/inquire-price"
	PathAskingPrice    = "/uapi/domestic-stock/v1/quotations/inquire-asking-price-exp-ccn"
	PathDailyChart     = "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice"
	PathVolumeRank     = "/uapi/domestic-stock/v1/quotations/volume-rank"
	PathFluctuation    = "/uapi/domestic-stock/v1/ranking/fluctuation"
	PathMarketCap      = "/uapi/domestic-stock/v1/ranking/market-cap"
	PathSearchStock    = "/uapi/domestic-stock/v1/quotations/search-stock-info"
	TrIDInquirePrice   = "FHKST01010100"
	TrIDAskingPrice    = "FHKST01010200"
	TrIDDailyChart     = "FHKST03010100"
	TrIDVolumeRank     = "FHPST01710000"
	TrIDFluctuation    = "FHPST01700000"
	TrIDMarketCap      = "FHPST01740000"
	TrIDSearchStock    = "CTPF1002R"
	marketDivKRX       = "J"
	dateLayout         = "20060102"
	orderBookDepth     = 10
	defaultRankingSize = 100
)

type priceOutput struct {
	Name      string `json:"hts_kor_isnm"`
	Price     string `json:"stck_prpr"`
	Change    string `json:"prdy_vrss"`
	ChangeRt  string `json:"prdy_ctrt"`
	Volume    string `json:"acml_vol"`
	High      string `json:"stck_hgpr"`
	Low       string `json:"stck_lwpr"`
	Open      string `json:"stck_oprc"`
	PrevClose string `json:"prdy_clpr"`
}

type dailyBarOutput struct {
	Date   string `json:"stck_bsop_date"`
	Open   string `json:"stck_oprc"`
	High   string `json:"stck_hgpr"`
	Low    string `json:"stck_lwpr"`
	Close  string `json:"stck_clpr"`
	Volume string `json:"acml_vol"`
}

type rankOutput struct {
	Rank     string `json:"data_rank"`
	Symbol   string `json:"mksc_shrn_iscd"`
	Name     string `json:"hts_kor_isnm"`
	Price    string `json:"stck_prpr"`
	ChangeRt string `json:"prdy_ctrt"`
	Volume   string `json:"acml_vol"`
}

type stockInfoOutput struct {
	Name string `json:"prdt_name"`
}

// ValidateSymbol checks for a 6 digit KRX stock code.
func ValidateSymbol(symbol string) error {
	if len(symbol) != 6 {
		return errors.Newf(errors.ErrCodeInvalidSymbol, "invalid stock code %q", symbol)
	}

	for _, r := range symbol {
		if r < '0' || r > '9' {
			return errors.Newf(errors.ErrCodeInvalidSymbol, "invalid stock code %q", symbol)
		}
	}

	return nil
}

// GetCurrentPrice returns the current quote for symbol.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (types.MarketSnapshot, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return types.MarketSnapshot{}, err
	}

	req := Get(PathInquirePrice, TrIDInquirePrice, map[string]string{
		"fid_cond_mrkt_div_code": marketDivKRX,
		"fid_input_iscd":         symbol,
	})
	req.AllowFallback = true

	env, err := c.Do(ctx, req)
	if err != nil {
		return types.MarketSnapshot{}, err
	}

	var out priceOutput
	if err := env.DecodeOutput(&out); err != nil {
		return types.MarketSnapshot{}, err
	}

	return types.MarketSnapshot{
		Symbol:     symbol,
		Name:       out.Name,
		Price:      parseFloat(out.Price),
		Change:     parseFloat(out.Change),
		ChangeRate: parseFloat(out.ChangeRt),
		Volume:     parseInt64(out.Volume),
		High:       parseFloat(out.High),
		Low:        parseFloat(out.Low),
		Open:       parseFloat(out.Open),
		PrevClose:  parseFloat(out.PrevClose),
		Time:       time.Now(),
		Synthetic:  env.Synthetic,
	}, nil
}

// GetOrderBook returns up to ten ask and bid levels for symbol.
func (c *Client) GetOrderBook(ctx context.Context, symbol string) (types.OrderBook, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return types.OrderBook{}, err
	}

	req := Get(PathAskingPrice, TrIDAskingPrice, map[string]string{
		"fid_cond_mrkt_div_code": marketDivKRX,
		"fid_input_iscd":         symbol,
	})
	req.AllowFallback = true

	env, err := c.Do(ctx, req)
	if err != nil {
		return types.OrderBook{}, err
	}

	levels := map[string]string{}
	if err := env.DecodeOutput1(&levels); err != nil {
		return types.OrderBook{}, err
	}

	if len(levels) == 0 {
		if err := env.DecodeOutput(&levels); err != nil {
			return types.OrderBook{}, err
		}
	}

	book := types.OrderBook{Symbol: symbol}

	for i := 1; i <= orderBookDepth; i++ {
		n := strconv.Itoa(i)

		if price := parseFloat(levels["askp"+n]); price > 0 {
			book.Asks = append(book.Asks, types.OrderBookLevel{Price: price, Quantity: parseInt64(levels["askp_rsqn"+n])})
		}

		if price := parseFloat(levels["bidp"+n]); price > 0 {
			book.Bids = append(book.Bids, types.OrderBookLevel{Price: price, Quantity: parseInt64(levels["bidp_rsqn"+n])})
		}
	}

	return book, nil
}

// GetDailyPrices returns daily bars between start and end, oldest first.
func (c *Client) GetDailyPrices(ctx context.Context, symbol string, start, end time.Time) ([]types.DailyBar, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}

	req := Get(PathDailyChart, TrIDDailyChart, map[string]string{
		"FID_COND_MRKT_DIV_CODE": marketDivKRX,
		"FID_INPUT_ISCD":         symbol,
		"FID_INPUT_DATE_1":       start.In(market.Seoul).Format(dateLayout),
		"FID_INPUT_DATE_2":       end.In(market.Seoul).Format(dateLayout),
		"FID_PERIOD_DIV_CODE":    "D",
		"FID_ORG_ADJ_PRC":        "0",
	})
	req.AllowFallback = true

	env, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var rows []dailyBarOutput
	if err := env.DecodeOutput2(&rows); err != nil {
		return nil, err
	}

	bars := make([]types.DailyBar, 0, len(rows))

	for _, row := range rows {
		date, err := time.ParseInLocation(dateLayout, row.Date, market.Seoul)
		if err != nil {
			continue
		}

		closePrice := parseFloat(row.Close)
		if closePrice <= 0 {
			continue
		}

		bars = append(bars, types.DailyBar{
			Date:   date,
			Open:   parseFloat(row.Open),
			High:   parseFloat(row.High),
			Low:    parseFloat(row.Low),
			Close:  closePrice,
			Volume: parseInt64(row.Volume),
		})
	}

	// the brokerage answers newest first
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

// GetRanking returns a ranking list of the given kind.
func (c *Client) GetRanking(ctx context.Context, kind types.RankingKind) ([]types.RankEntry, error) {
	req, err := rankingRequest(kind)
	if err != nil {
		return nil, err
	}

	req.AllowFallback = true

	env, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	var rows []rankOutput
	if err := env.DecodeOutput(&rows); err != nil {
		return nil, err
	}

	entries := make([]types.RankEntry, 0, len(rows))

	for i, row := range rows {
		rank := parseInt(row.Rank)
		if rank == 0 {
			rank = i + 1
		}

		entries = append(entries, types.RankEntry{
			Rank:       rank,
			Symbol:     row.Symbol,
			Name:       row.Name,
			Price:      parseFloat(row.Price),
			ChangeRate: parseFloat(row.ChangeRt),
			Volume:     parseInt64(row.Volume),
		})
	}

	return entries, nil
}

// GetStockName looks up the product name of symbol.
func (c *Client) GetStockName(ctx context.Context, symbol string) (string, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return "", err
	}

	env, err := c.Do(ctx, Get(PathSearchStock, TrIDSearchStock, map[string]string{
		"PRDT_TYPE_CD": "300",
		"PDNO":         symbol,
	}))
	if err != nil {
		return "", err
	}

	var out stockInfoOutput
	if err := env.DecodeOutput(&out); err != nil {
		return "", err
	}

	return out.Name, nil
}

func rankingRequest(kind types.RankingKind) (Request, error) {
	switch kind {
	case types.RankingKindVolume:
		return Get(PathVolumeRank, TrIDVolumeRank, map[string]string{
			"FID_COND_MRKT_DIV_CODE": marketDivKRX,
			"FID_COND_SCR_DIV_CODE":  "20171",
			"FID_INPUT_ISCD":         "0000",
			"FID_DIV_CLS_CODE":       "0",
			"FID_BLNG_CLS_CODE":      "0",
			"FID_TRGT_CLS_CODE":      "000000000",
			"FID_TRGT_EXLS_CLS_CODE": "0000000000",
			"FID_INPUT_PRICE_1":      "",
			"FID_INPUT_PRICE_2":      "",
			"FID_VOL_CNT":            "",
			"FID_INPUT_DATE_1":       "",
		}), nil
	case types.RankingKindFluctuation, "":
		return Get(PathFluctuation, TrIDFluctuation, map[string]string{
			"fid_cond_mrkt_div_code": marketDivKRX,
			"fid_cond_scr_div_code":  "20170",
			"fid_input_iscd":         "0000",
			"fid_rank_sort_cls_code": "0000",
			"fid_input_cnt_1":        strconv.Itoa(defaultRankingSize),
			"fid_prc_cls_code":       "0",
			"fid_input_price_1":      "",
			"fid_input_price_2":      "",
			"fid_vol_cnt":            "",
			"fid_trgt_cls_code":      "0",
			"fid_trgt_exls_cls_code": "0",
			"fid_div_cls_code":       "0",
			"fid_rsfl_rate1":         "",
			"fid_rsfl_rate2":         "",
		}), nil
	case types.RankingKindMarketCap:
		return Get(PathMarketCap, TrIDMarketCap, map[string]string{
			"fid_cond_mrkt_div_code": marketDivKRX,
			"fid_cond_scr_div_code":  "20174",
			"fid_div_cls_code":       "0",
			"fid_input_iscd":         "0000",
			"fid_trgt_cls_code":      "0",
			"fid_trgt_exls_cls_code": "0",
			"fid_input_price_1":      "",
			"fid_input_price_2":      "",
			"fid_vol_cnt":            "",
		}), nil
	default:
		return Request{}, errors.Newf(errors.ErrCodeInvalidParameter, "unknown ranking kind %q", kind)
	}
}
