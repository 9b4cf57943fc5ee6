// Package synthetic generates brokerage-shaped quote responses for use when
// the brokerage is unreachable. Prices follow a geometric Brownian motion
// per symbol so consecutive quotes move plausibly.
package synthetic

import (
	"encoding/json"
	"math"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/broker"
	"github.com/rxtech-lab/kis-autotrader/internal/market"
	"github.com/rxtech-lab/kis-autotrader/pkg/errors"
)

const (
	dateLayout        = "20060102"
	defaultHistory    = 30
	minBasePrice      = 50000
	basePriceRange    = 150000
	defaultVolatility = 0.015
	orderBookDepth    = 10
)

// knownStocks is the universe used for synthetic rankings and names.
var knownStocks = []struct {
	Symbol string
	Name   string
}{
	{"005930", "삼성전자"},
	{"000660", "SK하이닉스"},
	{"035420", "NAVER"},
	{"005380", "현대차"},
	{"035720", "카카오"},
	{"051910", "LG화학"},
	{"006400", "삼성SDI"},
	{"068270", "셀트리온"},
	{"207940", "삼성바이오로직스"},
	{"005490", "POSCO홀딩스"},
}

// Config configures the generator.
type Config struct {
	// Seed makes output reproducible
	Seed int64
	// Volatility is the per-step standard deviation of returns (0.015 = 1.5%)
	Volatility float64
	// Trend is the per-step drift
	Trend float64
}

// Generator implements broker.Fallback.
type Generator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	volatility float64
	trend      float64
	prices     map[string]float64
	prevClose  map[string]float64
	now        func() time.Time
}

// NewGenerator creates a Generator.
func NewGenerator(cfg Config) *Generator {
	volatility := cfg.Volatility
	if volatility <= 0 {
		volatility = defaultVolatility
	}

	return &Generator{
		rng:        rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // synthetic prices only
		volatility: volatility,
		trend:      cfg.Trend,
		prices:     map[string]float64{},
		prevClose:  map[string]float64{},
		now:        time.Now,
	}
}

// Respond returns a synthetic envelope for req, shaped like the real
// response for its transaction id.
func (g *Generator) Respond(req broker.Request) (*broker.Envelope, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.TrID {
	case broker.TrIDInquirePrice:
		return envelope(map[string]any{"output": g.quote(param(req, "fid_input_iscd"))})
	case broker.TrIDAskingPrice:
		return envelope(map[string]any{"output1": g.orderBook(param(req, "fid_input_iscd"))})
	case broker.TrIDDailyChart:
		symbol := param(req, "FID_INPUT_ISCD")

		return envelope(map[string]any{
			"output1": map[string]string{"stck_shrn_iscd": symbol, "hts_kor_isnm": Name(symbol)},
			"output2": g.dailyRows(symbol, param(req, "FID_INPUT_DATE_1"), param(req, "FID_INPUT_DATE_2")),
		})
	case broker.TrIDVolumeRank:
		return envelope(map[string]any{"output": g.ranking(byVolume)})
	case broker.TrIDFluctuation:
		return envelope(map[string]any{"output": g.ranking(byFluctuation)})
	case broker.TrIDMarketCap:
		return envelope(map[string]any{"output": g.ranking(byPrice)})
	case broker.TrIDSearchStock:
		return envelope(map[string]any{"output": map[string]string{"prdt_name": Name(param(req, "PDNO"))}})
	default:
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no synthetic data for transaction %s", req.TrID)
	}
}

// Name returns the display name of a known symbol, or the symbol itself.
func Name(symbol string) string {
	for _, s := range knownStocks {
		if s.Symbol == symbol {
			return s.Name
		}
	}

	return symbol
}

func (g *Generator) quote(symbol string) map[string]string {
	prev := g.price(symbol)
	if _, ok := g.prevClose[symbol]; !ok {
		g.prevClose[symbol] = prev
	}

	price := g.step(prev)
	g.prices[symbol] = price

	prevClose := g.prevClose[symbol]
	change := price - prevClose
	rate := 0.0

	if prevClose > 0 {
		rate = change / prevClose * 100
	}

	return map[string]string{
		"hts_kor_isnm": Name(symbol),
		"stck_prpr":    won(price),
		"prdy_vrss":    won(change),
		"prdy_ctrt":    strconv.FormatFloat(roundTo(rate, 2), 'f', 2, 64),
		"acml_vol":     strconv.FormatInt(g.volume(), 10),
		"stck_hgpr":    won(math.Max(price, prevClose) * 1.01),
		"stck_lwpr":    won(math.Min(price, prevClose) * 0.99),
		"stck_oprc":    won(prevClose * (0.99 + g.rng.Float64()*0.02)),
		"prdy_clpr":    won(prevClose),
	}
}

func (g *Generator) orderBook(symbol string) map[string]string {
	price := g.price(symbol)
	levels := map[string]string{}

	for i := 1; i <= orderBookDepth; i++ {
		n := strconv.Itoa(i)
		levels["askp"+n] = won(price * (1 + float64(i)*0.001))
		levels["askp_rsqn"+n] = strconv.Itoa(100 + g.rng.Intn(9900))
		levels["bidp"+n] = won(price * (1 - float64(i)*0.001))
		levels["bidp_rsqn"+n] = strconv.Itoa(100 + g.rng.Intn(9900))
	}

	return levels
}

// dailyRows walks a price path backwards from the current price so the
// newest bar matches live quotes. Rows are newest first.
func (g *Generator) dailyRows(symbol, from, to string) []map[string]string {
	end := g.now().In(market.Seoul)
	if t, err := time.ParseInLocation(dateLayout, to, market.Seoul); err == nil {
		end = t
	}

	start := end.AddDate(0, 0, -defaultHistory)
	if t, err := time.ParseInLocation(dateLayout, from, market.Seoul); err == nil && !t.After(end) {
		start = t
	}

	price := g.price(symbol)
	rows := []map[string]string{}

	for day := end; !day.Before(start); day = day.AddDate(0, 0, -1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}

		closePrice := price
		open := g.step(closePrice)
		rows = append(rows, map[string]string{
			"stck_bsop_date": day.Format(dateLayout),
			"stck_oprc":      won(open),
			"stck_hgpr":      won(math.Max(open, closePrice) * (1 + g.rng.Float64()*g.volatility/2)),
			"stck_lwpr":      won(math.Min(open, closePrice) * (1 - g.rng.Float64()*g.volatility/2)),
			"stck_clpr":      won(closePrice),
			"acml_vol":       strconv.FormatInt(g.volume(), 10),
		})

		price = g.step(open)
	}

	return rows
}

type rankOrder int

const (
	byVolume rankOrder = iota
	byFluctuation
	byPrice
)

func (g *Generator) ranking(order rankOrder) []map[string]string {
	type row struct {
		symbol, name string
		price, rate  float64
		volume       int64
	}

	rows := make([]row, 0, len(knownStocks))

	for _, s := range knownStocks {
		price := g.step(g.price(s.Symbol))
		g.prices[s.Symbol] = price

		rows = append(rows, row{
			symbol: s.Symbol,
			name:   s.Name,
			price:  price,
			rate:   roundTo(g.rng.Float64()*16-8, 2),
			volume: g.volume(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		switch order {
		case byVolume:
			return rows[i].volume > rows[j].volume
		case byFluctuation:
			return math.Abs(rows[i].rate) > math.Abs(rows[j].rate)
		default:
			return rows[i].price > rows[j].price
		}
	})

	out := make([]map[string]string, 0, len(rows))
	for i, r := range rows {
		out = append(out, map[string]string{
			"data_rank":      strconv.Itoa(i + 1),
			"mksc_shrn_iscd": r.symbol,
			"hts_kor_isnm":   r.name,
			"stck_prpr":      won(r.price),
			"prdy_ctrt":      strconv.FormatFloat(r.rate, 'f', 2, 64),
			"acml_vol":       strconv.FormatInt(r.volume, 10),
		})
	}

	return out
}

// price returns the last generated price for symbol, seeding a base price
// on first use.
func (g *Generator) price(symbol string) float64 {
	if p, ok := g.prices[symbol]; ok {
		return p
	}

	p := math.Round(minBasePrice + g.rng.Float64()*basePriceRange)
	g.prices[symbol] = p

	return p
}

// step applies one geometric Brownian motion increment.
func (g *Generator) step(price float64) float64 {
	// Box-Muller transform for a standard normal draw
	u1 := g.rng.Float64()
	for u1 == 0 {
		u1 = g.rng.Float64()
	}

	u2 := g.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	next := price * (1 + g.volatility*z + g.trend)
	if next <= 0 {
		next = price * 0.99
	}

	return math.Round(next)
}

func (g *Generator) volume() int64 {
	return 100_000 + g.rng.Int63n(9_900_000)
}

func param(req broker.Request, key string) string {
	return req.Params[key]
}

func envelope(outputs map[string]any) (*broker.Envelope, error) {
	env := &broker.Envelope{RtCd: broker.SuccessCode, MsgCd: "MCA00000", Msg1: "synthetic"}

	for key, value := range outputs {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to encode synthetic output", err)
		}

		switch key {
		case "output":
			env.Output = raw
		case "output1":
			env.Output1 = raw
		case "output2":
			env.Output2 = raw
		}
	}

	return env, nil
}

func won(v float64) string {
	return strconv.FormatInt(int64(math.Round(v)), 10)
}

// roundTo rounds a float64 to the specified number of decimal places.
func roundTo(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
