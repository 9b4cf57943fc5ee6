// Package brokertest provides an in-process fake of the KIS Open API for
// tests. It implements the token, quote, ranking, order and balance
// endpoints used by the broker package.
package brokertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// TokenMode controls how the token endpoint answers.
type TokenMode int

const (
	TokenModeOK TokenMode = iota
	// TokenModeRateLimited answers 403 EGW00133
	TokenModeRateLimited
	// TokenModeBadCredentials answers 403 with a credential error
	TokenModeBadCredentials
)

// Quote is the fake current price for a symbol.
type Quote struct {
	Name       string
	Price      float64
	ChangeRate float64
	Volume     int64
}

// Bar is a fake daily candle.
type Bar struct {
	Date   time.Time
	Close  float64
	Volume int64
}

// Rank is a fake ranking row.
type Rank struct {
	Symbol     string
	Name       string
	Price      float64
	ChangeRate float64
	Volume     int64
}

// Order is an order received by the fake.
type Order struct {
	OrderNo  string
	Symbol   string
	SideCode string
	Kind     string
	Quantity int
	Price    string
	Account  string
}

// Holding is a fake account position.
type Holding struct {
	Symbol   string
	Quantity int
}

// Server is the fake brokerage.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	tokenMode   TokenMode
	tokenDelay  time.Duration
	issued      int
	validTokens map[string]bool
	quotes      map[string]Quote
	bars        map[string][]Bar
	rankings    map[string][]Rank
	orders      []Order
	cash        float64
	holdings    []Holding
	rejectCode  map[string]string
	lastHeaders http.Header
}

// NewServer starts a fake brokerage. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		validTokens: map[string]bool{},
		quotes:      map[string]Quote{},
		bars:        map[string][]Bar{},
		rankings:    map[string][]Rank{},
		rejectCode:  map[string]string{},
	}

	router := mux.NewRouter()
	router.HandleFunc("/oauth2/tokenP", s.handleToken).Methods(http.MethodPost)

	api := router.PathPrefix("/uapi/domestic-stock/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/quotations/inquire-price", s.handlePrice).Methods(http.MethodGet)
	api.HandleFunc("/quotations/inquire-daily-itemchartprice", s.handleDaily).Methods(http.MethodGet)
	api.HandleFunc("/quotations/inquire-asking-price-exp-ccn", s.handleOrderBook).Methods(http.MethodGet)
	api.HandleFunc("/quotations/volume-rank", s.rankingHandler("volume")).Methods(http.MethodGet)
	api.HandleFunc("/ranking/fluctuation", s.rankingHandler("fluctuation")).Methods(http.MethodGet)
	api.HandleFunc("/ranking/market-cap", s.rankingHandler("market_cap")).Methods(http.MethodGet)
	api.HandleFunc("/trading/order-cash", s.handleOrder).Methods(http.MethodPost)
	api.HandleFunc("/trading/order-rvsecncl", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/trading/inquire-balance", s.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/trading/inquire-daily-ccld", s.handleHistory).Methods(http.MethodGet)

	s.Server = httptest.NewServer(router)

	return s
}

// SetTokenMode changes how the token endpoint answers.
func (s *Server) SetTokenMode(mode TokenMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenMode = mode
}

// SetTokenDelay delays every token response.
func (s *Server) SetTokenDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenDelay = d
}

// Issued returns how many tokens were issued.
func (s *Server) Issued() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.issued
}

// ExpireTokens invalidates every issued token so the next request gets 401.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validTokens = map[string]bool{}
}

// AcceptToken marks token as valid, simulating one issued earlier.
func (s *Server) AcceptToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validTokens[token] = true
}

// SetQuote sets the current price for symbol.
func (s *Server) SetQuote(symbol string, q Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = q
}

// SetBars sets daily bars for symbol, oldest first.
func (s *Server) SetBars(symbol string, bars []Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol] = bars
}

// SetRanking sets the rows for a ranking kind ("fluctuation", "volume" or "market_cap").
func (s *Server) SetRanking(kind string, rows []Rank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[kind] = rows
}

// SetAccount sets cash and holdings.
func (s *Server) SetAccount(cash float64, holdings []Holding) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cash = cash
	s.holdings = holdings
}

// RejectTrID makes every request with trID answer rt_cd 1 with msgCd.
func (s *Server) RejectTrID(trID, msgCd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCode[trID] = msgCd
}

// Orders returns the orders received so far.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Order(nil), s.orders...)
}

// LastHeaders returns the headers of the last authenticated request.
func (s *Server) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastHeaders.Clone()
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	mode := s.tokenMode
	delay := s.tokenDelay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	switch {
	case mode == TokenModeRateLimited:
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error_code":        "EGW00133",
			"error_description": "접근토큰 발급 잠시 후 다시 시도하세요(1분당 1회)",
		})

		return
	case mode == TokenModeBadCredentials || body["appkey"] == "" || body["appsecret"] == "":
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error_code":        "EGW00103",
			"error_description": "유효하지 않은 AppKey입니다.",
		})

		return
	}

	token := "tok-" + uuid.New().String()

	s.mu.Lock()
	s.issued++
	s.validTokens[token] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":               token,
		"token_type":                 "Bearer",
		"expires_in":                 86400,
		"access_token_token_expired": time.Now().Add(24 * time.Hour).Format("2006-01-02 15:04:05"),
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		s.lastHeaders = r.Header.Clone()
		valid := s.validTokens[token]
		reject, rejected := s.rejectCode[r.Header.Get("tr_id")]
		s.mu.Unlock()

		if !valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"rt_cd":  "1",
				"msg_cd": "EGW00123",
				"msg1":   "기간이 만료된 token 입니다.",
			})

			return
		}

		if rejected {
			writeJSON(w, http.StatusOK, map[string]string{
				"rt_cd":  "1",
				"msg_cd": reject,
				"msg1":   "요청이 거부되었습니다.",
			})

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("fid_input_iscd")

	s.mu.Lock()
	q, ok := s.quotes[symbol]
	s.mu.Unlock()

	if !ok {
		writeEnvelope(w, "1", "EGW02004", "종목코드 오류입니다.", nil)

		return
	}

	writeEnvelope(w, "0", "MCA00000", "정상처리 되었습니다.", map[string]any{
		"output": map[string]string{
			"hts_kor_isnm": q.Name,
			"stck_prpr":    formatNumber(q.Price),
			"prdy_vrss":    "0",
			"prdy_ctrt":    strconv.FormatFloat(q.ChangeRate, 'f', 2, 64),
			"acml_vol":     strconv.FormatInt(q.Volume, 10),
			"stck_hgpr":    formatNumber(q.Price),
			"stck_lwpr":    formatNumber(q.Price),
			"stck_oprc":    formatNumber(q.Price),
			"prdy_clpr":    formatNumber(q.Price),
		},
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("FID_INPUT_ISCD")

	s.mu.Lock()
	bars := append([]Bar(nil), s.bars[symbol]...)
	s.mu.Unlock()

	rows := make([]map[string]string, 0, len(bars))
	// newest first, like the real endpoint
	for i := len(bars) - 1; i >= 0; i-- {
		rows = append(rows, map[string]string{
			"stck_bsop_date": bars[i].Date.Format("20060102"),
			"stck_clpr":      formatNumber(bars[i].Close),
			"stck_oprc":      formatNumber(bars[i].Close),
			"stck_hgpr":      formatNumber(bars[i].Close),
			"stck_lwpr":      formatNumber(bars[i].Close),
			"acml_vol":       strconv.FormatInt(bars[i].Volume, 10),
		})
	}

	writeEnvelope(w, "0", "MCA00000", "정상처리 되었습니다.", map[string]any{
		"output1": map[string]string{"stck_shrn_iscd": symbol},
		"output2": rows,
	})
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("fid_input_iscd")

	s.mu.Lock()
	q := s.quotes[symbol]
	s.mu.Unlock()

	levels := map[string]string{}
	for i := 1; i <= 10; i++ {
		n := strconv.Itoa(i)
		levels["askp"+n] = formatNumber(q.Price + float64(i*100))
		levels["askp_rsqn"+n] = "100"
		levels["bidp"+n] = formatNumber(q.Price - float64(i*100))
		levels["bidp_rsqn"+n] = "200"
	}

	writeEnvelope(w, "0", "MCA00000", "정상처리 되었습니다.", map[string]any{"output1": levels})
}

func (s *Server) rankingHandler(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		ranks := append([]Rank(nil), s.rankings[kind]...)
		s.mu.Unlock()

		rows := make([]map[string]string, 0, len(ranks))
		for i, rank := range ranks {
			rows = append(rows, map[string]string{
				"data_rank":      strconv.Itoa(i + 1),
				"mksc_shrn_iscd": rank.Symbol,
				"hts_kor_isnm":   rank.Name,
				"stck_prpr":      formatNumber(rank.Price),
				"prdy_ctrt":      strconv.FormatFloat(rank.ChangeRate, 'f', 2, 64),
				"acml_vol":       strconv.FormatInt(rank.Volume, 10),
			})
		}

		writeEnvelope(w, "0", "MCA00000", "정상처리 되었습니다.", map[string]any{"output": rows})
	}
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, "1", "OPSQ0001", "invalid body", nil)

		return
	}

	qty, _ := strconv.Atoi(body["ORD_QTY"])
	order := Order{
		OrderNo:  fmt.Sprintf("%010d", time.Now().UnixNano()%10_000_000_000),
		Symbol:   body["PDNO"],
		SideCode: body["SLL_BUY_DVSN_CD"],
		Kind:     body["ORD_DVSN"],
		Quantity: qty,
		Price:    body["ORD_UNPR"],
		Account:  body["CANO"] + body["ACNT_PRDT_CD"],
	}

	s.mu.Lock()
	s.orders = append(s.orders, order)
	s.mu.Unlock()

	writeEnvelope(w, "0", "APBK0013", "주문 전송 완료 되었습니다.", map[string]any{
		"output": map[string]string{
			"KRX_FWDG_ORD_ORGNO": "91252",
			"ODNO":               order.OrderNo,
			"ORD_TMD":            time.Now().Format("150405"),
		},
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	writeEnvelope(w, "0", "APBK0013", "주문 전송 완료 되었습니다.", map[string]any{
		"output": map[string]string{
			"ODNO":    body["ORGN_ODNO"],
			"ORD_TMD": time.Now().Format("150405"),
		},
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	cash := s.cash
	holdings := append([]Holding(nil), s.holdings...)
	s.mu.Unlock()

	rows := make([]map[string]string, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, map[string]string{
			"pdno":          h.Symbol,
			"prdt_name":     h.Symbol,
			"hldg_qty":      strconv.Itoa(h.Quantity),
			"pchs_avg_pric": "0",
			"prpr":          "0",
		})
	}

	writeEnvelope(w, "0", "KIOK0510", "조회가 완료되었습니다", map[string]any{
		"output1": rows,
		"output2": []map[string]string{{
			"dnca_tot_amt":  formatNumber(cash),
			"nrcvb_buy_amt": formatNumber(cash),
			"tot_evlu_amt":  formatNumber(cash),
		}},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	orders := append([]Order(nil), s.orders...)
	s.mu.Unlock()

	rows := make([]map[string]string, 0, len(orders))
	for _, o := range orders {
		rows = append(rows, map[string]string{
			"odno":         o.OrderNo,
			"pdno":         o.Symbol,
			"ord_qty":      strconv.Itoa(o.Quantity),
			"tot_ccld_qty": strconv.Itoa(o.Quantity),
			"ord_unpr":     o.Price,
			"avg_prvs":     o.Price,
		})
	}

	writeEnvelope(w, "0", "KIOK0460", "조회가 완료되었습니다", map[string]any{"output1": rows})
}

func writeEnvelope(w http.ResponseWriter, rtCd, msgCd, msg string, outputs map[string]any) {
	body := map[string]any{
		"rt_cd":  rtCd,
		"msg_cd": msgCd,
		"msg1":   msg,
	}

	for k, v := range outputs {
		body[k] = v
	}

	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
