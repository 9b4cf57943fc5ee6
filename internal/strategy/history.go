package strategy

import "sync"

// history is a per-symbol rolling window of prices and volumes. Appends
// evict the oldest entry once the window holds size entries.
type history struct {
	mu   sync.Mutex
	size int
	px   map[string][]float64
	vol  map[string][]int64
}

func newHistory(size int) *history {
	return &history{
		size: size,
		px:   map[string][]float64{},
		vol:  map[string][]int64{},
	}
}

// append adds a price and volume for symbol. It returns the price window
// after the append and the volumes recorded before it.
func (h *history) append(symbol string, price float64, volume int64) ([]float64, []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	previousVolumes := append([]int64(nil), h.vol[symbol]...)

	prices := append(h.px[symbol], price)
	volumes := append(h.vol[symbol], volume)

	if len(prices) > h.size {
		prices = prices[len(prices)-h.size:]
	}

	if len(volumes) > h.size {
		volumes = volumes[len(volumes)-h.size:]
	}

	h.px[symbol] = prices
	h.vol[symbol] = volumes

	return append([]float64(nil), prices...), previousVolumes
}

func (h *history) prices(symbol string) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]float64(nil), h.px[symbol]...)
}

func (h *history) preload(symbol string, prices []float64, volumes []int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(prices) > h.size {
		prices = prices[len(prices)-h.size:]
	}

	if len(volumes) > h.size {
		volumes = volumes[len(volumes)-h.size:]
	}

	h.px[symbol] = append([]float64(nil), prices...)
	h.vol[symbol] = append([]int64(nil), volumes...)
}

func (h *history) count(symbol string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.px[symbol])
}
