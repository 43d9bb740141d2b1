package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/graph-arbitrage/business/arbitrage/domain"
	exdomain "github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

// fakeProvider is an in-memory exchange. Orders it accepts are stored and
// returned by GetOrder until the test changes them.
type fakeProvider struct {
	mu sync.Mutex

	accounts []exdomain.Account
	tickers  map[string]exdomain.Ticker
	orders   map[string]exdomain.Order

	submitted []exdomain.OrderRequest
	cancelled []string

	submitResult func(req exdomain.OrderRequest) exdomain.SubmitResult
	getOrderErr  error
	cancelErr    error
	accountsErr  error
	tickerErr    error
	nextID       int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		tickers: make(map[string]exdomain.Ticker),
		orders:  make(map[string]exdomain.Order),
	}
}

func (f *fakeProvider) setTicker(product, bid, ask string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickers[product] = exdomain.Ticker{Product: product, Bid: bid, Ask: ask}
}

func (f *fakeProvider) setOrder(o exdomain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
}

func (f *fakeProvider) GetAccounts(ctx context.Context) ([]exdomain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return append([]exdomain.Account(nil), f.accounts...), nil
}

func (f *fakeProvider) GetTicker(ctx context.Context, product string) (exdomain.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tickerErr != nil {
		return exdomain.Ticker{}, f.tickerErr
	}
	t, ok := f.tickers[product]
	if !ok {
		return exdomain.Ticker{}, apperror.New(apperror.CodeInvalidProduct, apperror.WithContext(product))
	}
	return t, nil
}

func (f *fakeProvider) GetOrder(ctx context.Context, id string) (exdomain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getOrderErr != nil {
		return exdomain.Order{}, f.getOrderErr
	}
	o, ok := f.orders[id]
	if !ok {
		return exdomain.Order{}, apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(id))
	}
	return o, nil
}

func (f *fakeProvider) CancelOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}

func (f *fakeProvider) SubmitOrder(ctx context.Context, req exdomain.OrderRequest) exdomain.SubmitResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, req)
	if f.submitResult != nil {
		return f.submitResult(req)
	}

	f.nextID++
	o := exdomain.Order{
		ID:        fmt.Sprintf("order-%d", f.nextID),
		ClientOID: req.ClientOID,
		Product:   req.Product,
		Side:      req.Side,
		Price:     req.Price,
		Size:      req.Size,
		Status:    exdomain.StatusOpen,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	f.orders[o.ID] = o
	return exdomain.Accepted(o)
}

func (f *fakeProvider) snapshot(t *testing.T) CycleData {
	t.Helper()
	accounts, err := f.GetAccounts(context.Background())
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	tickers := make(map[string]exdomain.Ticker, len(f.tickers))
	for k, v := range f.tickers {
		tickers[k] = v
	}
	return CycleData{ID: "cycle", Accounts: accounts, Tickers: tickers}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t *testing.T, p *fakeProvider, products ...string) *Engine {
	t.Helper()
	cfg := DefaultEngineConfig(domain.MustParseProducts(products...)...)
	e, err := NewEngine(cfg, p, logger.NewDiscard())
	require.NoError(t, err)
	e.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC) }
	e.newOID = func() string { return "client-oid" }
	return e
}

func usdProvider(bid, ask string) *fakeProvider {
	p := newFakeProvider()
	p.accounts = []exdomain.Account{
		{ID: "a-btc", Currency: "BTC", Balance: "0"},
		{ID: "a-usd", Currency: "USD", Balance: "100"},
	}
	p.setTicker("BTC-USD", bid, ask)
	return p
}

func TestNewEngineValidatesConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  EngineConfig
	}{
		{"no products", DefaultEngineConfig()},
		{"empty reference", EngineConfig{Threshold: dec("1"), Products: domain.MustParseProducts("BTC-USD")}},
		{"zero threshold", EngineConfig{Reference: "USD", Products: domain.MustParseProducts("BTC-USD")}},
		{"negative cancel_after", EngineConfig{
			Reference: "USD", Threshold: dec("1"),
			Products: domain.MustParseProducts("BTC-USD"), CancelAfter: -time.Second,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngine(tt.cfg, newFakeProvider(), logger.NewDiscard())
			assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError), "err = %v", err)
		})
	}
}

func TestTickPlacesBuyOrder(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	e := newTestEngine(t, p, "BTC-USD")

	d := e.Tick(context.Background(), p.snapshot(t))

	require.Equal(t, domain.OutcomeOrderPlaced, d.Outcome, d.Reason)
	assert.Equal(t, domain.Currency("USD"), d.Held)
	assert.Equal(t, domain.SignalBuy, d.Signal)
	assert.Equal(t, "BTC-USD", d.Product.String())
	assert.True(t, d.Distance.Equal(dec("1")), "distance = %s", d.Distance)
	assert.True(t, d.Spread.Equal(dec("2")), "spread = %s", d.Spread)

	require.Len(t, p.submitted, 1)
	req := p.submitted[0]
	assert.Equal(t, exdomain.SideBuy, req.Side)
	assert.Equal(t, "BTC-USD", req.Product)
	assert.True(t, req.Price.Equal(dec("0.5")), "price = %s", req.Price)
	assert.True(t, req.Size.Equal(dec("200")), "size = %s", req.Size)
	assert.Equal(t, "client-oid", req.ClientOID)

	o, ok := e.OpenOrder("USD")
	require.True(t, ok)
	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, "order-1", d.OrderID)
}

func TestTickThresholdIsStrict(t *testing.T) {
	tests := []struct {
		name  string
		ask   string
		want  domain.Outcome
		count int
	}{
		{"equal to threshold", "1.002", domain.OutcomeBelowThreshold, 0},
		{"above threshold", "1.003", domain.OutcomeOrderPlaced, 1},
		{"below threshold", "1.001", domain.OutcomeBelowThreshold, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := usdProvider("1", tt.ask)
			e := newTestEngine(t, p, "BTC-USD")

			d := e.Tick(context.Background(), p.snapshot(t))

			assert.Equal(t, tt.want, d.Outcome, "spread = %s", d.Spread)
			assert.Len(t, p.submitted, tt.count)
		})
	}
}

func TestTickBelowThresholdIsIdempotent(t *testing.T) {
	p := usdProvider("1", "1")
	e := newTestEngine(t, p, "BTC-USD")

	for i := 0; i < 3; i++ {
		d := e.Tick(context.Background(), p.snapshot(t))
		assert.Equal(t, domain.OutcomeBelowThreshold, d.Outcome)
	}
	assert.Empty(t, p.submitted)
	assert.Empty(t, p.cancelled)
	_, ok := e.OpenOrder("USD")
	assert.False(t, ok)
}

func TestTickPlacesSellOrderWithBaseBalance(t *testing.T) {
	p := newFakeProvider()
	p.accounts = []exdomain.Account{
		{ID: "a-usd", Currency: "USD", Balance: "0"},
		{ID: "a-eth", Currency: "ETH", Balance: "10"},
	}
	p.setTicker("ETH-BTC", "0.5", "0.5")
	p.setTicker("BTC-USD", "2", "2")
	e := newTestEngine(t, p, "ETH-BTC", "BTC-USD")

	d := e.Tick(context.Background(), p.snapshot(t))

	require.Equal(t, domain.OutcomeOrderPlaced, d.Outcome, d.Reason)
	assert.Equal(t, domain.Currency("ETH"), d.Held)
	assert.Equal(t, "ETH_bid -> BTC_ask -> BTC_bid -> USD_ask", d.Path.String())
	assert.Equal(t, domain.SignalSell, d.Signal)

	require.Len(t, p.submitted, 1)
	req := p.submitted[0]
	assert.Equal(t, exdomain.SideSell, req.Side)
	assert.Equal(t, "ETH-BTC", req.Product)
	assert.True(t, req.Price.Equal(dec("0.5")), "price = %s", req.Price)
	assert.True(t, req.Size.Equal(dec("10")), "size = %s", req.Size)

	_, ok := e.OpenOrder("ETH")
	assert.True(t, ok)
}

func TestTickHeldCurrency(t *testing.T) {
	p := usdProvider("1", "1")
	e := newTestEngine(t, p, "BTC-USD")
	assert.Equal(t, domain.Currency("USD"), e.Held())

	p.accounts = []exdomain.Account{
		{Currency: "BTC", Balance: "0.1"},
		{Currency: "USD", Balance: "100"},
	}
	e.Tick(context.Background(), p.snapshot(t))
	assert.Equal(t, domain.Currency("BTC"), e.Held())

	p.accounts = []exdomain.Account{
		{Currency: "BTC", Balance: "0"},
		{Currency: "USD", Balance: "garbage"},
	}
	e.Tick(context.Background(), p.snapshot(t))
	assert.Equal(t, domain.Currency("BTC"), e.Held(), "unfunded accounts keep the previous currency")
}

func TestTickMissingTickerAbortsCycle(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	e := newTestEngine(t, p, "BTC-USD", "ETH-USD")

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeGraphUnavailable, d.Outcome)
	assert.Contains(t, d.Reason, "ETH-USD")
	assert.Empty(t, p.submitted)
}

func TestTickGarbledTickerAbortsCycle(t *testing.T) {
	p := usdProvider("0.5", "")
	e := newTestEngine(t, p, "BTC-USD")

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeGraphUnavailable, d.Outcome)
	assert.Empty(t, p.submitted)
}

func TestTickNoBalance(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	p.accounts = []exdomain.Account{{Currency: "USD", Balance: "0"}}
	e := newTestEngine(t, p, "BTC-USD")

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeNoBalance, d.Outcome)
	assert.Empty(t, p.submitted)
}

func TestTickSubmitOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		result exdomain.SubmitResult
		want   domain.Outcome
		reason string
	}{
		{"rejected", exdomain.Rejected("post only"), domain.OutcomeOrderRejected, "post only"},
		{"failed", exdomain.Failed(errors.New("connection reset")), domain.OutcomeProviderFailure, "connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := usdProvider("0.5", "0.5")
			p.submitResult = func(exdomain.OrderRequest) exdomain.SubmitResult { return tt.result }
			e := newTestEngine(t, p, "BTC-USD")

			d := e.Tick(context.Background(), p.snapshot(t))

			assert.Equal(t, tt.want, d.Outcome)
			assert.Equal(t, tt.reason, d.Reason)
			_, ok := e.OpenOrder("USD")
			assert.False(t, ok, "nothing is tracked after a failed submission")
		})
	}
}

// placed runs one tick that places a buy for BTC-USD at 0.5.
func placed(t *testing.T) (*fakeProvider, *Engine) {
	t.Helper()
	p := usdProvider("0.5", "0.5")
	e := newTestEngine(t, p, "BTC-USD")
	d := e.Tick(context.Background(), p.snapshot(t))
	require.Equal(t, domain.OutcomeOrderPlaced, d.Outcome, d.Reason)
	return p, e
}

func TestTickKeepsMatchingOrder(t *testing.T) {
	p, e := placed(t)

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeOrderKept, d.Outcome)
	assert.Len(t, p.submitted, 1, "no second order while one is open")
	assert.Empty(t, p.cancelled)
}

func TestTickTransientGetOrderLeavesOrder(t *testing.T) {
	p, e := placed(t)
	p.getOrderErr = apperror.New(apperror.CodeExchangeUnavailable)

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeOrderUnchanged, d.Outcome)
	_, ok := e.OpenOrder("USD")
	assert.True(t, ok)
	assert.Len(t, p.submitted, 1)
}

func TestTickClearsFinishedOrders(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *exdomain.Order)
	}{
		{"done and settled", func(o *exdomain.Order) { o.Status = exdomain.StatusDone; o.Settled = true }},
		{"cancelled", func(o *exdomain.Order) { o.Status = exdomain.StatusDone; o.DoneReason = "canceled" }},
		{"rejected", func(o *exdomain.Order) { o.Status = exdomain.StatusRejected }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, e := placed(t)
			o := p.orders["order-1"]
			tt.mutate(&o)
			p.setOrder(o)

			d := e.Tick(context.Background(), p.snapshot(t))

			assert.Equal(t, domain.OutcomeOrderCleared, d.Outcome)
			_, ok := e.OpenOrder("USD")
			assert.False(t, ok)
			assert.Len(t, p.submitted, 1, "clearing ends the cycle")

			d = e.Tick(context.Background(), p.snapshot(t))
			assert.Equal(t, domain.OutcomeOrderPlaced, d.Outcome)
		})
	}
}

func TestTickDoneButUnsettledIsKept(t *testing.T) {
	p, e := placed(t)
	o := p.orders["order-1"]
	o.Status = exdomain.StatusDone
	p.setOrder(o)

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeOrderKept, d.Outcome)
	_, ok := e.OpenOrder("USD")
	assert.True(t, ok)
}

func TestTickClearsUnknownOrder(t *testing.T) {
	p, e := placed(t)
	delete(p.orders, "order-1")

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeOrderCleared, d.Outcome)
	_, ok := e.OpenOrder("USD")
	assert.False(t, ok)
}

func TestTickCancelsRepricedOrder(t *testing.T) {
	p, e := placed(t)
	p.setTicker("BTC-USD", "0.4", "0.5")

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeOrderCancelled, d.Outcome)
	assert.Equal(t, []string{"order-1"}, p.cancelled)
	_, ok := e.OpenOrder("USD")
	assert.True(t, ok, "cancelled orders stay tracked until reported finished")
	assert.Len(t, p.submitted, 1)
}

func TestTickCancelsWhenProductChanges(t *testing.T) {
	p := usdProvider("0.5", "0.5")
	p.setTicker("ETH-USD", "1", "1")
	e := newTestEngine(t, p, "BTC-USD", "ETH-USD")

	d := e.Tick(context.Background(), p.snapshot(t))
	require.Equal(t, domain.OutcomeOrderPlaced, d.Outcome, d.Reason)
	require.Equal(t, "BTC-USD", d.Product.String())

	p.setTicker("ETH-USD", "0.25", "1")
	d = e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, "ETH-USD", d.Product.String())
	assert.Equal(t, domain.OutcomeOrderCancelled, d.Outcome)
	assert.Contains(t, d.Reason, "product changed")
	assert.Equal(t, []string{"order-1"}, p.cancelled)
	assert.Len(t, p.submitted, 1)
}

func TestTickCancelFailureKeepsOrder(t *testing.T) {
	p, e := placed(t)
	p.setTicker("BTC-USD", "0.4", "0.5")
	p.cancelErr = apperror.New(apperror.CodeExchangeUnavailable)

	d := e.Tick(context.Background(), p.snapshot(t))

	assert.Equal(t, domain.OutcomeCancelFailed, d.Outcome)
	_, ok := e.OpenOrder("USD")
	assert.True(t, ok)
}

func TestTickCancelAfterProtectsYoungOrders(t *testing.T) {
	p, e := placed(t)
	e.cfg.CancelAfter = time.Minute
	p.setTicker("BTC-USD", "0.4", "0.5")

	d := e.Tick(context.Background(), p.snapshot(t))
	assert.Equal(t, domain.OutcomeOrderKept, d.Outcome)
	assert.Empty(t, p.cancelled)

	e.now = func() time.Time { return time.Date(2026, 1, 1, 0, 2, 0, 0, time.UTC) }
	d = e.Tick(context.Background(), p.snapshot(t))
	assert.Equal(t, domain.OutcomeOrderCancelled, d.Outcome)
	assert.Equal(t, []string{"order-1"}, p.cancelled)
}

func TestBuildGraph(t *testing.T) {
	products := domain.MustParseProducts("BTC-USD", "ETH-BTC")
	tickers := map[string]exdomain.Ticker{
		"BTC-USD": {Product: "BTC-USD", Bid: "2", Ask: "2"},
		"ETH-BTC": {Product: "ETH-BTC", Bid: "0.5", Ask: "0.5"},
	}

	g, err := BuildGraph(products, tickers)
	require.NoError(t, err)
	assert.Equal(t, 6, g.NodeCount())
	assert.Equal(t, products, g.Pairs())

	delete(tickers, "ETH-BTC")
	_, err = BuildGraph(products, tickers)
	assert.True(t, apperror.HasCode(err, apperror.CodeGraphUnavailable))
}
