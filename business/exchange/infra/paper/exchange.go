// Package paper implements an in-memory exchange for dry runs. Orders move
// balances the way a real exchange would, without touching real funds.
package paper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/graph-arbitrage/business/exchange/app"
	"github.com/fd1az/graph-arbitrage/business/exchange/domain"
	"github.com/fd1az/graph-arbitrage/internal/apperror"
	"github.com/fd1az/graph-arbitrage/internal/logger"
)

// Ensure Exchange implements Provider.
var _ app.Provider = (*Exchange)(nil)

// TickerSource supplies market data to the paper exchange.
type TickerSource interface {
	GetTicker(ctx context.Context, product string) (domain.Ticker, error)
}

// Quote is a fixed top of book.
type Quote struct {
	Bid string
	Ask string
}

// Config configures the paper exchange.
type Config struct {
	// Balances are the starting funds per currency.
	Balances map[string]string
	// Tickers are fixed quotes used when no TickerSource is given.
	Tickers map[string]Quote
	// FillImmediately fills every accepted order at its limit price.
	// Otherwise orders rest until the market crosses them or they are
	// cancelled.
	FillImmediately bool
}

type account struct {
	id        string
	available decimal.Decimal
	hold      decimal.Decimal
}

// Exchange is the in-memory exchange.
type Exchange struct {
	cfg    Config
	source TickerSource
	logger logger.LoggerInterface
	now    func() time.Time

	mu       sync.Mutex
	accounts map[string]*account
	orders   map[string]*domain.Order
	tickers  map[string]domain.Ticker
}

// NewExchange creates a paper exchange. A nil source serves cfg.Tickers.
func NewExchange(cfg Config, source TickerSource, log logger.LoggerInterface) (*Exchange, error) {
	e := &Exchange{
		cfg:      cfg,
		source:   source,
		logger:   log,
		now:      time.Now,
		accounts: make(map[string]*account),
		orders:   make(map[string]*domain.Order),
		tickers:  make(map[string]domain.Ticker),
	}

	for currency, raw := range cfg.Balances {
		b, err := decimal.NewFromString(raw)
		if err != nil || b.IsNegative() {
			return nil, apperror.New(apperror.CodeConfigurationError,
				apperror.WithContext(fmt.Sprintf("paper balance %s=%q", currency, raw)))
		}
		e.accountFor(strings.ToUpper(currency)).available = b
	}

	// Config keys may arrive lowercased.
	for product, q := range cfg.Tickers {
		product = strings.ToUpper(product)
		e.tickers[product] = domain.Ticker{Product: product, Bid: q.Bid, Ask: q.Ask}
	}
	return e, nil
}

// SetTicker replaces the fixed quote for a product.
func (e *Exchange) SetTicker(product, bid, ask string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickers[product] = domain.Ticker{Product: product, Bid: bid, Ask: ask, Time: e.now()}
}

// GetAccounts returns one account per currency, sorted by currency.
func (e *Exchange) GetAccounts(ctx context.Context) ([]domain.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	currencies := make([]string, 0, len(e.accounts))
	for c := range e.accounts {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	out := make([]domain.Account, 0, len(currencies))
	for _, c := range currencies {
		a := e.accounts[c]
		out = append(out, domain.Account{
			ID:        a.id,
			Currency:  c,
			Balance:   a.available.Add(a.hold).String(),
			Available: a.available.String(),
			Hold:      a.hold.String(),
		})
	}
	return out, nil
}

// GetTicker returns the product's quote and fills resting orders it crosses.
func (e *Exchange) GetTicker(ctx context.Context, product string) (domain.Ticker, error) {
	var (
		t   domain.Ticker
		err error
	)
	if e.source != nil {
		t, err = e.source.GetTicker(ctx, product)
		if err != nil {
			return domain.Ticker{}, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.source == nil {
		var ok bool
		t, ok = e.tickers[product]
		if !ok {
			return domain.Ticker{}, apperror.New(apperror.CodeInvalidProduct, apperror.WithContext(product))
		}
	}

	e.matchLocked(ctx, t)
	return t, nil
}

// GetOrder returns a copy of the order.
func (e *Exchange) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return domain.Order{}, apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(id))
	}
	return *o, nil
}

// CancelOrder cancels a resting order and releases its hold.
func (e *Exchange) CancelOrder(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(id))
	}
	if o.Status == domain.StatusDone {
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("order "+id+" is already done"))
	}

	base, quote, err := splitProduct(o.Product)
	if err != nil {
		return err
	}
	if o.Side == domain.SideBuy {
		e.release(quote, o.Price.Mul(o.Size))
	} else {
		e.release(base, o.Size)
	}

	o.Status = domain.StatusDone
	o.DoneReason = domain.DoneReasonCanceled
	o.Settled = true

	e.logger.Info(ctx, "paper order cancelled", "order_id", id)
	return nil
}

// SubmitOrder accepts a limit order when the funds are available.
func (e *Exchange) SubmitOrder(ctx context.Context, req domain.OrderRequest) domain.SubmitResult {
	base, quote, err := splitProduct(req.Product)
	if err != nil {
		return domain.Rejected(err.Error())
	}
	if !req.Price.IsPositive() || !req.Size.IsPositive() {
		return domain.Rejected("price and size must be positive")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		currency string
		amount   decimal.Decimal
	)
	switch req.Side {
	case domain.SideBuy:
		currency, amount = quote, req.Price.Mul(req.Size)
	case domain.SideSell:
		currency, amount = base, req.Size
	default:
		return domain.Rejected("unknown side " + string(req.Side))
	}

	acct := e.accountFor(currency)
	if acct.available.LessThan(amount) {
		return domain.Rejected(fmt.Sprintf("insufficient funds: %s %s available, %s required",
			acct.available, currency, amount))
	}
	acct.available = acct.available.Sub(amount)
	acct.hold = acct.hold.Add(amount)

	o := &domain.Order{
		ID:        uuid.NewString(),
		ClientOID: req.ClientOID,
		Product:   req.Product,
		Side:      req.Side,
		Price:     req.Price,
		Size:      req.Size,
		Status:    domain.StatusOpen,
		CreatedAt: e.now(),
	}
	e.orders[o.ID] = o

	if e.cfg.FillImmediately {
		e.fillLocked(o)
	}

	e.logger.Info(ctx, "paper order accepted",
		"order_id", o.ID,
		"product", o.Product,
		"side", o.Side,
		"price", o.Price.String(),
		"size", o.Size.String(),
		"status", o.Status)

	return domain.Accepted(*o)
}

// Fill fills a resting order at its limit price.
func (e *Exchange) Fill(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return apperror.New(apperror.CodeOrderNotFound, apperror.WithContext(id))
	}
	if o.Status == domain.StatusDone {
		return apperror.New(apperror.CodeInvalidState, apperror.WithContext("order "+id+" is already done"))
	}
	e.fillLocked(o)
	return nil
}

// matchLocked fills resting orders on t's product that the quote crosses.
func (e *Exchange) matchLocked(ctx context.Context, t domain.Ticker) {
	bid, ask, err := t.Quote()
	if err != nil {
		return
	}
	for _, o := range e.orders {
		if o.Product != t.Product || o.Status == domain.StatusDone {
			continue
		}
		crossed := (o.Side == domain.SideBuy && ask.LessThanOrEqual(o.Price)) ||
			(o.Side == domain.SideSell && bid.GreaterThanOrEqual(o.Price))
		if crossed {
			e.fillLocked(o)
			e.logger.Info(ctx, "paper order filled", "order_id", o.ID, "product", o.Product)
		}
	}
}

func (e *Exchange) fillLocked(o *domain.Order) {
	base, quote, err := splitProduct(o.Product)
	if err != nil {
		return
	}
	cost := o.Price.Mul(o.Size)

	switch o.Side {
	case domain.SideBuy:
		e.accountFor(quote).hold = e.accountFor(quote).hold.Sub(cost)
		e.accountFor(base).available = e.accountFor(base).available.Add(o.Size)
	case domain.SideSell:
		e.accountFor(base).hold = e.accountFor(base).hold.Sub(o.Size)
		e.accountFor(quote).available = e.accountFor(quote).available.Add(cost)
	}

	o.FilledSize = o.Size
	o.Status = domain.StatusDone
	o.DoneReason = domain.DoneReasonFilled
	o.Settled = true
}

func (e *Exchange) release(currency string, amount decimal.Decimal) {
	a := e.accountFor(currency)
	a.hold = a.hold.Sub(amount)
	a.available = a.available.Add(amount)
}

func (e *Exchange) accountFor(currency string) *account {
	a, ok := e.accounts[currency]
	if !ok {
		a = &account{id: "paper-" + strings.ToLower(currency)}
		e.accounts[currency] = a
	}
	return a
}

func splitProduct(product string) (base, quote string, err error) {
	base, quote, ok := strings.Cut(product, "-")
	if !ok || base == "" || quote == "" {
		return "", "", apperror.New(apperror.CodeInvalidProduct, apperror.WithContext(product))
	}
	return base, quote, nil
}
