// Package coinbase implements the exchange Provider for the Coinbase Exchange
// (formerly GDAX) REST API and its WebSocket ticker feed.
package coinbase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/graph-arbitrage/business/exchange/domain"
)

// REST payloads

type accountResponse struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Available string `json:"available"`
	Hold      string `json:"hold"`
}

func (a accountResponse) toDomain() domain.Account {
	return domain.Account{
		ID:        a.ID,
		Currency:  a.Currency,
		Balance:   a.Balance,
		Available: a.Available,
		Hold:      a.Hold,
	}
}

type tickerResponse struct {
	TradeID int64     `json:"trade_id"`
	Price   string    `json:"price"`
	Size    string    `json:"size"`
	Bid     string    `json:"bid"`
	Ask     string    `json:"ask"`
	Volume  string    `json:"volume"`
	Time    time.Time `json:"time"`
}

func (t tickerResponse) toDomain(product string) domain.Ticker {
	return domain.Ticker{
		Product: product,
		Bid:     t.Bid,
		Ask:     t.Ask,
		Price:   t.Price,
		Time:    t.Time,
	}
}

type orderResponse struct {
	ID         string    `json:"id"`
	ClientOID  string    `json:"client_oid"`
	ProductID  string    `json:"product_id"`
	Side       string    `json:"side"`
	Type       string    `json:"type"`
	Price      string    `json:"price"`
	Size       string    `json:"size"`
	FilledSize string    `json:"filled_size"`
	Status     string    `json:"status"`
	Settled    bool      `json:"settled"`
	DoneReason string    `json:"done_reason"`
	CreatedAt  time.Time `json:"created_at"`
	// Message is set instead of the fields above on error payloads.
	Message string `json:"message"`
}

func (o orderResponse) toDomain() domain.Order {
	return domain.Order{
		ID:         o.ID,
		ClientOID:  o.ClientOID,
		Product:    o.ProductID,
		Side:       domain.OrderSide(o.Side),
		Price:      parseOrZero(o.Price),
		Size:       parseOrZero(o.Size),
		FilledSize: parseOrZero(o.FilledSize),
		Status:     domain.OrderStatus(o.Status),
		Settled:    o.Settled,
		DoneReason: o.DoneReason,
		CreatedAt:  o.CreatedAt,
	}
}

type orderRequest struct {
	ClientOID string `json:"client_oid,omitempty"`
	ProductID string `json:"product_id"`
	Side      string `json:"side"`
	Type      string `json:"type"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	PostOnly  bool   `json:"post_only,omitempty"`
}

func newOrderRequest(req domain.OrderRequest, postOnly bool) orderRequest {
	return orderRequest{
		ClientOID: req.ClientOID,
		ProductID: req.Product,
		Side:      string(req.Side),
		Type:      "limit",
		Price:     req.Price.String(),
		Size:      req.Size.String(),
		PostOnly:  postOnly,
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

// WebSocket payloads

const (
	msgTypeSubscribe     = "subscribe"
	msgTypeSubscriptions = "subscriptions"
	msgTypeTicker        = "ticker"
	msgTypeHeartbeat     = "heartbeat"
	msgTypeError         = "error"

	channelTicker = "ticker"
)

type subscribeRequest struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

// feedMessage covers every message type the feed handles; fields unused by a
// type are left empty.
type feedMessage struct {
	Type      string    `json:"type"`
	ProductID string    `json:"product_id"`
	Sequence  int64     `json:"sequence"`
	Price     string    `json:"price"`
	BestBid   string    `json:"best_bid"`
	BestAsk   string    `json:"best_ask"`
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	Reason    string    `json:"reason"`
}

func (m feedMessage) ticker() domain.Ticker {
	return domain.Ticker{
		Product: m.ProductID,
		Bid:     m.BestBid,
		Ask:     m.BestAsk,
		Price:   m.Price,
		Time:    m.Time,
	}
}

func parseOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
