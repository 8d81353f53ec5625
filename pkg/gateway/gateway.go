// Package gateway exposes the market engine as text in, text out. Each call
// decodes its request, runs one engine operation and returns an encoded
// response envelope. No call panics or returns a Go error.
package gateway

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/uhyunpark/marketcore/pkg/app/exchange"
	"github.com/uhyunpark/marketcore/pkg/wire"
)

type Gateway struct {
	engine *exchange.MarketEngine
	logger *zap.SugaredLogger
}

func New(engine *exchange.MarketEngine, logger *zap.SugaredLogger) *Gateway {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gateway{engine: engine, logger: logger}
}

// Engine returns the engine behind the gateway.
func (g *Gateway) Engine() *exchange.MarketEngine { return g.engine }

func (g *Gateway) Buy(text string) string { return wire.Encode(g.place(wire.OpBuy, text)) }

func (g *Gateway) Sell(text string) string { return wire.Encode(g.place(wire.OpSell, text)) }

func (g *Gateway) CancelOrder(item, orderID string) string {
	return wire.Encode(g.cancel(item, orderID))
}

func (g *Gateway) OrderStatus(item, orderID string) string {
	return wire.Encode(g.status(item, orderID))
}

func (g *Gateway) GetBestBuyingPrice(item string) string {
	p, ok := g.engine.BestBuyingPrice(item)
	return wire.Encode(wire.OK(wire.NewPriceView(item, p, ok)))
}

func (g *Gateway) GetBestSellingPrice(item string) string {
	p, ok := g.engine.BestSellingPrice(item)
	return wire.Encode(wire.OK(wire.NewPriceView(item, p, ok)))
}

func (g *Gateway) QueryLedger(item string) string {
	return wire.Encode(wire.OK(wire.NewLedgerView(g.engine.QueryLedger(item))))
}

func (g *Gateway) Dump() string {
	return wire.Encode(wire.OK(wire.NewDumpView(g.engine.Dump())))
}

// TestSerialization decodes an order request, re-encodes it and reports
// whether the cycle preserved every field. The engine is not touched.
func (g *Gateway) TestSerialization(text string) string {
	return wire.Encode(g.roundTrip(text))
}

// Test is a liveness probe.
func (g *Gateway) Test() string {
	return wire.Encode(wire.OK(map[string]any{
		"message": "engine ready",
		"items":   len(g.engine.Items()),
	}))
}

// Handle runs one command envelope.
func (g *Gateway) Handle(text string) string {
	return wire.Encode(g.Dispatch(text))
}

// Dispatch is Handle without the final encoding.
func (g *Gateway) Dispatch(text string) wire.Response {
	c, err := wire.ParseCommand(text)
	if err != nil {
		g.logger.Debugw("command_rejected", "err", err)
		return wire.Fail(err)
	}
	return g.Execute(c)
}

// Execute runs an already decoded command. Hosts that route by URL build the
// Command themselves and skip the envelope text.
func (g *Gateway) Execute(c wire.Command) wire.Response {
	switch c.Op {
	case wire.OpBuy, wire.OpSell:
		if c.Order == nil {
			return wire.Fail(&wire.SerializationError{Msg: "missing order"})
		}
		return g.submit(c.Op, *c.Order)
	case wire.OpCancelOrder:
		return g.cancel(c.Item, c.OrderID)
	case wire.OpOrderStatus:
		return g.status(c.Item, c.OrderID)
	case wire.OpBestBuyingPrice:
		p, ok := g.engine.BestBuyingPrice(c.Item)
		return wire.OK(wire.NewPriceView(c.Item, p, ok))
	case wire.OpBestSellingPrice:
		p, ok := g.engine.BestSellingPrice(c.Item)
		return wire.OK(wire.NewPriceView(c.Item, p, ok))
	case wire.OpQueryLedger:
		return wire.OK(wire.NewLedgerView(g.engine.QueryLedger(c.Item)))
	case wire.OpDump:
		return wire.OK(wire.NewDumpView(g.engine.Dump()))
	case wire.OpTestSerialization:
		return g.roundTrip(c.Text)
	default:
		return wire.Fail(&wire.SerializationError{Msg: fmt.Sprintf("unknown op %q", c.Op)})
	}
}

func (g *Gateway) place(op wire.Op, text string) wire.Response {
	r, err := wire.DecodeOrderRequest(text)
	if err != nil {
		g.logger.Debugw("request_rejected", "op", op, "err", err)
		return wire.Fail(err)
	}
	return g.submit(op, r)
}

func (g *Gateway) submit(op wire.Op, r wire.OrderRequest) wire.Response {
	var (
		p   *exchange.Placement
		err error
	)
	if op == wire.OpBuy {
		p, err = g.engine.Buy(r.Engine())
	} else {
		p, err = g.engine.Sell(r.Engine())
	}
	if err != nil {
		return wire.Fail(err)
	}
	return wire.OK(wire.NewPlacementView(p))
}

func (g *Gateway) cancel(item, orderID string) wire.Response {
	o, err := g.engine.CancelOrder(item, orderID)
	if err != nil {
		return wire.Fail(err)
	}
	return wire.OK(wire.NewCancelView(o))
}

func (g *Gateway) status(item, orderID string) wire.Response {
	st, err := g.engine.OrderStatus(item, orderID)
	if err != nil {
		return wire.Fail(err)
	}
	return wire.OK(wire.NewStatusView(item, orderID, st))
}

func (g *Gateway) roundTrip(text string) wire.Response {
	v, err := wire.RoundTrip(text)
	if err != nil {
		return wire.Fail(err)
	}
	return wire.OK(v)
}
