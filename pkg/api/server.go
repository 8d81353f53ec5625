// Package api is the HTTP and WebSocket host of the engine. Every route maps
// onto one gateway command; responses are wire envelopes.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhyunpark/marketcore/pkg/app/core/ledger"
	"github.com/uhyunpark/marketcore/pkg/gateway"
	"github.com/uhyunpark/marketcore/pkg/storage"
	"github.com/uhyunpark/marketcore/pkg/wire"
)

// maxBodyBytes bounds a request body.
const maxBodyBytes = 1 << 20

type Options struct {
	Logger      *zap.SugaredLogger
	RequestLog  storage.RequestLog // raw mutating requests; nil disables
	CORSOrigins []string
}

// Server handles REST API and WebSocket connections
type Server struct {
	gw     *gateway.Gateway
	router *mux.Router
	hub    *Hub
	reqLog storage.RequestLog
	logger *zap.SugaredLogger
	cors   []string
}

// NewServer creates a new API server
func NewServer(gw *gateway.Gateway, opts Options) *Server {
	s := &Server{
		gw:     gw,
		router: mux.NewRouter(),
		reqLog: opts.RequestLog,
		logger: opts.Logger,
		cors:   opts.CORSOrigins,
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.reqLog == nil {
		s.reqLog = storage.NewNopWAL()
	}
	s.hub = NewHub(s.logger)

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Orders
	api.HandleFunc("/buy", s.handlePlace(wire.OpBuy)).Methods("POST")
	api.HandleFunc("/sell", s.handlePlace(wire.OpSell)).Methods("POST")
	api.HandleFunc("/items/{item}/orders/{id}", s.handleCancelOrder).Methods("DELETE")
	api.HandleFunc("/items/{item}/orders/{id}", s.handleOrderStatus).Methods("GET")

	// Market data
	api.HandleFunc("/items", s.handleItems).Methods("GET")
	api.HandleFunc("/items/{item}/best-bid", s.handleItemQuery(wire.OpBestBuyingPrice)).Methods("GET")
	api.HandleFunc("/items/{item}/best-ask", s.handleItemQuery(wire.OpBestSellingPrice)).Methods("GET")
	api.HandleFunc("/items/{item}/ledger", s.handleItemQuery(wire.OpQueryLedger)).Methods("GET")
	api.HandleFunc("/dump", s.handleDump).Methods("GET")

	// Text protocol
	api.HandleFunc("/command", s.handleCommand).Methods("POST")
	api.HandleFunc("/test-serialization", s.handleTestSerialization).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the router wrapped in the CORS policy.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cors,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// The websocket hub lives exactly as long as the listener.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Infow("api_server_starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	s.logger.Infow("api_server_stopped", "err", err)
	return err
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handlePlace(op wire.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := s.readBody(w, r)
		if !ok {
			return
		}
		s.reqLog.Append(string(op) + " " + body)

		req, err := wire.DecodeOrderRequest(body)
		if err != nil {
			respond(w, wire.Fail(err))
			return
		}
		respond(w, s.gw.Execute(wire.Command{Op: op, Order: &req}))
	}
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.reqLog.Append("cancel_order " + vars["item"] + " " + vars["id"])
	respond(w, s.gw.Execute(wire.Command{Op: wire.OpCancelOrder, Item: vars["item"], OrderID: vars["id"]}))
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	respond(w, s.gw.Execute(wire.Command{Op: wire.OpOrderStatus, Item: vars["item"], OrderID: vars["id"]}))
}

func (s *Server) handleItemQuery(op wire.Op) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, s.gw.Execute(wire.Command{Op: op, Item: mux.Vars(r)["item"]}))
	}
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	respond(w, wire.OK(ItemsResponse{Items: s.gw.Engine().Items()}))
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	respond(w, s.gw.Execute(wire.Command{Op: wire.OpDump}))
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	s.reqLog.Append("command " + body)
	respond(w, s.gw.Dispatch(body))
}

func (s *Server) handleTestSerialization(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	respond(w, s.gw.Execute(wire.Command{Op: wire.OpTestSerialization, Text: body}))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called from engine hooks)
// ==============================

// BroadcastBook sends the item's depth to "book:<ITEM>" subscribers
func (s *Server) BroadcastBook(item string) {
	snap, ok := s.gw.Engine().Snapshot(item)
	if !ok {
		return
	}
	d := wire.NewItemView(snap)
	s.hub.BroadcastToChannel(bookChannel(item), BookUpdate{
		Type:      "book",
		Item:      item,
		Bids:      d.BidLevels,
		Asks:      d.AskLevels,
		Timestamp: time.Now().UnixMilli(),
	})
}

// BroadcastTrades sends trades to "trades:<ITEM>" subscribers. Batches of
// concurrent placements may arrive out of order; TradeID is authoritative.
func (s *Server) BroadcastTrades(item string, trades []ledger.Trade) {
	s.hub.BroadcastToChannel(tradeChannel(item), TradeUpdate{
		Type:      "trades",
		Item:      item,
		Trades:    wire.NewTradeViews(trades),
		Timestamp: time.Now().UnixMilli(),
	})
}

// ==============================
// Helper Functions
// ==============================

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respond(w, wire.Fail(&wire.SerializationError{Msg: "failed to read body", Err: err}))
		return "", false
	}
	return string(b), true
}

// statusFor maps an envelope to its HTTP status.
func statusFor(resp wire.Response) int {
	switch resp.Code() {
	case "":
		return http.StatusOK
	case wire.CodeValidation:
		return http.StatusUnprocessableEntity
	case wire.CodeNotFound:
		return http.StatusNotFound
	case wire.CodeSerialization:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, resp wire.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(resp))
	io.WriteString(w, wire.Encode(resp))
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, wire.Encode(wire.OK(data)))
}
