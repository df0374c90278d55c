package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"crossmind/internal/explorer"
	"crossmind/internal/market"
	"crossmind/internal/observability/alerting"
	"crossmind/internal/observability/metrics"
	"crossmind/internal/parser"
	"crossmind/internal/reasoning"
	"crossmind/internal/relayer"
	"crossmind/pkg/logger"
)

// Server 负责暴露 REST 接口，驱动意图解析与桥接结算。
type Server struct {
	addr     string
	parser   *parser.Hybrid
	poller   *relayer.Poller
	market   *market.PythClient
	explorer *explorer.Client
	alerts   alerting.Dispatcher
	log      *slog.Logger
}

// Option 定义可选的 Server 依赖。
type Option func(*Server)

// WithMarket 挂载行情客户端。
func WithMarket(client *market.PythClient) Option {
	return func(s *Server) { s.market = client }
}

// WithExplorer 挂载区块浏览器客户端。
func WithExplorer(client *explorer.Client) Option {
	return func(s *Server) { s.explorer = client }
}

// WithAlerts 挂载告警分发器。
func WithAlerts(dispatcher alerting.Dispatcher) Option {
	return func(s *Server) { s.alerts = dispatcher }
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, hybrid *parser.Hybrid, poller *relayer.Poller, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		parser: hybrid,
		poller: poller,
		log:    logger.Named("api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回完整路由，便于测试时直接挂到 httptest。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/parse", s.handleParse)
	mux.HandleFunc("POST /api/v1/validate", s.handleValidate)
	mux.HandleFunc("POST /api/v1/quote", s.handleQuote)
	mux.HandleFunc("GET /api/v1/prices/{token}", s.handlePrice)
	mux.HandleFunc("GET /api/v1/bridge-status/{hash}", s.handleBridgeStatus)
	mux.HandleFunc("POST /api/v1/relayer/check-events", s.handleCheckEvents)
	mux.HandleFunc("POST /api/v1/track", s.handleTrack)
	mux.HandleFunc("POST /api/v1/check-balance", s.handleCheckBalance)
	mux.HandleFunc("GET /api/v1/parse-history", s.handleParseHistory)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.Handle("GET /metrics", metrics.Handler())

	return withMetrics(mux)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.log.Info("API 服务已启动", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]any{
		"service": "crossmind",
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "请求体必须携带 message 字段")
		return
	}

	intent := s.parser.Parse(r.Context(), req.Message)
	metrics.ObserveParse(string(intent.Engine))

	if intent.Status == reasoning.StatusError {
		writeJSON(w, http.StatusBadGateway, intent)
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var intent reasoning.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}

	valid, reason := reasoning.Validate(&intent)
	writeSuccess(w, map[string]any{
		"valid":  valid,
		"reason": reason,
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	if s.market == nil {
		writeError(w, http.StatusServiceUnavailable, "行情服务未配置")
		return
	}

	var req struct {
		FromToken string  `json:"from_token"`
		ToToken   string  `json:"to_token"`
		Amount    float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体解析失败")
		return
	}
	if req.FromToken == "" || req.ToToken == "" {
		writeError(w, http.StatusBadRequest, "必须携带 from_token 与 to_token")
		return
	}

	quote, err := s.market.SwapQuote(r.Context(), req.FromToken, req.ToToken, req.Amount)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeSuccess(w, quote)
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	if s.market == nil {
		writeError(w, http.StatusServiceUnavailable, "行情服务未配置")
		return
	}

	price, err := s.market.FetchPrice(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeSuccess(w, price)
}

func (s *Server) handleBridgeStatus(w http.ResponseWriter, r *http.Request) {
	status := s.poller.Store().Status(r.PathValue("hash"))
	writeSuccess(w, status)
}

func (s *Server) handleCheckEvents(w http.ResponseWriter, r *http.Request) {
	result, err := s.poller.PollOnce(r.Context())
	if err != nil {
		metrics.ObservePollError()
		if s.alerts != nil {
			_ = s.alerts.Notify(r.Context(), alerting.FromError(err, "source", ""))
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	for i := 0; i < result.Completed; i++ {
		metrics.ObserveSettlement()
	}
	writeSuccess(w, result)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if s.explorer == nil {
		writeError(w, http.StatusServiceUnavailable, "浏览器服务未配置")
		return
	}

	var req struct {
		TxHash    string `json:"tx_hash"`
		FromChain string `json:"from_chain"`
		ToChain   string `json:"to_chain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TxHash == "" || req.FromChain == "" {
		writeError(w, http.StatusBadRequest, "必须携带 tx_hash 与 from_chain")
		return
	}

	progress, err := s.explorer.TrackBridge(r.Context(), req.TxHash, req.FromChain, req.ToChain)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeSuccess(w, progress)
}

func (s *Server) handleCheckBalance(w http.ResponseWriter, r *http.Request) {
	if s.explorer == nil {
		writeError(w, http.StatusServiceUnavailable, "浏览器服务未配置")
		return
	}

	var req struct {
		Address string `json:"address"`
		Network string `json:"network"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" || req.Network == "" {
		writeError(w, http.StatusBadRequest, "必须携带 address 与 network")
		return
	}

	balance, err := s.explorer.Balance(r.Context(), req.Address, req.Network)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeSuccess(w, balance)
}

func (s *Server) handleParseHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	writeSuccess(w, s.parser.History(limit))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	initiated, completed := s.poller.Store().Counts()
	cursor, cursorSet := s.poller.Cursor()

	writeSuccess(w, map[string]any{
		"parser": s.parser.Stats(),
		"relayer": map[string]any{
			"initiated_bridges": initiated,
			"completed_bridges": completed,
			"cursor":            cursor,
			"cursor_set":        cursorSet,
		},
	})
}
