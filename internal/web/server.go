package web

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/vitos/meme_trade_engine/internal/domain"
	"github.com/vitos/meme_trade_engine/internal/usecase"
)

type Server struct {
	router  *http.ServeMux
	server  *http.Server
	engine  *usecase.TradingEngine
	repo    domain.TradeRepository
	metrics http.Handler
	logger  *zap.Logger
}

func NewServer(
	port int,
	engine *usecase.TradingEngine,
	repo domain.TradeRepository,
	metricsHandler http.Handler,
	logger *zap.Logger,
) *Server {
	s := &Server{
		router:  http.NewServeMux(),
		engine:  engine,
		repo:    repo,
		metrics: metricsHandler,
		logger:  logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	return s
}

func (s *Server) routes() {
	// Positions
	s.router.HandleFunc("GET /positions", s.handleListPositions)
	s.router.HandleFunc("POST /positions/{id}/close", s.handleClosePosition)

	// History and analytics
	s.router.HandleFunc("GET /trades", s.handleListTrades)
	s.router.HandleFunc("GET /report", s.handleReport)
	s.router.HandleFunc("GET /risk", s.handlePortfolioRisk)

	// Engine state
	s.router.HandleFunc("GET /status", s.handleStatus)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) Start() error {
	s.logger.Info("web server listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
