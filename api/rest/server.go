package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/api"
	"github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/config"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/ingest"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
)

// Server runs the two HTTP fronts: the public read API and the private
// write API the consensus node pushes to.
type Server struct {
	cfg           *config.Config
	publicServer  *http.Server
	privateServer *http.Server
	wsHub         *api.WSHub

	ledger   *storage.LedgerDB
	pool     *storage.PoolDB
	engine   *validator.Engine
	gov      *governance.Engine
	client   *agora.Client
	pipeline *ingest.Pipeline
}

// NewServer API 서버 인스턴스 생성
func NewServer(cfg *config.Config, ledger *storage.LedgerDB, pool *storage.PoolDB,
	engine *validator.Engine, gov *governance.Engine, client *agora.Client,
	pipeline *ingest.Pipeline) *Server {
	return &Server{
		cfg:      cfg,
		wsHub:    api.NewWSHub(),
		ledger:   ledger,
		pool:     pool,
		engine:   engine,
		gov:      gov,
		client:   client,
		pipeline: pipeline,
	}
}

// StartPublic opens the read API. Safe to call before catch-up finishes;
// readers only see committed snapshots.
func (s *Server) StartPublic() error {
	// WebSocket Hub 시작
	go s.wsHub.Run()

	router := setupPublicRouter(s.ledger, s.pool, s.engine, s.gov, s.client, s.wsHub)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.Port)
	s.publicServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Public API server starting on ", addr)
	logger.Info("WebSocket available at ws://", addr, "/ws")
	go func() {
		if err := s.publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Public API server error: ", err)
		}
	}()

	return nil
}

// StartPrivate opens the write API. Called only after catch-up so every
// submitted block lands on a reconciled ledger.
func (s *Server) StartPrivate() error {
	router := setupPrivateRouter(s.pipeline)

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Address, s.cfg.Server.PrivatePort)
	s.privateServer = &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("Private intake server starting on ", addr)
	go func() {
		if err := s.privateServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Private intake server error: ", err)
		}
	}()

	return nil
}

// Stop API 서버 종료
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("Shutting down API servers...")
	if s.privateServer != nil {
		s.privateServer.Shutdown(ctx)
	}
	if s.publicServer != nil {
		return s.publicServer.Shutdown(ctx)
	}
	return nil
}

// GetWSHub WebSocket Hub 반환
func (s *Server) GetWSHub() *api.WSHub {
	return s.wsHub
}
