package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agorascan/agorascan-node/agora"
	"github.com/agorascan/agorascan-node/api/rest"
	"github.com/agorascan/agorascan-node/common/logger"
	conf "github.com/agorascan/agorascan-node/config"
	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/ingest"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
)

type App struct {
	stop chan struct{}
	Conf conf.Config

	Ledger   *storage.LedgerDB
	Pool     *storage.PoolDB
	Agora    *agora.Client
	Engine   *validator.Engine
	Gov      *governance.Engine
	Pipeline *ingest.Pipeline

	restServer *rest.Server
}

func New(configPath string) (*App, error) {
	cfg, err := conf.NewConfig(configPath)
	if err != nil {
		fmt.Println("Failed to initialize application: ", err)
		return nil, err
	}

	if err := logger.InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ledger, err := storage.OpenLedger(cfg)
	if err != nil {
		logger.Error("Failed to open ledger: ", err)
		return nil, err
	}

	pool, err := storage.InitPoolDB(cfg)
	if err != nil {
		logger.Error("Failed to open pool db: ", err)
		return nil, err
	}

	client := agora.NewClient(cfg.Agora.Endpoint)
	engine := validator.NewEngine(ledger)
	gov := governance.NewEngine(cfg, ledger)

	// governance effects commit inside the same transaction as the block
	ledger.SetGovernanceHook(gov)

	pipeline := ingest.NewPipeline(cfg, ledger, pool, client)

	app := &App{
		stop:     make(chan struct{}),
		Conf:     *cfg,
		Ledger:   ledger,
		Pool:     pool,
		Agora:    client,
		Engine:   engine,
		Gov:      gov,
		Pipeline: pipeline,
	}

	app.restServer = rest.NewServer(cfg, ledger, pool, engine, gov, client, pipeline)

	// WebSocket fan-out after each commit, in commit order
	wsHub := app.restServer.GetWSHub()
	wsHub.SetStatsProvider(func() interface{} {
		stats, err := ledger.Stats()
		if err != nil {
			return nil
		}
		return rest.FormatStats(stats)
	})
	pipeline.SetBlockCommitCallback(func(blk *core.Block) {
		wsHub.BroadcastNewBlock(blk, blk.Time(cfg.Consensus.GenesisTimestamp, cfg.Consensus.BlockIntervalSeconds))
		wsHub.BroadcastNewTransactions(blk)
		if stats, err := ledger.Stats(); err == nil {
			wsHub.BroadcastStats(rest.FormatStats(stats))
		}
	})

	return app, nil
}

// StartAll brings the service up: read API first, then catch-up against
// the consensus tip, then the write API and the mutator worker.
func (p *App) StartAll() error {
	if err := p.restServer.StartPublic(); err != nil {
		return fmt.Errorf("failed to start public API: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	if err := p.Pipeline.CatchUp(ctx); err != nil {
		return fmt.Errorf("catch-up failed: %w", err)
	}

	p.Pipeline.Run()

	if err := p.restServer.StartPrivate(); err != nil {
		return fmt.Errorf("failed to start private API: %w", err)
	}

	if p.Conf.Governance.Enabled {
		go p.metadataLoop()
	}

	logger.Info("All services started successfully")
	return nil
}

// metadataLoop pulls proposal metadata out of band.
func (p *App) metadataLoop() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			p.Gov.SyncMetadata(ctx)
			cancel()
		}
	}
}

// Cleanup 애플리케이션 정리
func (p *App) Cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if p.restServer != nil {
		if err := p.restServer.Stop(ctx); err != nil {
			logger.Error("Error stopping API servers:", err)
		}
	}

	if p.Pipeline != nil {
		p.Pipeline.Stop()
		logger.Info("Ingestion pipeline stopped")
	}

	if p.Pool != nil {
		if err := p.Pool.Close(); err != nil {
			logger.Error("Error closing pool db:", err)
		}
	}
	if p.Ledger != nil {
		if err := p.Ledger.Close(); err != nil {
			logger.Error("Error closing ledger:", err)
		}
	}

	logger.Info("All resources cleaned up")
}

func (p *App) Wait() {
	<-p.stop
}

func (p *App) Terminate() {
	p.Cleanup()
	close(p.stop)
}

func (p *App) SigHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Arrived terminate signal: ", sig)
		p.Terminate()
	}()
}
