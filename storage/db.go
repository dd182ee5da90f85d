// Package storage holds the durable projection of the chain: a relational
// ledger for everything committed, and a small LevelDB side store for the
// best-effort transaction pool.
package storage

import (
	"errors"
	"fmt"

	log "github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/config"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound       = errors.New("storage: not found")
	ErrStaleTip       = errors.New("storage: pre-image tip not newer")
	ErrDuplicateBlock = errors.New("storage: block height already committed")
)

// LedgerDB manages the relational ledger handle. All mutation goes through
// Atomic; readers use plain queries on the pooled handle.
type LedgerDB struct {
	db  *sqlx.DB
	gov GovernanceHook

	genesisTimestamp int64
	blockInterval    uint64
}

// GovernanceHook is invoked inside the PutBlock transaction so governance
// effects land in the same commit as the block itself.
type GovernanceHook interface {
	OnTxCommitted(dbtx *sqlx.Tx, height uint64, tx *TxRecord) error
	OnHeightCommitted(dbtx *sqlx.Tx, height uint64) error
}

func OpenLedger(cfg *config.Config) (*LedgerDB, error) {
	var dsn string
	switch cfg.Database.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
		mc.User = cfg.Database.User
		mc.Passwd = cfg.Database.Password
		mc.DBName = cfg.Database.Name
		mc.MultiStatements = cfg.Database.MultiStatements
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	case "sqlite3":
		dsn = cfg.Database.Name
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	db, err := sqlx.Open(cfg.Database.Driver, dsn)
	if err != nil {
		log.Error("Failed to open ledger db: ", err)
		return nil, err
	}
	if cfg.Database.PoolLimit > 0 {
		db.SetMaxOpenConns(cfg.Database.PoolLimit)
	}
	if cfg.Database.Driver == "sqlite3" {
		// in-memory sqlite exists per connection
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach ledger db: %w", err)
	}

	l := &LedgerDB{
		db:               db,
		genesisTimestamp: cfg.Consensus.GenesisTimestamp,
		blockInterval:    cfg.Consensus.BlockIntervalSeconds,
	}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("Successfully opened ledger db: ", cfg.Database.Driver)
	return l, nil
}

// SetGovernanceHook wires the governance engine. Must be called before the
// first PutBlock; nil disables governance processing.
func (p *LedgerDB) SetGovernanceHook(hook GovernanceHook) {
	p.gov = hook
}

func (p *LedgerDB) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// DB exposes the handle for read-side queries.
func (p *LedgerDB) DB() *sqlx.DB {
	return p.db
}

func (p *LedgerDB) initSchema() error {
	for _, stmt := range ledgerSchema {
		if _, err := p.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema init failed: %w", err)
		}
	}
	return nil
}

// Atomic runs fn inside a transaction; any error rolls everything back.
func (p *LedgerDB) Atomic(fn func(dbtx *sqlx.Tx) error) error {
	dbtx, err := p.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}

	if err := fn(dbtx); err != nil {
		dbtx.Rollback()
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}
