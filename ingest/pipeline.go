// Package ingest serializes every mutation of the projection through one
// FIFO queue: block commits, pre-image advances and pool intakes never run
// concurrently, so the projection is deterministic given the ingress order
// and no cross-entity locking is needed.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agorascan/agorascan-node/agora"
	log "github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/config"
	"github.com/agorascan/agorascan-node/core"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/agorascan/agorascan-node/storage"
)

// MaxRecovery bounds one catch-up fetch; larger gaps take several passes.
const MaxRecovery = 64

const fetchTimeout = 30 * time.Second

type taskKind uint8

const (
	taskBlock taskKind = iota
	taskPreimage
	taskPoolTx
)

type task struct {
	kind     taskKind
	block    *core.Block
	preimage *PreimageSubmission
	poolTx   *core.Transaction
}

// PreimageSubmission은 /preimage_received로 들어오는 프리이미지 전진
type PreimageSubmission struct {
	UtxoKey prt.Hash `json:"utxo"`
	Hash    prt.Hash `json:"hash"`
	Height  uint64   `json:"height"`
}

// BlockCommitCallback fires after a commit has durably returned, in commit
// order.
type BlockCommitCallback func(blk *core.Block)

type Pipeline struct {
	ledger *storage.LedgerDB
	pool   *storage.PoolDB
	client *agora.Client

	tasks     chan task
	warnDepth int

	mu      sync.Mutex
	started bool
	halted  bool
	haltErr error

	onCommit BlockCommitCallback

	done chan struct{}
}

func NewPipeline(cfg *config.Config, ledger *storage.LedgerDB, pool *storage.PoolDB, client *agora.Client) *Pipeline {
	return &Pipeline{
		ledger:    ledger,
		pool:      pool,
		client:    client,
		tasks:     make(chan task, cfg.Server.IntakeQueue*2),
		warnDepth: cfg.Server.IntakeQueue,
		done:      make(chan struct{}),
	}
}

// SetBlockCommitCallback wires post-commit fan-out. Must be set before Run.
func (p *Pipeline) SetBlockCommitCallback(cb BlockCommitCallback) {
	p.onCommit = cb
}

// CatchUp runs recovery against the consensus tip. Called once at boot,
// before the private server opens; an unreachable node is fatal here.
func (p *Pipeline) CatchUp(ctx context.Context) error {
	tip, err := p.client.GetTipHeight(ctx)
	if err != nil {
		return fmt.Errorf("consensus node unreachable at start: %w", err)
	}

	expected, err := p.ledger.ExpectedNextHeight()
	if err != nil {
		return err
	}
	if expected > tip {
		return nil
	}

	log.Info("Catch-up: local height ", expected, ", consensus tip ", tip)
	if err := p.recoverTo(tip); err != nil {
		return err
	}
	return nil
}

// Run starts the single mutator worker.
func (p *Pipeline) Run() {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	go p.loop()
}

func (p *Pipeline) Stop() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return
	}
	close(p.tasks)
	<-p.done
}

func (p *Pipeline) loop() {
	defer close(p.done)
	for t := range p.tasks {
		var err error
		switch t.kind {
		case taskBlock:
			err = p.processBlock(t.block)
		case taskPreimage:
			p.processPreimage(t.preimage)
		case taskPoolTx:
			if poolErr := p.pool.PutPoolTx(t.poolTx); poolErr != nil {
				log.Warn("Pool intake failed: ", poolErr) // best effort
			}
		}

		if err != nil {
			// a failed commit leaves the projection behind the node;
			// stop mutating and surface the error
			p.mu.Lock()
			p.halted = true
			p.haltErr = err
			p.mu.Unlock()
			log.Error("Ingestion halted: ", err)
			return
		}
	}
}

// Halted reports whether the mutator stopped on a commit failure.
func (p *Pipeline) Halted() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.halted, p.haltErr
}

// SubmitBlock enqueues an externalized block. Shape was validated at the
// HTTP boundary; the reply does not wait for persistence.
func (p *Pipeline) SubmitBlock(blk *core.Block) {
	p.enqueue(task{kind: taskBlock, block: blk})
}

// SubmitPreimage enqueues a pre-image advance.
func (p *Pipeline) SubmitPreimage(sub *PreimageSubmission) {
	p.enqueue(task{kind: taskPreimage, preimage: sub})
}

// SubmitPoolTx enqueues a relayed pending transaction.
func (p *Pipeline) SubmitPoolTx(tx *core.Transaction) {
	p.enqueue(task{kind: taskPoolTx, poolTx: tx})
}

func (p *Pipeline) enqueue(t task) {
	if halted, err := p.Halted(); halted {
		log.Warn("Intake dropped, pipeline halted: ", err)
		return
	}
	if depth := len(p.tasks); depth >= p.warnDepth {
		log.Warn("Intake queue deep: ", depth, " tasks pending")
	}
	p.tasks <- t
}

// processBlock reconciles the submitted height against the expected one:
// commit directly, backfill the gap from the consensus node, or drop a
// duplicate.
func (p *Pipeline) processBlock(blk *core.Block) error {
	expected, err := p.ledger.ExpectedNextHeight()
	if err != nil {
		return err
	}
	h := blk.Header.Height

	switch {
	case h == expected:
		return p.commit(blk)

	case h > expected:
		if err := p.recoverTo(h - 1); err != nil {
			// fetch errors are retried on the next submission
			log.Warn("Recovery interrupted: ", err)
			return nil
		}
		expected, err = p.ledger.ExpectedNextHeight()
		if err != nil {
			return err
		}
		if h == expected {
			return p.commit(blk)
		}
		if h < expected {
			log.Debug("Block ", h, " already covered by recovery")
		}
		return nil

	default:
		log.Debug("Ignoring duplicate block ", h, ", expected ", expected)
		return nil
	}
}

// recoverTo pulls blocks from the consensus node until the local height
// reaches target. Each pass re-reads the expected height because recovery
// itself advances it.
func (p *Pipeline) recoverTo(target uint64) error {
	for {
		expected, err := p.ledger.ExpectedNextHeight()
		if err != nil {
			return err
		}
		if expected > target {
			return nil
		}

		count := uint(MaxRecovery)
		if remaining := target - expected + 1; remaining < uint64(count) {
			count = uint(remaining)
		}

		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		blocks, err := p.client.GetBlocksFrom(ctx, expected, count)
		cancel()
		if err != nil {
			return fmt.Errorf("recovery fetch from %d failed: %w", expected, err)
		}
		if len(blocks) == 0 {
			return fmt.Errorf("recovery fetch from %d returned no blocks", expected)
		}

		committed := 0
		for _, fetched := range blocks {
			if fetched.Header.Height != expected {
				break
			}
			if err := p.commit(fetched); err != nil {
				return err
			}
			expected++
			committed++
		}
		if committed == 0 {
			return fmt.Errorf("recovery fetch from %d made no progress", expected)
		}
	}
}

// commit persists one block and fans out after the transaction returned.
func (p *Pipeline) commit(blk *core.Block) error {
	if err := p.ledger.PutBlock(blk); err != nil {
		if err == storage.ErrDuplicateBlock {
			log.Debug("Duplicate block ", blk.Header.Height, " dropped at commit")
			return nil
		}
		return err
	}

	if p.pool != nil {
		p.pool.DropPoolTxs(core.TxHashes(blk.Transactions))
	}

	log.Info("Committed block ", blk.Header.Height, " (", len(blk.Transactions), " txs)")
	if p.onCommit != nil {
		p.onCommit(blk)
	}
	return nil
}

// processPreimage applies a monotone tip advance. Unknown stake utxos are
// treated as out-of-order delivery and dropped without noise.
func (p *Pipeline) processPreimage(sub *PreimageSubmission) {
	changed, err := p.ledger.UpdatePreimage(sub.UtxoKey, sub.Hash, sub.Height)
	if err == storage.ErrNotFound {
		log.Debug("Pre-image for unknown utxo dropped")
		return
	}
	if err != nil {
		log.Warn("Pre-image update failed: ", err)
		return
	}
	if changed {
		log.Debug("Pre-image tip advanced to ", sub.Height)
	}
}
