package storage

import (
	"fmt"
	"time"

	log "github.com/agorascan/agorascan-node/common/logger"
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/config"
	"github.com/agorascan/agorascan-node/core"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/syndtr/goleveldb/leveldb"
)

// PoolDB is the best-effort mempool projection. Entries mirror what the
// consensus node relayed; the relational ledger stays authoritative.
type PoolDB struct {
	db *leveldb.DB
}

type PoolEntry struct {
	Tx       *core.Transaction
	TxHash   prt.Hash
	SeenTime int64
}

type poolAddrSet map[string]bool // tx hash strings pending for an address

func InitPoolDB(cfg *config.Config) (*PoolDB, error) {
	dbPath := fmt.Sprintf("%s/pool_%d.db", cfg.Pool.Path, cfg.Server.Port)

	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		log.Error("Failed to open pool db: ", err)
		return nil, err
	}

	log.Info("Successfully opened pool db: ", dbPath)
	return &PoolDB{db: db}, nil
}

func (p *PoolDB) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// PutPoolTx records a relayed pending transaction. Re-delivery overwrites
// the previous entry but keeps the first-seen time.
func (p *PoolDB) PutPoolTx(tx *core.Transaction) error {
	txHash := tx.Hash()
	entry := PoolEntry{Tx: tx, TxHash: txHash, SeenTime: time.Now().Unix()}

	seenKey := utils.GetPoolSeenKey(txHash)
	if seenBytes, err := p.db.Get(seenKey, nil); err == nil {
		entry.SeenTime = int64(utils.BytesToUint64(seenBytes))
	}

	batch := new(leveldb.Batch)

	entryBytes, err := utils.SerializeData(entry, utils.SerializationFormatGob)
	if err != nil {
		return fmt.Errorf("failed to serialize pool entry: %w", err)
	}
	batch.Put(utils.GetPoolTxKey(txHash), entryBytes)
	batch.Put(seenKey, utils.Uint64ToBytes(uint64(entry.SeenTime)))

	// index the pending tx under every involved address
	for _, out := range tx.Outputs {
		if err := p.addToAddrSet(batch, out.Address, txHash); err != nil {
			return err
		}
	}

	if err := p.db.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to write pool batch: %w", err)
	}
	return nil
}

func (p *PoolDB) addToAddrSet(batch *leveldb.Batch, address prt.Address, txHash prt.Hash) error {
	addrKey := utils.GetPoolAddrKey(address)

	set := make(poolAddrSet)
	if setBytes, err := p.db.Get(addrKey, nil); err == nil {
		if err := utils.DeserializeData(setBytes, &set, utils.SerializationFormatGob); err != nil {
			return fmt.Errorf("failed to deserialize pool addr set: %w", err)
		}
	} else if err != leveldb.ErrNotFound {
		return fmt.Errorf("failed to get pool addr set: %w", err)
	}

	set[utils.HashToString(txHash)] = true

	setBytes, err := utils.SerializeData(set, utils.SerializationFormatGob)
	if err != nil {
		return fmt.Errorf("failed to serialize pool addr set: %w", err)
	}
	batch.Put(addrKey, setBytes)
	return nil
}

func (p *PoolDB) GetPoolTx(txHash prt.Hash) (*PoolEntry, error) {
	entryBytes, err := p.db.Get(utils.GetPoolTxKey(txHash), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool entry: %w", err)
	}

	var entry PoolEntry
	if err := utils.DeserializeData(entryBytes, &entry, utils.SerializationFormatGob); err != nil {
		return nil, fmt.Errorf("failed to deserialize pool entry: %w", err)
	}
	return &entry, nil
}

// PoolTxsByAddress lists pending transactions touching an address.
func (p *PoolDB) PoolTxsByAddress(address prt.Address) ([]*PoolEntry, error) {
	setBytes, err := p.db.Get(utils.GetPoolAddrKey(address), nil)
	if err == leveldb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pool addr set: %w", err)
	}

	var set poolAddrSet
	if err := utils.DeserializeData(setBytes, &set, utils.SerializationFormatGob); err != nil {
		return nil, fmt.Errorf("failed to deserialize pool addr set: %w", err)
	}

	var entries []*PoolEntry
	for hashStr := range set {
		txHash, err := utils.StringToHash(hashStr)
		if err != nil {
			continue
		}
		entry, err := p.GetPoolTx(txHash)
		if err == ErrNotFound {
			continue // dropped on a prior block commit
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DropPoolTxs removes entries that landed in a committed block.
func (p *PoolDB) DropPoolTxs(txHashes []prt.Hash) {
	batch := new(leveldb.Batch)
	for _, txHash := range txHashes {
		entry, err := p.GetPoolTx(txHash)
		if err != nil {
			continue
		}
		batch.Delete(utils.GetPoolTxKey(txHash))
		batch.Delete(utils.GetPoolSeenKey(txHash))

		for _, out := range entry.Tx.Outputs {
			p.removeFromAddrSet(batch, out.Address, txHash)
		}
	}
	if err := p.db.Write(batch, nil); err != nil {
		log.Warn("Failed to drop pool entries: ", err)
	}
}

func (p *PoolDB) removeFromAddrSet(batch *leveldb.Batch, address prt.Address, txHash prt.Hash) {
	addrKey := utils.GetPoolAddrKey(address)
	setBytes, err := p.db.Get(addrKey, nil)
	if err != nil {
		return
	}
	var set poolAddrSet
	if err := utils.DeserializeData(setBytes, &set, utils.SerializationFormatGob); err != nil {
		return
	}
	delete(set, utils.HashToString(txHash))
	if len(set) == 0 {
		batch.Delete(addrKey)
		return
	}
	updated, err := utils.SerializeData(set, utils.SerializationFormatGob)
	if err != nil {
		return
	}
	batch.Put(addrKey, updated)
}
