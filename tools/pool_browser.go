package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/agorascan/agorascan-node/common/utils"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Small operator tool for poking at the LevelDB pool projection.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run tools/pool_browser.go <db_path> [command]")
		fmt.Println("Commands:")
		fmt.Println("  txs            - List pending transactions")
		fmt.Println("  addrs          - List addresses with pending txs")
		fmt.Println("  tx <hash>      - Show one pending transaction")
		fmt.Println("  keys           - Dump raw keys")
		return
	}

	dbPath := os.Args[1]
	command := "txs"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	db, err := leveldb.OpenFile(dbPath, &opt.Options{ReadOnly: true})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Pool database opened: %s\n\n", dbPath)

	switch command {
	case "txs":
		listPoolTxs(db)
	case "addrs":
		listPoolAddrs(db)
	case "tx":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run tools/pool_browser.go <db_path> tx <hash>")
			return
		}
		showPoolTx(db, os.Args[3])
	case "keys":
		dumpKeys(db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
	}
}

func listPoolTxs(db *leveldb.DB) {
	iter := db.NewIterator(util.BytesPrefix([]byte(prt.PrefixPoolTx)), nil)
	defer iter.Release()

	count := 0
	for iter.Next() {
		var entry storage.PoolEntry
		if err := utils.DeserializeData(iter.Value(), &entry, utils.SerializationFormatGob); err != nil {
			fmt.Printf("  (corrupt entry at %s)\n", iter.Key())
			continue
		}
		fmt.Printf("  %s  seen=%d  outputs=%d\n",
			utils.HashToString(entry.TxHash), entry.SeenTime, len(entry.Tx.Outputs))
		count++
	}
	fmt.Printf("\n%d pending transactions\n", count)
}

func listPoolAddrs(db *leveldb.DB) {
	iter := db.NewIterator(util.BytesPrefix([]byte(prt.PrefixPoolByAddr)), nil)
	defer iter.Release()

	for iter.Next() {
		addr := strings.TrimPrefix(string(iter.Key()), prt.PrefixPoolByAddr)

		var set map[string]bool
		if err := utils.DeserializeData(iter.Value(), &set, utils.SerializationFormatGob); err != nil {
			continue
		}
		fmt.Printf("  %s  pending=%d\n", addr, len(set))
	}
}

func showPoolTx(db *leveldb.DB, hashStr string) {
	hash, err := utils.StringToHash(hashStr)
	if err != nil {
		fmt.Printf("Invalid hash: %v\n", err)
		return
	}

	value, err := db.Get(utils.GetPoolTxKey(hash), nil)
	if err != nil {
		fmt.Printf("Not found: %v\n", err)
		return
	}

	var entry storage.PoolEntry
	if err := utils.DeserializeData(value, &entry, utils.SerializationFormatGob); err != nil {
		fmt.Printf("Corrupt entry: %v\n", err)
		return
	}

	fmt.Printf("TxHash: %s\n", utils.HashToString(entry.TxHash))
	fmt.Printf("Seen:   %d\n", entry.SeenTime)
	fmt.Printf("Type:   %d\n", entry.Tx.Type)
	for i, in := range entry.Tx.Inputs {
		fmt.Printf("  in[%d]:  %s\n", i, utils.HashToString(in.UtxoKey))
	}
	for i, out := range entry.Tx.Outputs {
		fmt.Printf("  out[%d]: %s  %d\n", i, utils.AddressToString(out.Address), out.Amount)
	}
}

func dumpKeys(db *leveldb.DB) {
	iter := db.NewIterator(nil, nil)
	defer iter.Release()

	for iter.Next() {
		fmt.Printf("  %s (%d bytes)\n", iter.Key(), len(iter.Value()))
	}
}
