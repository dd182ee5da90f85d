package wallet

import (
	prt "github.com/agorascan/agorascan-node/protocol"
)

// Mnemonic-based wallet types. The indexer itself holds no funds; the
// wallet backs the chain generator tool and test fixtures.
type MnemonicWallet struct {
	Mnemonic     string     `json:"mnemonic"`      // 12/15/18/21/24 words
	Seed         []byte     `json:"seed"`          // Seed derived from mnemonic
	MasterKey    []byte     `json:"master_key"`    // Master private key (bytes)
	Accounts     []*Account `json:"accounts"`      // Derived accounts
	CurrentIndex int        `json:"current_index"` // Currently used account index
}

type Account struct {
	Index      int         `json:"index"`       // Account index (0, 1, 2...)
	Address    prt.Address `json:"address"`     // 20-byte address
	PrivateKey []byte      `json:"private_key"` // Private key (bytes)
	PublicKey  []byte      `json:"public_key"`  // Public key (bytes)
	Path       string      `json:"path"`        // BIP-44 path (m/44'/60'/0'/0/0)
	Unlocked   bool        `json:"unlocked"`    // Unlock status
}

// BIP-44 path constants
const (
	BIP44Purpose  = 44
	BIP44CoinType = 60
	BIP44Account  = 0
	BIP44Change   = 0 // External
)
