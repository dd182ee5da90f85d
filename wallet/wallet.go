package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agorascan/agorascan-node/common/crypto"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"

	"crypto/sha512"
)

const walletFileName = "wallet.json"

// WalletManager owns one mnemonic wallet persisted as a json file.
type WalletManager struct {
	walletDir string
	Wallet    *MnemonicWallet
}

func NewWalletManager(walletDir string) *WalletManager {
	return &WalletManager{walletDir: walletDir}
}

// CreateWallet generates a fresh mnemonic and derives account 0.
func (p *WalletManager) CreateWallet() (*MnemonicWallet, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return nil, fmt.Errorf("failed to generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return p.RestoreWallet(mnemonic)
}

// RestoreWallet rebuilds the wallet deterministically from a mnemonic.
func (p *WalletManager) RestoreWallet(mnemonic string) (*MnemonicWallet, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}

	// BIP-39 seed stretch
	seed := pbkdf2.Key([]byte(mnemonic), []byte("mnemonic"), 2048, 64, sha512.New)

	masterKey, err := crypto.DeriveMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	masterBytes, err := crypto.PrivateKeyToBytes(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize master key: %w", err)
	}

	wallet := &MnemonicWallet{
		Mnemonic:  mnemonic,
		Seed:      seed,
		MasterKey: masterBytes,
	}
	p.Wallet = wallet

	if _, err := p.DeriveAccount(0); err != nil {
		return nil, err
	}
	return wallet, nil
}

// DeriveAccount derives (or returns) the account at the index.
func (p *WalletManager) DeriveAccount(index int) (*Account, error) {
	if p.Wallet == nil {
		return nil, fmt.Errorf("wallet not loaded")
	}
	for _, acc := range p.Wallet.Accounts {
		if acc.Index == index {
			return acc, nil
		}
	}

	masterKey, err := crypto.BytesToPrivateKey(p.Wallet.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse master key: %w", err)
	}

	path := fmt.Sprintf("m/%d'/%d'/%d'/%d/%d",
		BIP44Purpose, BIP44CoinType, BIP44Account, BIP44Change, index)
	privateKey, publicKey, err := crypto.DeriveAccountKey(masterKey, path)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account key: %w", err)
	}

	privBytes, err := crypto.PrivateKeyToBytes(privateKey)
	if err != nil {
		return nil, err
	}
	pubBytes, err := crypto.PublicKeyToBytes(publicKey)
	if err != nil {
		return nil, err
	}
	address, err := crypto.PublicKeyToAddress(publicKey)
	if err != nil {
		return nil, err
	}

	account := &Account{
		Index:      index,
		Address:    address,
		PrivateKey: privBytes,
		PublicKey:  pubBytes,
		Path:       path,
		Unlocked:   true,
	}
	p.Wallet.Accounts = append(p.Wallet.Accounts, account)
	return account, nil
}

// GetMnemonic returns the stored mnemonic.
func (p *WalletManager) GetMnemonic() (string, error) {
	if p.Wallet == nil {
		return "", fmt.Errorf("wallet not loaded")
	}
	return p.Wallet.Mnemonic, nil
}

// SaveWallet writes the wallet file under the manager directory.
func (p *WalletManager) SaveWallet() error {
	if p.Wallet == nil {
		return fmt.Errorf("wallet not loaded")
	}
	if err := os.MkdirAll(p.walletDir, 0o700); err != nil {
		return fmt.Errorf("failed to create wallet dir: %w", err)
	}

	data, err := json.MarshalIndent(p.Wallet, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize wallet: %w", err)
	}
	return os.WriteFile(filepath.Join(p.walletDir, walletFileName), data, 0o600)
}

// LoadWalletFile reads the wallet file from the manager directory.
func (p *WalletManager) LoadWalletFile() error {
	data, err := os.ReadFile(filepath.Join(p.walletDir, walletFileName))
	if err != nil {
		return fmt.Errorf("failed to read wallet file: %w", err)
	}

	var wallet MnemonicWallet
	if err := json.Unmarshal(data, &wallet); err != nil {
		return fmt.Errorf("failed to parse wallet file: %w", err)
	}
	p.Wallet = &wallet
	return nil
}

// InitWallet loads the wallet at the path, creating one when absent.
func InitWallet(walletDir string) (*WalletManager, error) {
	wm := NewWalletManager(walletDir)
	if err := wm.LoadWalletFile(); err == nil {
		return wm, nil
	}

	if _, err := wm.CreateWallet(); err != nil {
		return nil, err
	}
	if err := wm.SaveWallet(); err != nil {
		return nil, err
	}
	return wm, nil
}
