package wallet

import (
	"testing"

	"github.com/agorascan/agorascan-node/common/crypto"
	"github.com/stretchr/testify/require"
)

// 지갑 생성
func TestCreateWallet(t *testing.T) {
	wm := NewWalletManager(t.TempDir())
	w, err := wm.CreateWallet()
	require.NoError(t, err)

	require.NotEmpty(t, w.Mnemonic)
	require.Len(t, w.Accounts, 1)
	require.NotEmpty(t, w.Accounts[0].PublicKey)

	addr, err := crypto.AddressFromPubKeyBytes(w.Accounts[0].PublicKey)
	require.NoError(t, err)
	require.Equal(t, w.Accounts[0].Address, addr)
}

func TestRestoreWalletIsDeterministic(t *testing.T) {
	wm := NewWalletManager(t.TempDir())
	w, err := wm.CreateWallet()
	require.NoError(t, err)

	restored, err := NewWalletManager(t.TempDir()).RestoreWallet(w.Mnemonic)
	require.NoError(t, err)
	require.Equal(t, w.Accounts[0].Address, restored.Accounts[0].Address)

	_, err = wm.RestoreWallet("definitely not a mnemonic")
	require.Error(t, err)
}

func TestDeriveAccountsAreDistinct(t *testing.T) {
	wm := NewWalletManager(t.TempDir())
	_, err := wm.CreateWallet()
	require.NoError(t, err)

	a1, err := wm.DeriveAccount(1)
	require.NoError(t, err)
	a2, err := wm.DeriveAccount(2)
	require.NoError(t, err)
	require.NotEqual(t, a1.Address, a2.Address)

	// re-deriving returns the cached account
	again, err := wm.DeriveAccount(1)
	require.NoError(t, err)
	require.Equal(t, a1, again)
}

func TestSaveAndLoadWallet(t *testing.T) {
	dir := t.TempDir()

	wm := NewWalletManager(dir)
	w, err := wm.CreateWallet()
	require.NoError(t, err)
	require.NoError(t, wm.SaveWallet())

	loaded := NewWalletManager(dir)
	require.NoError(t, loaded.LoadWalletFile())
	require.Equal(t, w.Mnemonic, loaded.Wallet.Mnemonic)
	require.Equal(t, w.Accounts[0].Address, loaded.Wallet.Accounts[0].Address)
}

func TestSignAndVerify(t *testing.T) {
	wm := NewWalletManager(t.TempDir())
	w, err := wm.CreateWallet()
	require.NoError(t, err)

	acc := w.Accounts[0]
	priv, err := crypto.BytesToPrivateKey(acc.PrivateKey)
	require.NoError(t, err)

	data := []byte("sign me")
	sig, err := crypto.SignData(priv, data)
	require.NoError(t, err)

	ok, err := crypto.VerifySignatureWithBytes(acc.PublicKey, data, sig)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = crypto.VerifySignatureWithBytes(acc.PublicKey, []byte("other data"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}
