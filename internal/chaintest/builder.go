// Package chaintest builds deterministic test chains that satisfy every
// commit-time check of the ledger: resolvable inputs, freeze-backed
// enrollments, committee-ordered pre-image vectors and decryptable
// ballots. Used by package tests and the chainload tool.
package chaintest

import (
	"fmt"
	"sort"

	"github.com/agorascan/agorascan-node/common/crypto"
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/governance"
	prt "github.com/agorascan/agorascan-node/protocol"
	"github.com/agorascan/agorascan-node/validator"
	"github.com/agorascan/agorascan-node/wallet"
)

// Fixed, valid BIP-39 mnemonic; every run derives the same keys.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

const (
	StakeAmount    uint64 = 40_000_000
	TreasuryAmount uint64 = 500_000_000
)

type utxo struct {
	key    prt.Hash
	amount uint64
}

type enrollmentState struct {
	account    *wallet.Account
	stakeUtxo  prt.Hash
	enrolledAt uint64
	cycle      uint64
	chain      []prt.Hash // preimages [enrolledAt .. enrolledAt+cycle]
}

// Builder assembles a chain block by block.
type Builder struct {
	Cycle  uint64
	wm     *wallet.WalletManager
	blocks []*core.Block

	// spendable outputs per account index
	utxos map[int][]utxo

	// stake utxo hex -> active enrollment state
	enrollments map[string]*enrollmentState

	// app:proposal -> fee marker tx hash
	feeTxs map[string]prt.Hash
}

func NewBuilder(cycle uint64) (*Builder, error) {
	wm := wallet.NewWalletManager("")
	if _, err := wm.RestoreWallet(testMnemonic); err != nil {
		return nil, err
	}

	return &Builder{
		Cycle:       cycle,
		wm:          wm,
		utxos:       make(map[int][]utxo),
		enrollments: make(map[string]*enrollmentState),
		feeTxs:      make(map[string]prt.Hash),
	}, nil
}

func (b *Builder) Account(index int) *wallet.Account {
	acc, err := b.wm.DeriveAccount(index)
	if err != nil {
		panic(err)
	}
	return acc
}

func (b *Builder) Blocks() []*core.Block { return b.blocks }

func (b *Builder) Height() uint64 {
	return uint64(len(b.blocks)) - 1
}

// Genesis builds block 0: one coinbase funding the treasury (account 0)
// and a frozen stake per validator account (1..numValidators), plus the
// matching enrollments.
func (b *Builder) Genesis(numValidators int) *core.Block {
	if len(b.blocks) != 0 {
		panic("genesis already built")
	}

	tx := &core.Transaction{Type: prt.TxCoinbase}
	tx.Outputs = append(tx.Outputs, &core.TxOutput{
		Address:  b.Account(0).Address,
		Amount:   TreasuryAmount,
		Type:     prt.TxPayment,
		LockType: prt.LockKey,
	})
	for i := 1; i <= numValidators; i++ {
		tx.Outputs = append(tx.Outputs, &core.TxOutput{
			Address:  b.Account(i).Address,
			Amount:   StakeAmount,
			Type:     prt.TxFreeze,
			LockType: prt.LockKey,
		})
	}

	txHash := tx.Hash()
	b.utxos[0] = append(b.utxos[0], utxo{key: utils.HashUtxoKey(txHash, 0), amount: TreasuryAmount})

	var enrollments []core.Enrollment
	for i := 1; i <= numValidators; i++ {
		stakeKey := utils.HashUtxoKey(txHash, uint64(i))
		enrollments = append(enrollments, b.makeEnrollment(i, stakeKey, 0))
	}

	return b.seal([]*core.Transaction{tx}, enrollments)
}

// makeEnrollment anchors a fresh pre-image chain for the account's stake.
func (b *Builder) makeEnrollment(accountIdx int, stakeUtxo prt.Hash, height uint64) core.Enrollment {
	acc := b.Account(accountIdx)

	// per-enrollment chain seed: account address + anchor height
	seed := utils.HashMulti(acc.Address[:], utils.Uint64ToBytes(height), []byte("preimage-seed"))
	chain := validator.BuildPreimageChain(seed, b.Cycle)

	state := &enrollmentState{
		account:    acc,
		stakeUtxo:  stakeUtxo,
		enrolledAt: height,
		cycle:      b.Cycle,
		chain:      chain,
	}
	b.enrollments[utils.HashToString(stakeUtxo)] = state

	enr := core.Enrollment{
		UtxoKey:     stakeUtxo,
		Commitment:  chain[0],
		CycleLength: b.Cycle,
	}
	enr.EnrollSig = b.sign(acc, enr.Commitment[:])
	return enr
}

// FreezeAndEnroll builds a freeze tx from the treasury to the account and
// the enrollment spending window opens at the block being built.
func (b *Builder) FreezeAndEnroll(accountIdx int) (*core.Transaction, core.Enrollment) {
	tx := b.transfer(0, accountIdx, StakeAmount, 100, prt.TxFreeze, nil)

	// the stake is the first output
	stakeKey := utils.HashUtxoKey(tx.Hash(), 0)
	enr := b.makeEnrollment(accountIdx, stakeKey, uint64(len(b.blocks)))
	return tx, enr
}

// ReEnroll renews an expiring enrollment with the same frozen stake.
func (b *Builder) ReEnroll(accountIdx int) core.Enrollment {
	acc := b.Account(accountIdx)
	for key, state := range b.enrollments {
		if state.account.Index == accountIdx {
			stakeUtxo, _ := utils.StringToHash(key)
			return b.makeEnrollment(accountIdx, stakeUtxo, uint64(len(b.blocks)))
		}
	}
	panic(fmt.Sprintf("no enrollment to renew for account %d (%s)",
		accountIdx, crypto.AddressTo0xPrefixString(acc.Address)))
}

// Payment builds a plain transfer from the treasury.
func (b *Builder) Payment(toIdx int, amount uint64, payload []byte) *core.Transaction {
	return b.transfer(0, toIdx, amount, 100, prt.TxPayment, payload)
}

// transfer consumes tracked utxos of the sender and records the change.
func (b *Builder) transfer(fromIdx, toIdx int, amount, fee uint64, outType uint8, payload []byte) *core.Transaction {
	need := amount + fee
	var total uint64
	var inputs []*core.TxInput
	available := b.utxos[fromIdx]
	used := 0
	from := b.Account(fromIdx)

	for _, u := range available {
		if total >= need {
			break
		}
		inputs = append(inputs, &core.TxInput{
			UtxoKey: u.key,
			Unlock:  b.sign(from, u.key[:]),
		})
		total += u.amount
		used++
	}
	if total < need {
		panic(fmt.Sprintf("account %d has %d, needs %d", fromIdx, total, need))
	}
	b.utxos[fromIdx] = available[used:]

	tx := &core.Transaction{
		Type:    prt.TxPayment,
		Inputs:  inputs,
		Payload: payload,
	}
	if outType == prt.TxFreeze {
		tx.Type = prt.TxFreeze
	}
	tx.Outputs = append(tx.Outputs, &core.TxOutput{
		Address:  b.Account(toIdx).Address,
		Amount:   amount,
		Type:     outType,
		LockType: prt.LockKey,
	})
	if change := total - need; change > 0 {
		tx.Outputs = append(tx.Outputs, &core.TxOutput{
			Address:  from.Address,
			Amount:   change,
			Type:     prt.TxPayment,
			LockType: prt.LockKey,
		})
	}

	// track the new outputs
	txHash := tx.Hash()
	b.utxos[toIdx] = append(b.utxos[toIdx], utxo{key: utils.HashUtxoKey(txHash, 0), amount: amount})
	if change := total - need; change > 0 {
		b.utxos[fromIdx] = append(b.utxos[fromIdx], utxo{key: utils.HashUtxoKey(txHash, 1), amount: change})
	}

	return tx
}

// NextBlock seals the given transactions into the block at the next height.
func (b *Builder) NextBlock(txs []*core.Transaction, enrollments []core.Enrollment) *core.Block {
	if len(b.blocks) == 0 {
		panic("build genesis first")
	}
	if txs == nil {
		// every block carries at least a coinbase-style heartbeat payment
		txs = []*core.Transaction{b.Payment(0, 1, nil)}
	}
	return b.seal(txs, enrollments)
}

func (b *Builder) seal(txs []*core.Transaction, enrollments []core.Enrollment) *core.Block {
	height := uint64(len(b.blocks))

	var prevHash prt.Hash
	if height > 0 {
		prevHash = b.blocks[height-1].Header.Hash
	}

	header := core.BlockHeader{
		Height:      height,
		PrevHash:    prevHash,
		MerkleRoot:  core.MerkleRoot(core.TxHashes(txs)),
		RandomSeed:  utils.HashMulti(utils.Uint64ToBytes(height), []byte("seed")),
		Enrollments: enrollments,
		Preimages:   b.preimageVector(height),
	}

	blk := &core.Block{Header: header, Transactions: txs}
	blk.Header.Hash = blk.ComputeHash()
	b.blocks = append(b.blocks, blk)
	return blk
}

// preimageVector lists, in canonical address order, the pre-image each
// committee member publishes for this height.
func (b *Builder) preimageVector(height uint64) []prt.Hash {
	type member struct {
		addr  prt.Address
		state *enrollmentState
	}

	var committee []member
	for _, state := range b.enrollments {
		if state.enrolledAt <= height && height <= state.enrolledAt+state.cycle {
			committee = append(committee, member{addr: state.account.Address, state: state})
		}
	}
	sort.Slice(committee, func(i, j int) bool {
		return utils.AddressToString(committee[i].addr) < utils.AddressToString(committee[j].addr)
	})

	vector := make([]prt.Hash, len(committee))
	for i, m := range committee {
		vector[i] = m.state.chain[height-m.state.enrolledAt]
	}
	return vector
}

// PreimageAt exposes a validator's pre-image for ballots and submissions.
func (b *Builder) PreimageAt(accountIdx int, height uint64) prt.Hash {
	for _, state := range b.enrollments {
		if state.account.Index == accountIdx &&
			state.enrolledAt <= height && height <= state.enrolledAt+state.cycle {
			return state.chain[height-state.enrolledAt]
		}
	}
	panic(fmt.Sprintf("account %d not enrolled at height %d", accountIdx, height))
}

// StakeUtxo returns the stake key backing the account's live enrollment.
func (b *Builder) StakeUtxo(accountIdx int) prt.Hash {
	for _, state := range b.enrollments {
		if state.account.Index == accountIdx {
			return state.stakeUtxo
		}
	}
	panic(fmt.Sprintf("account %d not enrolled", accountIdx))
}

// FeeTx builds a proposal fee marker paying the destination account.
func (b *Builder) FeeTx(appName, proposalID string, destIdx int, amount uint64) *core.Transaction {
	payload := (&prt.ProposalFeePayload{AppName: appName, ProposalID: proposalID}).Encode()
	tx := b.Payment(destIdx, amount, payload)
	b.feeTxs[appName+":"+proposalID] = tx.Hash()
	return tx
}

// FeeTxHashFor returns the fee marker hash a declaration must reference.
func (b *Builder) FeeTxHashFor(appName, proposalID string) prt.Hash {
	hash, ok := b.feeTxs[appName+":"+proposalID]
	if !ok {
		panic(fmt.Sprintf("no fee tx recorded for %s/%s", appName, proposalID))
	}
	return hash
}

// ProposalTx builds a proposal declaration referencing a prior fee tx.
func (b *Builder) ProposalTx(decl *prt.ProposalPayload) *core.Transaction {
	return b.Payment(0, 1, decl.Encode())
}

// BallotTx builds an encrypted ballot from a validator account. The answer
// seals under the key the tally will derive from the validator's pre-image
// at the vote end height.
func (b *Builder) BallotTx(appName, proposalID string, voteEnd uint64, accountIdx int, answer byte, sequence uint32) (*core.Transaction, error) {
	acc := b.Account(accountIdx)
	preimage := b.PreimageAt(accountIdx, voteEnd)

	key := governance.EncryptKeyDerive(preimage, appName, proposalID)
	sealed, err := governance.SealBallot(key, answer)
	if err != nil {
		return nil, err
	}

	// one-shot temporary key per (validator, sequence)
	temp := b.Account(1000 + accountIdx*100 + int(sequence))

	card := prt.VoterCard{
		Validator:       acc.Address,
		ValidatorPubKey: acc.PublicKey,
		TempAddress:     temp.Address,
		TempPubKey:      temp.PublicKey,
		Expires:         "2030-01-01T00:00:00Z",
	}
	card.Signature = b.sign(acc, card.SigningBytes())

	ballot := &prt.BallotPayload{
		AppName:         appName,
		ProposalID:      proposalID,
		EncryptedAnswer: sealed,
		Card:            card,
		Sequence:        sequence,
	}
	ballot.Signature = b.sign(temp, ballot.SigningBytes())

	return b.Payment(0, 1, ballot.Encode()), nil
}

func (b *Builder) sign(acc *wallet.Account, data []byte) prt.Signature {
	priv, err := crypto.BytesToPrivateKey(acc.PrivateKey)
	if err != nil {
		panic(err)
	}
	sig, err := crypto.SignData(priv, data)
	if err != nil {
		panic(err)
	}
	return sig
}
