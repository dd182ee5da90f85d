package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/agorascan/agorascan-node/core"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/internal/chaintest"
	prt "github.com/agorascan/agorascan-node/protocol"
)

// chainload builds a deterministic test chain — genesis enrollments,
// freeze-and-enroll, a full governance round — and feeds it to a running
// node through the private intake API.

var (
	privateURL string
	validators int
	cycle      uint64
	withGov    bool
	gapTest    bool
	verbose    bool
)

func main() {
	flag.StringVar(&privateURL, "url", "http://localhost:3826", "Private intake base URL")
	flag.IntVar(&validators, "validators", 6, "Genesis validator count")
	flag.Uint64Var(&cycle, "cycle", 20, "Validator cycle length")
	flag.BoolVar(&withGov, "governance", true, "Include a governance round")
	flag.BoolVar(&gapTest, "gap", false, "Skip a block range to exercise recovery")
	flag.BoolVar(&verbose, "verbose", false, "Verbose output")
	flag.Parse()

	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║        Agorascan Chain Load Tool             ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Validators:  %d\n", validators)
	fmt.Printf("  Cycle:       %d\n", cycle)
	fmt.Printf("  Governance:  %v\n", withGov)
	fmt.Printf("  Intake URL:  %s\n\n", privateURL)

	builder, err := chaintest.NewBuilder(cycle)
	if err != nil {
		fail("Failed to build key set: %v", err)
	}

	// [1] genesis with the initial committee
	fmt.Println("[1/4] Building genesis block...")
	builder.Genesis(validators)

	// [2] one more committee member via freeze-and-enroll
	fmt.Println("[2/4] Building freeze-and-enroll block...")
	tx, enr := builder.FreezeAndEnroll(validators + 1)
	builder.NextBlock([]*core.Transaction{tx}, []core.Enrollment{enr})

	// [3] a governance round
	if withGov {
		fmt.Println("[3/4] Building governance round...")
		buildGovernanceRound(builder)
	} else {
		fmt.Println("[3/4] Governance round skipped")
	}

	// pad the chain up to the tally height, renewing the committee at the
	// cycle boundary
	for builder.Height() < cycle+2 {
		if builder.Height()+1 == cycle {
			var renewals []core.Enrollment
			for i := 1; i <= validators+1; i++ {
				renewals = append(renewals, builder.ReEnroll(i))
			}
			builder.NextBlock(nil, renewals)
			continue
		}
		builder.NextBlock(nil, nil)
	}

	// [4] feed everything to the node
	fmt.Println("[4/4] Posting blocks to the intake API...")
	posted := 0
	for _, blk := range builder.Blocks() {
		if gapTest && blk.Header.Height > 3 && blk.Header.Height < 8 {
			continue // the node must backfill 4..7 on its own
		}
		if err := postBlock(blk); err != nil {
			fail("Failed to post block %d: %v", blk.Header.Height, err)
		}
		posted++
		if verbose {
			fmt.Printf("  ✓ block %d (%d txs)\n", blk.Header.Height, len(blk.Transactions))
		}
		time.Sleep(50 * time.Millisecond) // let the serial queue drain
	}

	fmt.Printf("\nDone: %d blocks posted (chain height %d)\n", posted, builder.Height())
}

func buildGovernanceRound(b *chaintest.Builder) {
	const (
		appName    = "Votera"
		proposalID = "469008972006"
	)
	voteStart := uint64(10)
	voteEnd := uint64(15)

	// fee marker at h=3
	for b.Height() < 2 {
		b.NextBlock(nil, nil)
	}
	b.NextBlock([]*core.Transaction{b.FeeTx(appName, proposalID, 9, 10_000)}, nil)

	// declaration at h=5
	b.NextBlock(nil, nil)
	feeTx := b.FeeTxHashFor(appName, proposalID)
	decl := &prt.ProposalPayload{
		AppName:        appName,
		ProposalType:   prt.ProposalTypeFund,
		ProposalID:     proposalID,
		Title:          "Fund the explorer rewrite",
		VoteStart:      voteStart,
		VoteEnd:        voteEnd,
		FundAmount:     1_000_000,
		ProposalFee:    10_000,
		VoteFee:        100,
		FeeTxHash:      feeTx,
		Proposer:       b.Account(1).Address,
		FeeDestination: b.Account(9).Address,
	}
	b.NextBlock([]*core.Transaction{b.ProposalTx(decl)}, nil)

	// pad to the voting window, then vote YES / NO / BLANK / YES
	for b.Height() < voteStart-1 {
		b.NextBlock(nil, nil)
	}
	answers := []byte{governance.AnswerYes, governance.AnswerNo, governance.AnswerBlank, governance.AnswerYes}
	for i, answer := range answers {
		ballot, err := b.BallotTx(appName, proposalID, voteEnd, i+1, answer, 0)
		if err != nil {
			fail("Failed to build ballot: %v", err)
		}
		b.NextBlock([]*core.Transaction{ballot}, nil)
	}
}

func postBlock(blk *core.Block) error {
	blockJSON, err := json.Marshal(blk)
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]json.RawMessage{"block": blockJSON})
	if err != nil {
		return err
	}

	resp, err := http.Post(privateURL+"/block_externalized", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("intake returned %d", resp.StatusCode)
	}
	return nil
}

func fail(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}
