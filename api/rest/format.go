package rest

import (
	"github.com/agorascan/agorascan-node/common/utils"
	"github.com/agorascan/agorascan-node/governance"
	"github.com/agorascan/agorascan-node/storage"
	"github.com/agorascan/agorascan-node/validator"
)

func formatBlockHeader(rec *storage.BlockRecord) BlockHeaderResp {
	return BlockHeaderResp{
		Height:      rec.Height,
		Hash:        rec.Hash,
		PrevHash:    rec.PrevHash,
		MerkleRoot:  rec.MerkleRoot,
		Signature:   rec.Signature,
		RandomSeed:  rec.RandomSeed,
		Time:        rec.TimeStamp,
		TxCount:     rec.TxCount,
		Enrollments: rec.EnrollmentCount,
		Validators:  rec.ActiveValidators,
	}
}

func formatTxList(items []storage.TxListItem) []TxListResp {
	resp := make([]TxListResp, 0, len(items))
	for _, item := range items {
		resp = append(resp, TxListResp{
			TxHash:    item.TxHash,
			Height:    item.BlockHeight,
			BlockHash: item.BlockHash,
			Type:      item.Type,
			Amount:    Amount(item.Amount),
			Fee:       Amount(item.Fee),
			Size:      item.TxSize,
			Time:      item.TimeStamp,
		})
	}
	return resp
}

func formatTxDetail(detail *storage.TxDetail) TxDetailResp {
	resp := TxDetailResp{
		TxHash:  detail.Tx.TxHash,
		Height:  detail.Tx.BlockHeight,
		Hash:    detail.Block.Hash,
		Type:    detail.Tx.Type,
		Time:    detail.Tx.TimeStamp,
		Fee:     Amount(detail.Tx.Fee),
		Size:    detail.Tx.TxSize,
		Payload: len(detail.Tx.Payload) > 0,
	}

	for _, in := range detail.Inputs {
		resp.Inputs = append(resp.Inputs, TxEndpoint{
			Address: in.Address,
			Amount:  Amount(in.Amount),
			UtxoKey: in.UtxoKey,
		})
	}
	for _, out := range detail.Outputs {
		o := TxOutputResp{
			Address:      out.Address,
			Amount:       Amount(out.Amount),
			Type:         out.Type,
			UtxoKey:      out.UtxoKey,
			UnlockHeight: out.UnlockHeight,
		}
		if out.UsedHeight.Valid {
			o.UsedHeight = uint64(out.UsedHeight.Int64)
		}
		resp.Outputs = append(resp.Outputs, o)
	}
	return resp
}

func formatUtxos(recs []storage.OutputRecord) []UtxoResp {
	resp := make([]UtxoResp, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, UtxoResp{
			UtxoKey:      rec.UtxoKey,
			TxHash:       rec.TxHash,
			OutputIndex:  rec.OutputIndex,
			Address:      rec.Address,
			Amount:       Amount(rec.Amount),
			Type:         rec.Type,
			LockType:     rec.LockType,
			LockBytes:    rec.LockBytes,
			UnlockHeight: rec.UnlockHeight,
			Height:       rec.BlockHeight,
		})
	}
	return resp
}

func formatValidators(vals []*validator.Validator) []ValidatorResp {
	resp := make([]ValidatorResp, 0, len(vals))
	for _, v := range vals {
		resp = append(resp, ValidatorResp{
			Address:        utils.AddressToString(v.Address),
			StakeUtxo:      utils.HashToString(v.UtxoKey),
			EnrolledAt:     v.EnrolledAt,
			CycleLength:    v.CycleLength,
			PreimageHeight: v.TipHeight,
			PreimageHash:   utils.HashToString(v.TipHash),
		})
	}
	return resp
}

// FormatStats is shared with the websocket stats tick.
func FormatStats(stats *storage.ChainStats) StatsResp {
	return StatsResp{
		Height:            stats.Height,
		Transactions:      Amount(stats.TotalTransactions),
		Validators:        stats.TotalValidators,
		ActiveValidators:  stats.ActiveValidators,
		FrozenAmount:      Amount(stats.FrozenAmount),
		CirculatingSupply: Amount(stats.CirculatingSupply),
		TotalFees:         Amount(stats.TotalFees),
		Holders:           stats.HolderCount,
	}
}

func formatProposal(row *governance.ProposalSummary, meta *governance.ProposalMetadata) ProposalResp {
	resp := ProposalResp{
		ProposalID:      row.ProposalID,
		AppName:         row.AppName,
		ProposalType:    row.ProposalType,
		Title:           row.Title,
		Proposer:        row.ProposerAddress,
		FeeDestination:  row.FeeDestination,
		FeeTxHash:       row.FeeTxHash,
		VoteStartHeight: row.VoteStartHeight,
		VoteEndHeight:   row.VoteEndHeight,
		DocHash:         row.DocHash,
		FundAmount:      Amount(row.FundAmount),
		ProposalFee:     Amount(row.ProposalFee),
		VoteFee:         Amount(row.VoteFee),
		Status:          row.Status,
		Result:          row.Result,
		BallotCount:     row.BallotCount,
	}
	if meta != nil {
		resp.Metadata = meta
	}
	return resp
}
