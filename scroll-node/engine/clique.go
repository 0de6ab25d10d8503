package engine

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-service/eth"
)

const (
	// Clique block difficulties of an in-turn and an out-of-turn signer.
	diffInTurn = 2
	diffNoTurn = 1
)

// CliqueValidator validates payloads of the Scroll chain, whose blocks are sealed by Clique.
// The engine API payload has no difficulty field, so both Clique difficulties are tried.
type CliqueValidator struct {
	log     log.Logger
	metrics Metrics
}

var _ PayloadValidator[*types.Block] = (*CliqueValidator)(nil)

func NewCliqueValidator(log log.Logger, m Metrics) *CliqueValidator {
	return &CliqueValidator{log: log, metrics: m}
}

func (v *CliqueValidator) EnsureWellFormedPayload(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (*types.Block, error) {
	block, err := v.ensureWellFormed(payload, sidecar)
	v.metrics.RecordPayloadValidation("clique", err)
	return block, err
}

func (v *CliqueValidator) ensureWellFormed(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (*types.Block, error) {
	block, err := ScrollBlockFromPayload(payload, sidecar)
	if err != nil {
		return nil, err
	}
	expected := payload.BlockHash

	inTurn, hash := sealedHeader(block.Header, diffInTurn)
	if hash == expected {
		return &types.Block{Header: inTurn, Body: block.Body}, nil
	}
	noTurn, hash := sealedHeader(block.Header, diffNoTurn)
	if hash == expected {
		return &types.Block{Header: noTurn, Body: block.Body}, nil
	}
	v.log.Warn("Payload block hash mismatch", "number", uint64(payload.BlockNumber), "expected", expected, "noTurn", hash)
	return nil, &eth.PayloadError{Kind: eth.BlockHash, Execution: hash, Consensus: expected}
}

// ScrollBlockFromPayload builds the unsealed Scroll block described by payload.
func ScrollBlockFromPayload(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (*types.Block, error) {
	header, err := payload.Header(sidecar)
	if err != nil {
		return nil, err
	}
	txs := make([]*types.Transaction, len(payload.Transactions))
	for i, raw := range payload.Transactions {
		var tx types.Transaction
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, &eth.PayloadError{Kind: eth.Decode, Err: err}
		}
		txs[i] = &tx
	}
	return types.NewBlock(header, txs), nil
}
