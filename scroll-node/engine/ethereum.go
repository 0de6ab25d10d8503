package engine

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"

	"github.com/scroll-tech/l2-executor/scroll-service/eth"
)

// EthereumValidator validates payloads under the base protocol rules, where the payload block
// hash is the hash of the header as given.
type EthereumValidator struct {
	log     log.Logger
	forks   Forks
	metrics Metrics
}

var _ PayloadValidator[*gethtypes.Block] = (*EthereumValidator)(nil)

func NewEthereumValidator(log log.Logger, forks Forks, m Metrics) *EthereumValidator {
	return &EthereumValidator{log: log, forks: forks, metrics: m}
}

func (v *EthereumValidator) EnsureWellFormedPayload(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (*gethtypes.Block, error) {
	block, err := v.ensureWellFormed(payload, sidecar)
	v.metrics.RecordPayloadValidation("ethereum", err)
	return block, err
}

func (v *EthereumValidator) ensureWellFormed(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (*gethtypes.Block, error) {
	block, err := EthereumBlockFromPayload(payload, sidecar)
	if err != nil {
		return nil, err
	}
	if block.Hash() != payload.BlockHash {
		v.log.Warn("Payload block hash mismatch", "number", block.NumberU64(), "expected", payload.BlockHash, "got", block.Hash())
		return nil, &eth.PayloadError{Kind: eth.BlockHash, Execution: block.Hash(), Consensus: payload.BlockHash}
	}

	if err := v.checkForkFields(block, sidecar); err != nil {
		return nil, err
	}
	if err := ensureMatchingBlobVersionedHashes(block, sidecar); err != nil {
		return nil, err
	}
	return block, nil
}

// checkForkFields checks that the block carries exactly the fields of the forks active at its
// timestamp.
func (v *EthereumValidator) checkForkFields(block *gethtypes.Block, sidecar eth.ExecutionPayloadSidecar) error {
	header := block.Header()
	if v.forks.IsCancun(header.Time) {
		switch {
		case header.BlobGasUsed == nil:
			return &eth.PayloadError{Kind: eth.PostCancunBlockWithoutBlobGasUsed}
		case header.ExcessBlobGas == nil:
			return &eth.PayloadError{Kind: eth.PostCancunBlockWithoutExcessBlobGas}
		case sidecar.Cancun == nil:
			return &eth.PayloadError{Kind: eth.PostCancunWithoutCancunFields}
		}
	} else {
		switch {
		case hasTxType(block, gethtypes.BlobTxType):
			return &eth.PayloadError{Kind: eth.PreCancunBlockWithBlobTransactions}
		case header.BlobGasUsed != nil:
			return &eth.PayloadError{Kind: eth.PreCancunBlockWithBlobGasUsed}
		case header.ExcessBlobGas != nil:
			return &eth.PayloadError{Kind: eth.PreCancunBlockWithExcessBlobGas}
		case sidecar.Cancun != nil:
			return &eth.PayloadError{Kind: eth.PreCancunWithCancunFields}
		}
	}

	if !v.forks.IsShanghai(header.Time) && block.Withdrawals() != nil {
		return &eth.PayloadError{Kind: eth.PreShanghaiBlockWithWithdrawals}
	}
	if !v.forks.IsPrague(header.Time) && hasTxType(block, gethtypes.SetCodeTxType) {
		return &eth.PayloadError{Kind: eth.PrePragueBlockWithEip7702Transactions}
	}
	return nil
}

func hasTxType(block *gethtypes.Block, txType uint8) bool {
	for _, tx := range block.Transactions() {
		if tx.Type() == txType {
			return true
		}
	}
	return false
}

// ensureMatchingBlobVersionedHashes checks that the blob hashes of the block transactions are
// the versioned hashes of the sidecar, in order.
func ensureMatchingBlobVersionedHashes(block *gethtypes.Block, sidecar eth.ExecutionPayloadSidecar) error {
	var hashes []common.Hash
	for _, tx := range block.Transactions() {
		hashes = append(hashes, tx.BlobHashes()...)
	}
	if sidecar.Cancun == nil {
		if len(hashes) > 0 {
			return &eth.PayloadError{Kind: eth.InvalidVersionedHashes}
		}
		return nil
	}
	expected := sidecar.Cancun.VersionedHashes
	if len(hashes) != len(expected) {
		return &eth.PayloadError{Kind: eth.InvalidVersionedHashes}
	}
	for i := range hashes {
		if hashes[i] != expected[i] {
			return &eth.PayloadError{Kind: eth.InvalidVersionedHashes}
		}
	}
	return nil
}

// EthereumBlockFromPayload builds the base protocol block described by payload.
func EthereumBlockFromPayload(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (*gethtypes.Block, error) {
	header, err := payload.Header(sidecar)
	if err != nil {
		return nil, err
	}
	txs := make([]*gethtypes.Transaction, len(payload.Transactions))
	for i, raw := range payload.Transactions {
		var tx gethtypes.Transaction
		if err := tx.UnmarshalBinary(raw); err != nil {
			return nil, &eth.PayloadError{Kind: eth.Decode, Err: err}
		}
		txs[i] = &tx
	}
	body := gethtypes.Body{Transactions: txs}
	if payload.Withdrawals != nil {
		body.Withdrawals = *payload.Withdrawals
	}
	return gethtypes.NewBlockWithHeader(header).WithBody(body), nil
}
