package eth

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/holiman/uint256"
)

type (
	Data            = hexutil.Bytes
	Uint64Quantity  = hexutil.Uint64
	Uint256Quantity = hexutil.U256
)

type PayloadVersion uint8

const (
	PayloadV1 PayloadVersion = iota + 1
	PayloadV2
	PayloadV3
)

func (v PayloadVersion) String() string {
	return fmt.Sprintf("V%d", uint8(v))
}

// ExecutionPayload is the engine API execution payload, covering the V1 to V3 schemas.
// Fields introduced by later versions are nil when absent.
type ExecutionPayload struct {
	ParentHash    common.Hash      `json:"parentHash"`
	FeeRecipient  common.Address   `json:"feeRecipient"`
	StateRoot     common.Hash      `json:"stateRoot"`
	ReceiptsRoot  common.Hash      `json:"receiptsRoot"`
	LogsBloom     types.Bloom      `json:"logsBloom"`
	PrevRandao    common.Hash      `json:"prevRandao"`
	BlockNumber   Uint64Quantity   `json:"blockNumber"`
	GasLimit      Uint64Quantity   `json:"gasLimit"`
	GasUsed       Uint64Quantity   `json:"gasUsed"`
	Timestamp     Uint64Quantity   `json:"timestamp"`
	ExtraData     Data             `json:"extraData"`
	BaseFeePerGas *Uint256Quantity `json:"baseFeePerGas"`
	BlockHash     common.Hash      `json:"blockHash"`
	Transactions  []Data           `json:"transactions"`

	// V2
	Withdrawals *types.Withdrawals `json:"withdrawals,omitempty"`

	// V3
	BlobGasUsed   *Uint64Quantity `json:"blobGasUsed,omitempty"`
	ExcessBlobGas *Uint64Quantity `json:"excessBlobGas,omitempty"`
}

func (p *ExecutionPayload) Version() PayloadVersion {
	switch {
	case p.BlobGasUsed != nil || p.ExcessBlobGas != nil:
		return PayloadV3
	case p.Withdrawals != nil:
		return PayloadV2
	default:
		return PayloadV1
	}
}

func (p *ExecutionPayload) ID() BlockID {
	return BlockID{Hash: p.BlockHash, Number: uint64(p.BlockNumber)}
}

func (p *ExecutionPayload) String() string {
	return fmt.Sprintf("payload(%s, txs: %d, %s)", p.ID(), len(p.Transactions), p.Version())
}

// CancunPayloadFields are the sidecar fields introduced with Cancun (engine_newPayloadV3).
type CancunPayloadFields struct {
	ParentBeaconBlockRoot common.Hash   `json:"parentBeaconBlockRoot"`
	VersionedHashes       []common.Hash `json:"versionedHashes"`
}

// ExecutionPayloadSidecar carries the data passed next to the payload in newPayload calls.
type ExecutionPayloadSidecar struct {
	Cancun *CancunPayloadFields `json:"cancun,omitempty"`
}

// NoSidecar is the sidecar of pre-Cancun payloads.
var NoSidecar = ExecutionPayloadSidecar{}

type BlockID struct {
	Hash   common.Hash `json:"hash"`
	Number uint64      `json:"number"`
}

func (id BlockID) String() string {
	return fmt.Sprintf("%s:%d", id.Hash.String(), id.Number)
}

// TerminalString implements log.TerminalStringer.
func (id BlockID) TerminalString() string {
	return fmt.Sprintf("%s:%d", id.Hash.TerminalString(), id.Number)
}

// rawTransactions derives the transactions root straight from the opaque payload encodings.
type rawTransactions []Data

func (r rawTransactions) Len() int { return len(r) }

func (r rawTransactions) EncodeIndex(i int, w *bytes.Buffer) {
	w.Write(r[i])
}

// TransactionsRoot returns the trie root over the payload transactions as they were received.
func (p *ExecutionPayload) TransactionsRoot() common.Hash {
	return types.DeriveSha(rawTransactions(p.Transactions), trie.NewStackTrie(nil))
}

// Header builds the unsealed block header described by the payload and sidecar.
// The transactions are not decoded; callers decode them into their own transaction type.
func (p *ExecutionPayload) Header(sidecar ExecutionPayloadSidecar) (*types.Header, error) {
	if len(p.ExtraData) > int(params.MaximumExtraDataSize) {
		return nil, &PayloadError{Kind: ExtraData, Extra: p.ExtraData}
	}
	if p.BaseFeePerGas == nil {
		return nil, &PayloadError{Kind: BaseFee}
	}
	fee := (*uint256.Int)(p.BaseFeePerGas)
	if !fee.IsUint64() {
		return nil, &PayloadError{Kind: BaseFee, BaseFee: fee.ToBig()}
	}

	header := &types.Header{
		ParentHash:  p.ParentHash,
		UncleHash:   types.EmptyUncleHash,
		Coinbase:    p.FeeRecipient,
		Root:        p.StateRoot,
		TxHash:      p.TransactionsRoot(),
		ReceiptHash: p.ReceiptsRoot,
		Bloom:       p.LogsBloom,
		Difficulty:  new(big.Int),
		Number:      new(big.Int).SetUint64(uint64(p.BlockNumber)),
		GasLimit:    uint64(p.GasLimit),
		GasUsed:     uint64(p.GasUsed),
		Time:        uint64(p.Timestamp),
		Extra:       p.ExtraData,
		MixDigest:   p.PrevRandao,
		BaseFee:     fee.ToBig(),
	}
	if p.Withdrawals != nil {
		root := types.DeriveSha(*p.Withdrawals, trie.NewStackTrie(nil))
		header.WithdrawalsHash = &root
	}
	header.BlobGasUsed = (*uint64)(p.BlobGasUsed)
	header.ExcessBlobGas = (*uint64)(p.ExcessBlobGas)
	if sidecar.Cancun != nil {
		root := sidecar.Cancun.ParentBeaconBlockRoot
		header.ParentBeaconRoot = &root
	}
	return header, nil
}

// BlockToPayload converts a header and its encoded transactions into a payload.
// Withdrawals and blob fields are never emitted.
func BlockToPayload(header *types.Header, txs [][]byte) *ExecutionPayload {
	encoded := make([]Data, len(txs))
	for i, tx := range txs {
		encoded[i] = tx
	}
	var baseFee *Uint256Quantity
	if header.BaseFee != nil {
		baseFee = (*Uint256Quantity)(uint256.MustFromBig(header.BaseFee))
	}
	return &ExecutionPayload{
		ParentHash:    header.ParentHash,
		FeeRecipient:  header.Coinbase,
		StateRoot:     header.Root,
		ReceiptsRoot:  header.ReceiptHash,
		LogsBloom:     header.Bloom,
		PrevRandao:    header.MixDigest,
		BlockNumber:   Uint64Quantity(header.Number.Uint64()),
		GasLimit:      Uint64Quantity(header.GasLimit),
		GasUsed:       Uint64Quantity(header.GasUsed),
		Timestamp:     Uint64Quantity(header.Time),
		ExtraData:     header.Extra,
		BaseFeePerGas: baseFee,
		BlockHash:     header.Hash(),
		Transactions:  encoded,
	}
}
