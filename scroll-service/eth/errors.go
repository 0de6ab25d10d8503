package eth

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PayloadErrorKind enumerates the structural defects a payload can be rejected for.
type PayloadErrorKind uint8

const (
	BlockHash PayloadErrorKind = iota + 1
	ExtraData
	BaseFee
	Decode
	PostCancunBlockWithoutBlobGasUsed
	PostCancunBlockWithoutExcessBlobGas
	PostCancunWithoutCancunFields
	PreCancunBlockWithBlobTransactions
	PreCancunBlockWithBlobGasUsed
	PreCancunBlockWithExcessBlobGas
	PreCancunWithCancunFields
	PreShanghaiBlockWithWithdrawals
	PrePragueBlockWithEip7702Transactions
	InvalidVersionedHashes
)

var kindNames = map[PayloadErrorKind]string{
	BlockHash:                             "BlockHash",
	ExtraData:                             "ExtraData",
	BaseFee:                               "BaseFee",
	Decode:                                "Decode",
	PostCancunBlockWithoutBlobGasUsed:     "PostCancunBlockWithoutBlobGasUsed",
	PostCancunBlockWithoutExcessBlobGas:   "PostCancunBlockWithoutExcessBlobGas",
	PostCancunWithoutCancunFields:         "PostCancunWithoutCancunFields",
	PreCancunBlockWithBlobTransactions:    "PreCancunBlockWithBlobTransactions",
	PreCancunBlockWithBlobGasUsed:         "PreCancunBlockWithBlobGasUsed",
	PreCancunBlockWithExcessBlobGas:       "PreCancunBlockWithExcessBlobGas",
	PreCancunWithCancunFields:             "PreCancunWithCancunFields",
	PreShanghaiBlockWithWithdrawals:       "PreShanghaiBlockWithWithdrawals",
	PrePragueBlockWithEip7702Transactions: "PrePragueBlockWithEip7702Transactions",
	InvalidVersionedHashes:                "InvalidVersionedHashes",
}

func (k PayloadErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PayloadErrorKind(%d)", uint8(k))
}

// PayloadError is returned when a payload cannot be turned into a valid sealed block.
// Only the fields relevant to Kind are set.
type PayloadError struct {
	Kind PayloadErrorKind

	// BlockHash
	Execution common.Hash
	Consensus common.Hash

	// ExtraData
	Extra []byte
	// BaseFee; nil when the payload carries no base fee
	BaseFee *big.Int
	// Decode
	Err error
}

func (e *PayloadError) Error() string {
	switch e.Kind {
	case BlockHash:
		return fmt.Sprintf("block hash mismatch: want %s, got %s", e.Consensus, e.Execution)
	case ExtraData:
		return fmt.Sprintf("invalid payload extra data: %#x", e.Extra)
	case BaseFee:
		if e.BaseFee == nil {
			return "missing payload base fee"
		}
		return fmt.Sprintf("invalid payload base fee: %s", e.BaseFee)
	case Decode:
		return fmt.Sprintf("invalid transaction in payload: %v", e.Err)
	case PostCancunBlockWithoutBlobGasUsed:
		return "blob gas used not present in post-cancun payload"
	case PostCancunBlockWithoutExcessBlobGas:
		return "excess blob gas not present in post-cancun payload"
	case PostCancunWithoutCancunFields:
		return "cancun fields not present in post-cancun payload"
	case PreCancunBlockWithBlobTransactions:
		return "blob transactions present in pre-cancun payload"
	case PreCancunBlockWithBlobGasUsed:
		return "blob gas used present in pre-cancun payload"
	case PreCancunBlockWithExcessBlobGas:
		return "excess blob gas present in pre-cancun payload"
	case PreCancunWithCancunFields:
		return "cancun fields present in pre-cancun payload"
	case PreShanghaiBlockWithWithdrawals:
		return "withdrawals present in pre-shanghai payload"
	case PrePragueBlockWithEip7702Transactions:
		return "eip 7702 transactions present in pre-prague payload"
	case InvalidVersionedHashes:
		return "invalid blob versioned hashes"
	default:
		return e.Kind.String()
	}
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// Is matches another *PayloadError of the same kind, so errors.Is can be used with bare kinds.
func (e *PayloadError) Is(target error) bool {
	t, ok := target.(*PayloadError)
	return ok && t.Kind == e.Kind
}
