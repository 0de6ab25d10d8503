package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// txJSON is the JSON form of every transaction variant. Fields that do not apply to a
// variant are omitted.
type txJSON struct {
	Type string `json:"type,omitempty"`

	ChainID              *hexutil.Big          `json:"chainId,omitempty"`
	Nonce                *hexutil.Uint64       `json:"nonce,omitempty"`
	To                   *common.Address       `json:"to"`
	Gas                  *hexutil.Uint64       `json:"gas"`
	GasPrice             *hexutil.Big          `json:"gasPrice,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big          `json:"maxPriorityFeePerGas,omitempty"`
	MaxFeePerGas         *hexutil.Big          `json:"maxFeePerGas,omitempty"`
	Value                *hexutil.Big          `json:"value"`
	Input                *hexutil.Bytes        `json:"input"`
	AccessList           *gethtypes.AccessList `json:"accessList,omitempty"`
	V                    *hexutil.Big          `json:"v,omitempty"`
	R                    *hexutil.Big          `json:"r,omitempty"`
	S                    *hexutil.Big          `json:"s,omitempty"`

	QueueIndex *hexutil.Uint64 `json:"queueIndex,omitempty"`
	Sender     *common.Address `json:"sender,omitempty"`

	// only used for encoding
	Hash common.Hash `json:"hash"`
}

func typeTag(t byte) string {
	return fmt.Sprintf("0x%02x", t)
}

// parseTypeTag accepts "0x0", "0x00", "0x7E" and friends. An absent tag means legacy.
func parseTypeTag(tag string) (byte, error) {
	if tag == "" {
		return LegacyTxType, nil
	}
	digits, ok := strings.CutPrefix(strings.ToLower(tag), "0x")
	if !ok || digits == "" {
		return 0, fmt.Errorf("invalid transaction type tag %q", tag)
	}
	v, err := strconv.ParseUint(digits, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid transaction type tag %q: %w", tag, err)
	}
	return byte(v), nil
}

func hexBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return nil
	}
	return (*hexutil.Big)(new(big.Int).Set(v))
}

// MarshalJSON encodes the transaction with an explicit type tag.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	enc := txJSON{
		Type:  typeTag(tx.Type()),
		Hash:  tx.Hash(),
		To:    tx.To(),
		Value: hexBig(tx.inner.value()),
	}
	gas := hexutil.Uint64(tx.Gas())
	enc.Gas = &gas
	input := hexutil.Bytes(tx.Data())
	enc.Input = &input

	switch inner := tx.inner.(type) {
	case *L1MessageTx:
		queueIndex := hexutil.Uint64(inner.QueueIndex)
		enc.QueueIndex = &queueIndex
		sender := inner.Sender
		enc.Sender = &sender
		return json.Marshal(&enc)
	case *LegacyTx:
		enc.GasPrice = hexBig(inner.GasPrice)
		if id := inner.chainID(); id != nil {
			enc.ChainID = hexBig(id)
		}
	case *AccessListTx:
		enc.ChainID = hexBig(inner.ChainID)
		enc.GasPrice = hexBig(inner.GasPrice)
		enc.AccessList = &inner.AccessList
	case *DynamicFeeTx:
		enc.ChainID = hexBig(inner.ChainID)
		enc.MaxPriorityFeePerGas = hexBig(inner.GasTipCap)
		enc.MaxFeePerGas = hexBig(inner.GasFeeCap)
		enc.AccessList = &inner.AccessList
	}
	nonce := hexutil.Uint64(tx.Nonce())
	enc.Nonce = &nonce
	v, r, s := tx.RawSignatureValues()
	enc.V, enc.R, enc.S = hexBig(v), hexBig(r), hexBig(s)
	return json.Marshal(&enc)
}

func missing(field string) error {
	return fmt.Errorf("missing required field '%s' in transaction", field)
}

// UnmarshalJSON decodes a tagged transaction. Untagged input decodes as a legacy transaction.
func (tx *Transaction) UnmarshalJSON(input []byte) error {
	var dec txJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	typ, err := parseTypeTag(dec.Type)
	if err != nil {
		return err
	}
	if dec.Gas == nil {
		return missing("gas")
	}
	if dec.Value == nil {
		return missing("value")
	}
	if dec.Input == nil {
		return missing("input")
	}

	var inner TxData
	switch typ {
	case L1MessageTxType:
		if dec.QueueIndex == nil {
			return missing("queueIndex")
		}
		if dec.Sender == nil {
			return missing("sender")
		}
		inner = &L1MessageTx{
			QueueIndex: uint64(*dec.QueueIndex),
			Gas:        uint64(*dec.Gas),
			To:         dec.To,
			Value:      (*big.Int)(dec.Value),
			Data:       *dec.Input,
			Sender:     *dec.Sender,
		}
		*tx = Transaction{inner: inner.copy()}
		return nil
	case LegacyTxType, AccessListTxType, DynamicFeeTxType:
	case BlobTxType, SetCodeTxType:
		return fmt.Errorf("%w: %d", ErrTxTypeNotSupported, typ)
	default:
		return fmt.Errorf("%w: unknown type %d", ErrTxTypeNotSupported, typ)
	}

	if dec.Nonce == nil {
		return missing("nonce")
	}
	if dec.V == nil || dec.R == nil || dec.S == nil {
		return missing("v, r, s")
	}
	switch typ {
	case LegacyTxType:
		if dec.GasPrice == nil {
			return missing("gasPrice")
		}
		inner = &LegacyTx{
			Nonce:    uint64(*dec.Nonce),
			GasPrice: (*big.Int)(dec.GasPrice),
			Gas:      uint64(*dec.Gas),
			To:       dec.To,
			Value:    (*big.Int)(dec.Value),
			Data:     *dec.Input,
			V:        (*big.Int)(dec.V),
			R:        (*big.Int)(dec.R),
			S:        (*big.Int)(dec.S),
		}
	case AccessListTxType:
		if dec.ChainID == nil {
			return missing("chainId")
		}
		if dec.GasPrice == nil {
			return missing("gasPrice")
		}
		inner = &AccessListTx{
			ChainID:    (*big.Int)(dec.ChainID),
			Nonce:      uint64(*dec.Nonce),
			GasPrice:   (*big.Int)(dec.GasPrice),
			Gas:        uint64(*dec.Gas),
			To:         dec.To,
			Value:      (*big.Int)(dec.Value),
			Data:       *dec.Input,
			AccessList: accessListOrNil(dec.AccessList),
			V:          (*big.Int)(dec.V),
			R:          (*big.Int)(dec.R),
			S:          (*big.Int)(dec.S),
		}
	case DynamicFeeTxType:
		if dec.ChainID == nil {
			return missing("chainId")
		}
		if dec.MaxPriorityFeePerGas == nil || dec.MaxFeePerGas == nil {
			return errors.New("missing required fee fields 'maxPriorityFeePerGas', 'maxFeePerGas' in transaction")
		}
		inner = &DynamicFeeTx{
			ChainID:    (*big.Int)(dec.ChainID),
			Nonce:      uint64(*dec.Nonce),
			GasTipCap:  (*big.Int)(dec.MaxPriorityFeePerGas),
			GasFeeCap:  (*big.Int)(dec.MaxFeePerGas),
			Gas:        uint64(*dec.Gas),
			To:         dec.To,
			Value:      (*big.Int)(dec.Value),
			Data:       *dec.Input,
			AccessList: accessListOrNil(dec.AccessList),
			V:          (*big.Int)(dec.V),
			R:          (*big.Int)(dec.R),
			S:          (*big.Int)(dec.S),
		}
	}
	decoded := NewTx(inner)
	*tx = Transaction{inner: decoded.inner, eth: decoded.eth}
	return nil
}

func accessListOrNil(al *gethtypes.AccessList) gethtypes.AccessList {
	if al == nil {
		return nil
	}
	return *al
}
