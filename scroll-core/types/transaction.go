package types

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// Transaction types.
const (
	LegacyTxType     = gethtypes.LegacyTxType
	AccessListTxType = gethtypes.AccessListTxType
	DynamicFeeTxType = gethtypes.DynamicFeeTxType
	BlobTxType       = gethtypes.BlobTxType
	SetCodeTxType    = gethtypes.SetCodeTxType
	L1MessageTxType  = 0x7e
)

var (
	ErrTxTypeNotSupported = errors.New("transaction type not supported")
)

// TxData is the underlying data of a transaction.
//
// The set of implementations is closed: LegacyTx, AccessListTx, DynamicFeeTx and L1MessageTx.
type TxData interface {
	txType() byte
	copy() TxData

	chainID() *big.Int
	accessList() gethtypes.AccessList
	data() []byte
	gas() uint64
	gasPrice() *big.Int
	gasTipCap() *big.Int
	gasFeeCap() *big.Int
	value() *big.Int
	nonce() uint64
	to() *common.Address
}

// Transaction is a Scroll L2 transaction.
type Transaction struct {
	inner TxData

	// eth is the go-ethereum form of signed variants, used for hashing, encoding and sender recovery.
	eth *gethtypes.Transaction

	hash atomic.Pointer[common.Hash]
	size atomic.Uint64
}

// NewTx creates a new transaction from a copy of inner.
func NewTx(inner TxData) *Transaction {
	tx := &Transaction{inner: inner.copy()}
	tx.eth = tx.toEth()
	return tx
}

func (tx *Transaction) toEth() *gethtypes.Transaction {
	switch inner := tx.inner.(type) {
	case *LegacyTx:
		return gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    inner.Nonce,
			GasPrice: inner.GasPrice,
			Gas:      inner.Gas,
			To:       inner.To,
			Value:    inner.Value,
			Data:     inner.Data,
			V:        inner.V,
			R:        inner.R,
			S:        inner.S,
		})
	case *AccessListTx:
		return gethtypes.NewTx(&gethtypes.AccessListTx{
			ChainID:    inner.ChainID,
			Nonce:      inner.Nonce,
			GasPrice:   inner.GasPrice,
			Gas:        inner.Gas,
			To:         inner.To,
			Value:      inner.Value,
			Data:       inner.Data,
			AccessList: inner.AccessList,
			V:          inner.V,
			R:          inner.R,
			S:          inner.S,
		})
	case *DynamicFeeTx:
		return gethtypes.NewTx(&gethtypes.DynamicFeeTx{
			ChainID:    inner.ChainID,
			Nonce:      inner.Nonce,
			GasTipCap:  inner.GasTipCap,
			GasFeeCap:  inner.GasFeeCap,
			Gas:        inner.Gas,
			To:         inner.To,
			Value:      inner.Value,
			Data:       inner.Data,
			AccessList: inner.AccessList,
			V:          inner.V,
			R:          inner.R,
			S:          inner.S,
		})
	default:
		return nil
	}
}

// FromEth converts a go-ethereum transaction. Blob and set-code transactions are not
// supported on Scroll and fail with ErrTxTypeNotSupported.
func FromEth(etx *gethtypes.Transaction) (*Transaction, error) {
	v, r, s := etx.RawSignatureValues()
	var inner TxData
	switch etx.Type() {
	case LegacyTxType:
		inner = &LegacyTx{
			Nonce:    etx.Nonce(),
			GasPrice: etx.GasPrice(),
			Gas:      etx.Gas(),
			To:       etx.To(),
			Value:    etx.Value(),
			Data:     etx.Data(),
			V:        v,
			R:        r,
			S:        s,
		}
	case AccessListTxType:
		inner = &AccessListTx{
			ChainID:    etx.ChainId(),
			Nonce:      etx.Nonce(),
			GasPrice:   etx.GasPrice(),
			Gas:        etx.Gas(),
			To:         etx.To(),
			Value:      etx.Value(),
			Data:       etx.Data(),
			AccessList: etx.AccessList(),
			V:          v,
			R:          r,
			S:          s,
		}
	case DynamicFeeTxType:
		inner = &DynamicFeeTx{
			ChainID:    etx.ChainId(),
			Nonce:      etx.Nonce(),
			GasTipCap:  etx.GasTipCap(),
			GasFeeCap:  etx.GasFeeCap(),
			Gas:        etx.Gas(),
			To:         etx.To(),
			Value:      etx.Value(),
			Data:       etx.Data(),
			AccessList: etx.AccessList(),
			V:          v,
			R:          r,
			S:          s,
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrTxTypeNotSupported, etx.Type())
	}
	return &Transaction{inner: inner, eth: etx}, nil
}

// Eth returns the go-ethereum form of the transaction, or nil for L1 messages.
func (tx *Transaction) Eth() *gethtypes.Transaction { return tx.eth }

// Type returns the transaction type.
func (tx *Transaction) Type() uint8 { return tx.inner.txType() }

// IsL1Message reports whether the transaction was bridged from L1.
func (tx *Transaction) IsL1Message() bool { return tx.Type() == L1MessageTxType }

// AsL1Message returns the L1 message data, or nil for any other type.
func (tx *Transaction) AsL1Message() *L1MessageTx {
	msg, _ := tx.inner.(*L1MessageTx)
	return msg
}

func (tx *Transaction) ChainId() *big.Int                { return tx.inner.chainID() }
func (tx *Transaction) Data() []byte                     { return common.CopyBytes(tx.inner.data()) }
func (tx *Transaction) AccessList() gethtypes.AccessList { return tx.inner.accessList() }
func (tx *Transaction) Gas() uint64                      { return tx.inner.gas() }
func (tx *Transaction) GasPrice() *big.Int               { return new(big.Int).Set(tx.inner.gasPrice()) }
func (tx *Transaction) GasTipCap() *big.Int              { return new(big.Int).Set(tx.inner.gasTipCap()) }
func (tx *Transaction) GasFeeCap() *big.Int              { return new(big.Int).Set(tx.inner.gasFeeCap()) }
func (tx *Transaction) Value() *big.Int                  { return new(big.Int).Set(tx.inner.value()) }
func (tx *Transaction) Nonce() uint64                    { return tx.inner.nonce() }

// To returns the recipient address, or nil for contract creations.
func (tx *Transaction) To() *common.Address {
	if to := tx.inner.to(); to != nil {
		cpy := *to
		return &cpy
	}
	return nil
}

// EffectiveGasPrice returns the price paid per unit of gas given the block base fee.
// L1 messages are free of execution fees.
func (tx *Transaction) EffectiveGasPrice(baseFee *big.Int) *big.Int {
	switch tx.Type() {
	case L1MessageTxType:
		return new(big.Int)
	case DynamicFeeTxType:
		if baseFee == nil {
			return tx.GasFeeCap()
		}
		price := new(big.Int).Add(tx.inner.gasTipCap(), baseFee)
		if price.Cmp(tx.inner.gasFeeCap()) > 0 {
			return tx.GasFeeCap()
		}
		return price
	default:
		return tx.GasPrice()
	}
}

// RawSignatureValues returns the signature values. L1 messages are unsigned and return nils.
func (tx *Transaction) RawSignatureValues() (v, r, s *big.Int) {
	if tx.eth == nil {
		return nil, nil, nil
	}
	return tx.eth.RawSignatureValues()
}

// Hash returns the keccak256 hash of the canonical encoding.
func (tx *Transaction) Hash() common.Hash {
	if hash := tx.hash.Load(); hash != nil {
		return *hash
	}
	var h common.Hash
	if tx.eth != nil {
		h = tx.eth.Hash()
	} else {
		h = tx.AsL1Message().hash()
	}
	tx.hash.Store(&h)
	return h
}

// Size returns the length of the canonical encoding.
func (tx *Transaction) Size() uint64 {
	if size := tx.size.Load(); size > 0 {
		return size
	}
	enc, _ := tx.MarshalBinary()
	size := uint64(len(enc))
	tx.size.Store(size)
	return size
}

// MarshalBinary returns the canonical EIP-2718 encoding: RLP for legacy transactions,
// type byte followed by the RLP payload otherwise.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	if tx.eth != nil {
		return tx.eth.MarshalBinary()
	}
	payload, err := rlp.EncodeToBytes(tx.inner)
	if err != nil {
		return nil, err
	}
	return append([]byte{L1MessageTxType}, payload...), nil
}

// UnmarshalBinary decodes the canonical encoding.
func (tx *Transaction) UnmarshalBinary(b []byte) error {
	if len(b) > 0 && b[0] == L1MessageTxType {
		var msg L1MessageTx
		if err := rlp.DecodeBytes(b[1:], &msg); err != nil {
			return err
		}
		*tx = Transaction{inner: &msg}
		return nil
	}
	var etx gethtypes.Transaction
	if err := etx.UnmarshalBinary(b); err != nil {
		return err
	}
	decoded, err := FromEth(&etx)
	if err != nil {
		return err
	}
	*tx = Transaction{inner: decoded.inner, eth: decoded.eth}
	return nil
}

// Transactions implements DerivableList for transaction root derivation.
type Transactions []*Transaction

func (s Transactions) Len() int { return len(s) }

func (s Transactions) EncodeIndex(i int, w *bytes.Buffer) {
	enc, _ := s[i].MarshalBinary()
	w.Write(enc)
}
