package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// LegacyTx is a pre-EIP-2718 transaction. The chain id, if any, is encoded in V (EIP-155).
type LegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
	V, R, S  *big.Int
}

// AccessListTx is an EIP-2930 transaction. Accepted from Curie on.
type AccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList gethtypes.AccessList
	V, R, S    *big.Int
}

// DynamicFeeTx is an EIP-1559 transaction. Accepted from Curie on.
type DynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList gethtypes.AccessList
	V, R, S    *big.Int
}

// L1MessageTx is a message relayed from L1 through the message queue. It carries no
// signature; the sender was authenticated by the L1 bridge.
type L1MessageTx struct {
	QueueIndex uint64
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	Sender     common.Address
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

func copyAddress(a *common.Address) *common.Address {
	if a == nil {
		return nil
	}
	cpy := *a
	return &cpy
}

func copyAccessList(al gethtypes.AccessList) gethtypes.AccessList {
	if al == nil {
		return nil
	}
	cpy := make(gethtypes.AccessList, len(al))
	for i, tuple := range al {
		cpy[i] = gethtypes.AccessTuple{
			Address:     tuple.Address,
			StorageKeys: append([]common.Hash(nil), tuple.StorageKeys...),
		}
	}
	return cpy
}

func (tx *LegacyTx) copy() TxData {
	return &LegacyTx{
		Nonce:    tx.Nonce,
		GasPrice: bigOrZero(tx.GasPrice),
		Gas:      tx.Gas,
		To:       copyAddress(tx.To),
		Value:    bigOrZero(tx.Value),
		Data:     common.CopyBytes(tx.Data),
		V:        bigOrZero(tx.V),
		R:        bigOrZero(tx.R),
		S:        bigOrZero(tx.S),
	}
}

func (tx *LegacyTx) txType() byte                     { return LegacyTxType }
func (tx *LegacyTx) accessList() gethtypes.AccessList { return nil }
func (tx *LegacyTx) data() []byte                     { return tx.Data }
func (tx *LegacyTx) gas() uint64                      { return tx.Gas }
func (tx *LegacyTx) gasPrice() *big.Int               { return tx.GasPrice }
func (tx *LegacyTx) gasTipCap() *big.Int              { return tx.GasPrice }
func (tx *LegacyTx) gasFeeCap() *big.Int              { return tx.GasPrice }
func (tx *LegacyTx) value() *big.Int                  { return tx.Value }
func (tx *LegacyTx) nonce() uint64                    { return tx.Nonce }
func (tx *LegacyTx) to() *common.Address              { return tx.To }

// chainID derives the chain id from an EIP-155 V value; unprotected transactions return nil.
func (tx *LegacyTx) chainID() *big.Int {
	if tx.V == nil || !tx.V.IsUint64() {
		return nil
	}
	if v := tx.V.Uint64(); v == 0 || v == 27 || v == 28 {
		return nil
	}
	id := new(big.Int).Sub(tx.V, big.NewInt(35))
	return id.Rsh(id, 1)
}

func (tx *AccessListTx) copy() TxData {
	return &AccessListTx{
		ChainID:    bigOrZero(tx.ChainID),
		Nonce:      tx.Nonce,
		GasPrice:   bigOrZero(tx.GasPrice),
		Gas:        tx.Gas,
		To:         copyAddress(tx.To),
		Value:      bigOrZero(tx.Value),
		Data:       common.CopyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          bigOrZero(tx.V),
		R:          bigOrZero(tx.R),
		S:          bigOrZero(tx.S),
	}
}

func (tx *AccessListTx) txType() byte                     { return AccessListTxType }
func (tx *AccessListTx) chainID() *big.Int                { return tx.ChainID }
func (tx *AccessListTx) accessList() gethtypes.AccessList { return tx.AccessList }
func (tx *AccessListTx) data() []byte                     { return tx.Data }
func (tx *AccessListTx) gas() uint64                      { return tx.Gas }
func (tx *AccessListTx) gasPrice() *big.Int               { return tx.GasPrice }
func (tx *AccessListTx) gasTipCap() *big.Int              { return tx.GasPrice }
func (tx *AccessListTx) gasFeeCap() *big.Int              { return tx.GasPrice }
func (tx *AccessListTx) value() *big.Int                  { return tx.Value }
func (tx *AccessListTx) nonce() uint64                    { return tx.Nonce }
func (tx *AccessListTx) to() *common.Address              { return tx.To }

func (tx *DynamicFeeTx) copy() TxData {
	return &DynamicFeeTx{
		ChainID:    bigOrZero(tx.ChainID),
		Nonce:      tx.Nonce,
		GasTipCap:  bigOrZero(tx.GasTipCap),
		GasFeeCap:  bigOrZero(tx.GasFeeCap),
		Gas:        tx.Gas,
		To:         copyAddress(tx.To),
		Value:      bigOrZero(tx.Value),
		Data:       common.CopyBytes(tx.Data),
		AccessList: copyAccessList(tx.AccessList),
		V:          bigOrZero(tx.V),
		R:          bigOrZero(tx.R),
		S:          bigOrZero(tx.S),
	}
}

func (tx *DynamicFeeTx) txType() byte                     { return DynamicFeeTxType }
func (tx *DynamicFeeTx) chainID() *big.Int                { return tx.ChainID }
func (tx *DynamicFeeTx) accessList() gethtypes.AccessList { return tx.AccessList }
func (tx *DynamicFeeTx) data() []byte                     { return tx.Data }
func (tx *DynamicFeeTx) gas() uint64                      { return tx.Gas }
func (tx *DynamicFeeTx) gasPrice() *big.Int               { return tx.GasFeeCap }
func (tx *DynamicFeeTx) gasTipCap() *big.Int              { return tx.GasTipCap }
func (tx *DynamicFeeTx) gasFeeCap() *big.Int              { return tx.GasFeeCap }
func (tx *DynamicFeeTx) value() *big.Int                  { return tx.Value }
func (tx *DynamicFeeTx) nonce() uint64                    { return tx.Nonce }
func (tx *DynamicFeeTx) to() *common.Address              { return tx.To }

func (tx *L1MessageTx) copy() TxData {
	return &L1MessageTx{
		QueueIndex: tx.QueueIndex,
		Gas:        tx.Gas,
		To:         copyAddress(tx.To),
		Value:      bigOrZero(tx.Value),
		Data:       common.CopyBytes(tx.Data),
		Sender:     tx.Sender,
	}
}

var zero = new(big.Int)

func (tx *L1MessageTx) txType() byte                     { return L1MessageTxType }
func (tx *L1MessageTx) chainID() *big.Int                { return nil }
func (tx *L1MessageTx) accessList() gethtypes.AccessList { return nil }
func (tx *L1MessageTx) data() []byte                     { return tx.Data }
func (tx *L1MessageTx) gas() uint64                      { return tx.Gas }
func (tx *L1MessageTx) gasPrice() *big.Int               { return zero }
func (tx *L1MessageTx) gasTipCap() *big.Int              { return zero }
func (tx *L1MessageTx) gasFeeCap() *big.Int              { return zero }
func (tx *L1MessageTx) value() *big.Int                  { return tx.Value }
func (tx *L1MessageTx) to() *common.Address              { return tx.To }

// nonce is the queue index; L1 messages do not consume the sender nonce.
func (tx *L1MessageTx) nonce() uint64 { return tx.QueueIndex }

func (tx *L1MessageTx) hash() common.Hash {
	payload, _ := rlp.EncodeToBytes(tx)
	return crypto.Keccak256Hash([]byte{L1MessageTxType}, payload)
}
