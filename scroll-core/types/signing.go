package types

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// LatestSigner returns the signer accepting every signed transaction type of a Scroll chain.
func LatestSigner(chainID *big.Int) gethtypes.Signer {
	return gethtypes.LatestSignerForChainID(chainID)
}

// Sender returns the address that authorized tx. L1 messages report their bridged sender.
func Sender(signer gethtypes.Signer, tx *Transaction) (common.Address, error) {
	if msg := tx.AsL1Message(); msg != nil {
		return msg.Sender, nil
	}
	return gethtypes.Sender(signer, tx.eth)
}

// SignTx signs a copy of inner with key.
func SignTx(inner TxData, signer gethtypes.Signer, key *ecdsa.PrivateKey) (*Transaction, error) {
	tx := NewTx(inner)
	if tx.eth == nil {
		return tx, nil
	}
	signed, err := gethtypes.SignTx(tx.eth, signer, key)
	if err != nil {
		return nil, err
	}
	return FromEth(signed)
}

// MustSignNewTx is SignTx for tests and tooling; it panics on failure.
func MustSignNewTx(key *ecdsa.PrivateKey, signer gethtypes.Signer, inner TxData) *Transaction {
	tx, err := SignTx(inner, signer, key)
	if err != nil {
		panic(err)
	}
	return tx
}
