package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// AccountInfo is the basic state of an account together with its code.
type AccountInfo struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash common.Hash
	Code     []byte
}

// NewAccountInfo returns an empty account.
func NewAccountInfo() *AccountInfo {
	return &AccountInfo{Balance: new(uint256.Int), CodeHash: types.EmptyCodeHash}
}

// IsEmpty reports whether the account is empty in the EIP-161 sense.
func (a *AccountInfo) IsEmpty() bool {
	return a.Nonce == 0 && a.Balance.IsZero() && (a.CodeHash == types.EmptyCodeHash || a.CodeHash == common.Hash{})
}

// SetCode replaces the code and its hash.
func (a *AccountInfo) SetCode(code []byte) {
	a.Code = common.CopyBytes(code)
	if len(code) == 0 {
		a.CodeHash = types.EmptyCodeHash
		return
	}
	a.CodeHash = crypto.Keccak256Hash(code)
}

func (a *AccountInfo) Copy() *AccountInfo {
	if a == nil {
		return nil
	}
	balance := new(uint256.Int)
	if a.Balance != nil {
		balance.Set(a.Balance)
	}
	return &AccountInfo{
		Nonce:    a.Nonce,
		Balance:  balance,
		CodeHash: a.CodeHash,
		Code:     a.Code,
	}
}

// Equal compares the account fields, ignoring the loaded code bytes.
func (a *AccountInfo) Equal(b *AccountInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Nonce == b.Nonce && a.Balance.Eq(b.Balance) && a.CodeHash == b.CodeHash
}

// AccountDiff is the change a transaction made to one account.
type AccountDiff struct {
	// Info is the account after the transaction; nil when the account was deleted.
	Info *AccountInfo
	// Storage holds the slots written by the transaction.
	Storage map[common.Hash]*uint256.Int
	// Created is set when the account was (re)created and its previous storage dropped.
	Created bool
	// Touched marks accounts subject to EIP-161 empty-account clearing.
	Touched bool
}

// Diff is the state change of one transaction. It is applied with StateDB.Commit.
type Diff map[common.Address]*AccountDiff
