package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"
)

// Body holds the block transactions. Scroll blocks have no ommers and no withdrawals.
type Body struct {
	Transactions []*Transaction
}

// Block is a Scroll L2 block.
type Block struct {
	Header *gethtypes.Header
	Body   Body
}

func NewBlock(header *gethtypes.Header, txs []*Transaction) *Block {
	return &Block{Header: gethtypes.CopyHeader(header), Body: Body{Transactions: txs}}
}

func (b *Block) Hash() common.Hash            { return b.Header.Hash() }
func (b *Block) Number() *big.Int             { return new(big.Int).Set(b.Header.Number) }
func (b *Block) NumberU64() uint64            { return b.Header.Number.Uint64() }
func (b *Block) Time() uint64                 { return b.Header.Time }
func (b *Block) GasLimit() uint64             { return b.Header.GasLimit }
func (b *Block) Transactions() []*Transaction { return b.Body.Transactions }

// WithDifficulty returns a copy of the block whose header carries difficulty.
func (b *Block) WithDifficulty(difficulty *big.Int) *Block {
	header := gethtypes.CopyHeader(b.Header)
	header.Difficulty = new(big.Int).Set(difficulty)
	return &Block{Header: header, Body: b.Body}
}

// EncodedTransactions returns the canonical encodings of the block transactions.
func (b *Block) EncodedTransactions() ([][]byte, error) {
	out := make([][]byte, len(b.Body.Transactions))
	for i, tx := range b.Body.Transactions {
		enc, err := tx.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

// DeriveTxRoot returns the transactions trie root.
func DeriveTxRoot(txs []*Transaction) common.Hash {
	return gethtypes.DeriveSha(Transactions(txs), trie.NewStackTrie(nil))
}

// DeriveReceiptsRoot returns the receipts trie root.
func DeriveReceiptsRoot(receipts []*Receipt) common.Hash {
	return gethtypes.DeriveSha(Receipts(receipts), trie.NewStackTrie(nil))
}
