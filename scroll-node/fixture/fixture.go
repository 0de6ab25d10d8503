package fixture

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/state"
	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-node/executor"
)

// Account is the pre-state of one account.
type Account struct {
	Balance *hexutil.U256               `json:"balance,omitempty"`
	Nonce   hexutil.Uint64              `json:"nonce,omitempty"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// Block is a block to execute on top of the fixture pre-state.
type Block struct {
	ParentHash   common.Hash          `json:"parentHash"`
	Number       hexutil.Uint64       `json:"number"`
	Timestamp    hexutil.Uint64       `json:"timestamp"`
	GasLimit     hexutil.Uint64       `json:"gasLimit"`
	Coinbase     common.Address       `json:"coinbase"`
	BaseFee      *hexutil.U256        `json:"baseFeePerGas,omitempty"`
	PrevRandao   common.Hash          `json:"prevRandao"`
	Difficulty   *hexutil.Big         `json:"difficulty,omitempty"`
	Transactions []*types.Transaction `json:"transactions"`
}

// Fixture is a pre-state and a list of blocks. Every block is executed against the pre-state
// independently of the others.
type Fixture struct {
	Alloc  map[common.Address]Account `json:"alloc"`
	Blocks []Block                    `json:"blocks"`
}

func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode fixture %s: %w", path, err)
	}
	if len(f.Blocks) == 0 {
		return nil, fmt.Errorf("fixture %s has no blocks", path)
	}
	return &f, nil
}

// Database returns the pre-state as an in-memory database.
func (f *Fixture) Database() *state.MemoryDatabase {
	db := state.NewMemoryDatabase()
	for addr, acc := range f.Alloc {
		info := state.NewAccountInfo()
		info.Nonce = uint64(acc.Nonce)
		if acc.Balance != nil {
			info.Balance = (*uint256.Int)(acc.Balance).Clone()
		}
		info.SetCode(acc.Code)
		db.InsertAccount(addr, info)
		for slot, value := range acc.Storage {
			db.InsertStorage(addr, slot, new(uint256.Int).SetBytes32(value[:]))
		}
	}
	return db
}

func (b *Block) Context() executor.ExecutionContext {
	ctx := executor.ExecutionContext{
		ParentHash:  b.ParentHash,
		Number:      uint64(b.Number),
		Time:        uint64(b.Timestamp),
		GasLimit:    uint64(b.GasLimit),
		Beneficiary: b.Coinbase,
		PrevRandao:  b.PrevRandao,
	}
	if b.BaseFee != nil {
		ctx.BaseFee = (*uint256.Int)(b.BaseFee).Clone()
	}
	return ctx
}

func (b *Block) difficulty() *big.Int {
	if b.Difficulty == nil {
		return nil
	}
	return b.Difficulty.ToInt()
}
