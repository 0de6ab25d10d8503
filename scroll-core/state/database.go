package state

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var ErrNotIterable = errors.New("database cannot be iterated")

// StateDB is the mutable state view a block is executed against.
// Implementations only mutate an in-memory overlay; flushing is up to the caller.
type StateDB interface {
	// LoadAccount returns the account, or nil if it does not exist.
	LoadAccount(addr common.Address) (*AccountInfo, error)
	GetStorage(addr common.Address, slot common.Hash) (*uint256.Int, error)
	SetCode(addr common.Address, code []byte) error
	SetStorage(addr common.Address, slot common.Hash, value *uint256.Int) error
	Commit(diff Diff) error
	SetStateClearFlag(enabled bool)
}

// Database is the committed state below a StateDB overlay.
type Database interface {
	// Account returns the account without its code, or nil if it does not exist.
	Account(addr common.Address) (*AccountInfo, error)
	Storage(addr common.Address, slot common.Hash) (*uint256.Int, error)
	Code(codeHash common.Hash) ([]byte, error)
}

// IterableDatabase can enumerate its full contents, which is needed to compute a state root.
type IterableDatabase interface {
	Database
	Addresses() ([]common.Address, error)
	StorageSlots(addr common.Address) (map[common.Hash]*uint256.Int, error)
}

// MemoryDatabase is an in-memory Database. It is not safe for concurrent writes.
type MemoryDatabase struct {
	accounts map[common.Address]*AccountInfo
	storage  map[common.Address]map[common.Hash]*uint256.Int
	codes    map[common.Hash][]byte
}

var _ IterableDatabase = (*MemoryDatabase)(nil)

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		accounts: make(map[common.Address]*AccountInfo),
		storage:  make(map[common.Address]map[common.Hash]*uint256.Int),
		codes:    make(map[common.Hash][]byte),
	}
}

// InsertAccount stores info and its code, replacing any previous account.
func (db *MemoryDatabase) InsertAccount(addr common.Address, info *AccountInfo) {
	info = info.Copy()
	if len(info.Code) > 0 {
		info.CodeHash = crypto.Keccak256Hash(info.Code)
		db.codes[info.CodeHash] = common.CopyBytes(info.Code)
	}
	info.Code = nil
	db.accounts[addr] = info
}

// InsertStorage sets a storage slot. Zero values delete the slot.
func (db *MemoryDatabase) InsertStorage(addr common.Address, slot common.Hash, value *uint256.Int) {
	if value.IsZero() {
		delete(db.storage[addr], slot)
		return
	}
	slots, ok := db.storage[addr]
	if !ok {
		slots = make(map[common.Hash]*uint256.Int)
		db.storage[addr] = slots
	}
	slots[slot] = value.Clone()
}

func (db *MemoryDatabase) Account(addr common.Address) (*AccountInfo, error) {
	return db.accounts[addr].Copy(), nil
}

func (db *MemoryDatabase) Storage(addr common.Address, slot common.Hash) (*uint256.Int, error) {
	if v, ok := db.storage[addr][slot]; ok {
		return v.Clone(), nil
	}
	return new(uint256.Int), nil
}

func (db *MemoryDatabase) Code(codeHash common.Hash) ([]byte, error) {
	return db.codes[codeHash], nil
}

// Addresses returns the existing accounts in ascending order.
func (db *MemoryDatabase) Addresses() ([]common.Address, error) {
	out := make([]common.Address, 0, len(db.accounts))
	for addr := range db.accounts {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cmp(out[j]) < 0 })
	return out, nil
}

func (db *MemoryDatabase) StorageSlots(addr common.Address) (map[common.Hash]*uint256.Int, error) {
	out := make(map[common.Hash]*uint256.Int, len(db.storage[addr]))
	for k, v := range db.storage[addr] {
		out[k] = v.Clone()
	}
	return out, nil
}

// Apply flushes a bundle taken from a State.
func (db *MemoryDatabase) Apply(bundle *Bundle) {
	for addr, acc := range bundle.Accounts {
		if acc.Info == nil {
			delete(db.accounts, addr)
			delete(db.storage, addr)
			continue
		}
		if acc.StorageCleared {
			delete(db.storage, addr)
		}
		db.InsertAccount(addr, acc.Info)
		for slot, change := range acc.Storage {
			db.InsertStorage(addr, slot, change.Present)
		}
	}
}
