package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// StorageChange records the value of a slot before and after a block.
type StorageChange struct {
	Original *uint256.Int
	Present  *uint256.Int
}

// BundleAccount is the net change of one account since the last TakeBundle.
type BundleAccount struct {
	// Original is nil when the account did not exist.
	Original *AccountInfo
	// Info is nil when the account was deleted.
	Info           *AccountInfo
	Storage        map[common.Hash]*StorageChange
	StorageCleared bool
}

// Bundle is the set of accounts changed since the last TakeBundle.
type Bundle struct {
	Accounts map[common.Address]*BundleAccount
}

func (b *Bundle) Len() int { return len(b.Accounts) }

type cachedAccount struct {
	info           *AccountInfo
	storage        map[common.Hash]*uint256.Int
	storageCleared bool
}

// State is an in-memory overlay over a Database, implementing StateDB.
// Reads are cached in the overlay; writes never reach the Database.
// A State belongs to a single block execution and is not safe for concurrent use.
type State struct {
	db         Database
	accounts   map[common.Address]*cachedAccount
	bundle     map[common.Address]*BundleAccount
	stateClear bool
}

var _ StateDB = (*State)(nil)

func New(db Database) *State {
	return &State{
		db:       db,
		accounts: make(map[common.Address]*cachedAccount),
		bundle:   make(map[common.Address]*BundleAccount),
	}
}

func (s *State) load(addr common.Address) (*cachedAccount, error) {
	if acc, ok := s.accounts[addr]; ok {
		return acc, nil
	}
	info, err := s.db.Account(addr)
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", addr, err)
	}
	if info != nil && info.CodeHash != types.EmptyCodeHash && info.CodeHash != (common.Hash{}) {
		code, err := s.db.Code(info.CodeHash)
		if err != nil {
			return nil, fmt.Errorf("load code of %s: %w", addr, err)
		}
		info.Code = code
	}
	acc := &cachedAccount{info: info, storage: make(map[common.Hash]*uint256.Int)}
	s.accounts[addr] = acc
	return acc, nil
}

func (s *State) LoadAccount(addr common.Address) (*AccountInfo, error) {
	acc, err := s.load(addr)
	if err != nil {
		return nil, err
	}
	return acc.info.Copy(), nil
}

func (s *State) GetStorage(addr common.Address, slot common.Hash) (*uint256.Int, error) {
	acc, err := s.load(addr)
	if err != nil {
		return nil, err
	}
	if v, ok := acc.storage[slot]; ok {
		return v.Clone(), nil
	}
	if acc.info == nil || acc.storageCleared {
		return new(uint256.Int), nil
	}
	v, err := s.db.Storage(addr, slot)
	if err != nil {
		return nil, fmt.Errorf("load storage %s/%s: %w", addr, slot, err)
	}
	acc.storage[slot] = v.Clone()
	return v, nil
}

// record snapshots the account before its first change since the last TakeBundle.
func (s *State) record(addr common.Address, acc *cachedAccount) *BundleAccount {
	entry, ok := s.bundle[addr]
	if !ok {
		entry = &BundleAccount{Original: acc.info.Copy(), Storage: make(map[common.Hash]*StorageChange)}
		s.bundle[addr] = entry
	}
	return entry
}

func (s *State) recordSlot(addr common.Address, entry *BundleAccount, slot common.Hash) error {
	if _, ok := entry.Storage[slot]; ok {
		return nil
	}
	original, err := s.GetStorage(addr, slot)
	if err != nil {
		return err
	}
	entry.Storage[slot] = &StorageChange{Original: original}
	return nil
}

func (s *State) SetCode(addr common.Address, code []byte) error {
	acc, err := s.load(addr)
	if err != nil {
		return err
	}
	s.record(addr, acc)
	if acc.info == nil {
		acc.info = NewAccountInfo()
	}
	acc.info.SetCode(code)
	return nil
}

func (s *State) SetStorage(addr common.Address, slot common.Hash, value *uint256.Int) error {
	acc, err := s.load(addr)
	if err != nil {
		return err
	}
	entry := s.record(addr, acc)
	if err := s.recordSlot(addr, entry, slot); err != nil {
		return err
	}
	if acc.info == nil {
		acc.info = NewAccountInfo()
	}
	acc.storage[slot] = value.Clone()
	return nil
}

// SetStateClearFlag enables EIP-161 deletion of touched empty accounts on Commit.
func (s *State) SetStateClearFlag(enabled bool) {
	s.stateClear = enabled
}

// Commit applies the diff of one transaction to the overlay.
func (s *State) Commit(diff Diff) error {
	for addr, change := range diff {
		acc, err := s.load(addr)
		if err != nil {
			return err
		}
		entry := s.record(addr, acc)
		for slot := range change.Storage {
			if err := s.recordSlot(addr, entry, slot); err != nil {
				return err
			}
		}
		if change.Created {
			acc.storage = make(map[common.Hash]*uint256.Int)
			acc.storageCleared = true
			entry.StorageCleared = true
		}
		info := change.Info.Copy()
		if info != nil && change.Touched && s.stateClear && info.IsEmpty() {
			info = nil
		}
		acc.info = info
		if info == nil {
			acc.storage = make(map[common.Hash]*uint256.Int)
			acc.storageCleared = true
			continue
		}
		for slot, value := range change.Storage {
			acc.storage[slot] = value.Clone()
		}
	}
	return nil
}

// TakeBundle returns the accounts changed since the previous call and starts a new bundle.
// Accounts whose writes cancelled out are left out.
func (s *State) TakeBundle() *Bundle {
	out := &Bundle{Accounts: make(map[common.Address]*BundleAccount)}
	for addr, entry := range s.bundle {
		acc := s.accounts[addr]
		result := &BundleAccount{
			Original:       entry.Original,
			Info:           acc.info.Copy(),
			Storage:        make(map[common.Hash]*StorageChange),
			StorageCleared: entry.StorageCleared,
		}
		for slot, change := range entry.Storage {
			present := new(uint256.Int)
			if v, ok := acc.storage[slot]; ok {
				present = v.Clone()
			}
			if !entry.StorageCleared && present.Eq(change.Original) {
				continue
			}
			result.Storage[slot] = &StorageChange{Original: change.Original, Present: present}
		}
		if result.Info.Equal(result.Original) && len(result.Storage) == 0 && !result.StorageCleared {
			continue
		}
		out.Accounts[addr] = result
	}
	s.bundle = make(map[common.Address]*BundleAccount)
	return out
}
