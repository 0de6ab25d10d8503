package state

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/holiman/uint256"
)

type trieEntry struct {
	key   []byte
	value []byte
}

// hashEntries returns the root of a secure trie holding entries, whose keys are already hashed.
func hashEntries(entries []trieEntry) (common.Hash, error) {
	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].key, entries[j].key) < 0 })
	st := trie.NewStackTrie(nil)
	for _, e := range entries {
		if err := st.Update(e.key, e.value); err != nil {
			return common.Hash{}, err
		}
	}
	return st.Hash(), nil
}

// StorageRoot computes the storage trie root over slots. Zero values are absent from the trie.
func StorageRoot(slots map[common.Hash]*uint256.Int) (common.Hash, error) {
	entries := make([]trieEntry, 0, len(slots))
	for slot, value := range slots {
		if value.IsZero() {
			continue
		}
		enc, err := rlp.EncodeToBytes(value.Bytes())
		if err != nil {
			return common.Hash{}, err
		}
		entries = append(entries, trieEntry{key: crypto.Keccak256(slot[:]), value: enc})
	}
	if len(entries) == 0 {
		return types.EmptyRootHash, nil
	}
	return hashEntries(entries)
}

// StateRoot computes the Merkle-Patricia state root of the database with the overlay applied.
// The underlying database must be an IterableDatabase.
func (s *State) StateRoot() (common.Hash, error) {
	base, ok := s.db.(IterableDatabase)
	if !ok {
		return common.Hash{}, ErrNotIterable
	}
	addrs, err := base.Addresses()
	if err != nil {
		return common.Hash{}, err
	}
	seen := make(map[common.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		seen[addr] = struct{}{}
	}
	for addr := range s.accounts {
		if _, ok := seen[addr]; !ok {
			addrs = append(addrs, addr)
			seen[addr] = struct{}{}
		}
	}

	entries := make([]trieEntry, 0, len(addrs))
	for _, addr := range addrs {
		acc, err := s.load(addr)
		if err != nil {
			return common.Hash{}, err
		}
		if acc.info == nil {
			continue
		}
		slots := make(map[common.Hash]*uint256.Int)
		if !acc.storageCleared {
			if slots, err = base.StorageSlots(addr); err != nil {
				return common.Hash{}, err
			}
		}
		for slot, value := range acc.storage {
			slots[slot] = value
		}
		root, err := StorageRoot(slots)
		if err != nil {
			return common.Hash{}, fmt.Errorf("storage root of %s: %w", addr, err)
		}
		enc, err := rlp.EncodeToBytes(&types.StateAccount{
			Nonce:    acc.info.Nonce,
			Balance:  acc.info.Balance,
			Root:     root,
			CodeHash: acc.info.CodeHash.Bytes(),
		})
		if err != nil {
			return common.Hash{}, err
		}
		entries = append(entries, trieEntry{key: crypto.Keccak256(addr[:]), value: enc})
	}
	if len(entries) == 0 {
		return types.EmptyRootHash, nil
	}
	return hashEntries(entries)
}
