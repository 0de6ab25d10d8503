package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/state"
)

type snapshot int

type journalAccount struct {
	// info is nil while the account does not exist
	info       *state.AccountInfo
	storage    map[common.Hash]*uint256.Int
	created    bool
	destructed bool
	dirty      bool
}

// journal buffers the writes of one transaction on top of a read-only StateDB view.
// Every write registers an undo function so frames can be rolled back.
type journal struct {
	db       state.StateDB
	accounts map[common.Address]*journalAccount
	logs     []*gethtypes.Log
	undo     []func()

	refund    uint64
	transient map[common.Address]map[common.Hash]common.Hash
	warmAddrs map[common.Address]struct{}
	warmSlots map[common.Address]map[common.Hash]struct{}

	// err is the first database error; reads after it return zero values.
	err error
}

var _ RunContext = (*journal)(nil)

// StateDB exposes the journal to the go-ethereum interpreter.
func (j *journal) StateDB() gethvm.StateDB {
	return &evmState{j: j}
}

func newJournal(db state.StateDB) *journal {
	return &journal{
		db:        db,
		accounts:  make(map[common.Address]*journalAccount),
		transient: make(map[common.Address]map[common.Hash]common.Hash),
		warmAddrs: make(map[common.Address]struct{}),
		warmSlots: make(map[common.Address]map[common.Hash]struct{}),
	}
}

func (j *journal) setErr(err error) {
	if j.err == nil {
		j.err = err
	}
}

func (j *journal) account(addr common.Address) *journalAccount {
	if acc, ok := j.accounts[addr]; ok {
		return acc
	}
	info, err := j.db.LoadAccount(addr)
	if err != nil {
		j.setErr(err)
	}
	acc := &journalAccount{info: info, storage: make(map[common.Hash]*uint256.Int)}
	j.accounts[addr] = acc
	return acc
}

// mutate returns the account for writing, creating it if needed. The whole previous
// account info is restored on undo.
func (j *journal) mutate(addr common.Address) *journalAccount {
	acc := j.account(addr)
	prevInfo, prevDirty := acc.info.Copy(), acc.dirty
	j.undo = append(j.undo, func() {
		acc.info = prevInfo
		acc.dirty = prevDirty
	})
	if acc.info == nil {
		acc.info = state.NewAccountInfo()
	}
	acc.dirty = true
	return acc
}

func (j *journal) snapshot() snapshot {
	return snapshot(len(j.undo))
}

func (j *journal) revertTo(s snapshot) {
	for len(j.undo) > int(s) {
		j.undo[len(j.undo)-1]()
		j.undo = j.undo[:len(j.undo)-1]
	}
}

func (j *journal) exists(addr common.Address) bool {
	return j.account(addr).info != nil
}

func (j *journal) GetBalance(addr common.Address) *uint256.Int {
	if info := j.account(addr).info; info != nil {
		return info.Balance.Clone()
	}
	return new(uint256.Int)
}

func (j *journal) GetNonce(addr common.Address) uint64 {
	if info := j.account(addr).info; info != nil {
		return info.Nonce
	}
	return 0
}

func (j *journal) GetCode(addr common.Address) []byte {
	if info := j.account(addr).info; info != nil {
		return info.Code
	}
	return nil
}

func (j *journal) GetCodeHash(addr common.Address) common.Hash {
	if info := j.account(addr).info; info != nil {
		return info.CodeHash
	}
	return common.Hash{}
}

func (j *journal) GetStorage(addr common.Address, slot common.Hash) *uint256.Int {
	acc := j.account(addr)
	if v, ok := acc.storage[slot]; ok {
		return v.Clone()
	}
	if acc.created || acc.info == nil {
		return new(uint256.Int)
	}
	v, err := j.db.GetStorage(addr, slot)
	if err != nil {
		j.setErr(err)
		return new(uint256.Int)
	}
	return v
}

// committedStorage returns the slot value as it was when the transaction started.
func (j *journal) committedStorage(addr common.Address, slot common.Hash) *uint256.Int {
	acc := j.account(addr)
	if acc.created || acc.info == nil {
		return new(uint256.Int)
	}
	v, err := j.db.GetStorage(addr, slot)
	if err != nil {
		j.setErr(err)
		return new(uint256.Int)
	}
	return v
}

func (j *journal) SetStorage(addr common.Address, slot common.Hash, value *uint256.Int) {
	acc := j.mutate(addr)
	prev, had := acc.storage[slot]
	j.undo = append(j.undo, func() {
		if had {
			acc.storage[slot] = prev
		} else {
			delete(acc.storage, slot)
		}
	})
	acc.storage[slot] = value.Clone()
}

func (j *journal) AddLog(log *gethtypes.Log) {
	n := len(j.logs)
	j.undo = append(j.undo, func() { j.logs = j.logs[:n] })
	j.logs = append(j.logs, log)
}

func (j *journal) setBalance(addr common.Address, balance *uint256.Int) {
	j.mutate(addr).info.Balance = balance.Clone()
}

func (j *journal) addBalance(addr common.Address, amount *uint256.Int) {
	balance := j.GetBalance(addr)
	j.setBalance(addr, balance.Add(balance, amount))
}

func (j *journal) subBalance(addr common.Address, amount *uint256.Int) {
	balance := j.GetBalance(addr)
	j.setBalance(addr, balance.Sub(balance, amount))
}

func (j *journal) setNonce(addr common.Address, nonce uint64) {
	j.mutate(addr).info.Nonce = nonce
}

func (j *journal) setCode(addr common.Address, code []byte) {
	j.mutate(addr).info.SetCode(code)
}

// touch marks addr as part of the transaction without changing it.
func (j *journal) touch(addr common.Address) {
	j.mutate(addr)
}

// create resets addr to a fresh account with no storage.
func (j *journal) create(addr common.Address) {
	acc := j.mutate(addr)
	prevStorage, prevCreated := acc.storage, acc.created
	j.undo = append(j.undo, func() {
		acc.storage = prevStorage
		acc.created = prevCreated
	})
	balance := acc.info.Balance
	acc.info = state.NewAccountInfo()
	acc.info.Balance = balance
	acc.storage = make(map[common.Hash]*uint256.Int)
	acc.created = true
}

// selfDestruct empties addr and deletes it when the transaction ends.
func (j *journal) selfDestruct(addr common.Address) {
	acc := j.mutate(addr)
	prev := acc.destructed
	j.undo = append(j.undo, func() { acc.destructed = prev })
	acc.info.Balance = new(uint256.Int)
	acc.destructed = true
}

func (j *journal) addRefund(gas uint64) {
	prev := j.refund
	j.undo = append(j.undo, func() { j.refund = prev })
	j.refund += gas
}

func (j *journal) subRefund(gas uint64) {
	if gas > j.refund {
		j.setErr(fmt.Errorf("refund counter below zero (gas: %d > refund: %d)", gas, j.refund))
		return
	}
	prev := j.refund
	j.undo = append(j.undo, func() { j.refund = prev })
	j.refund -= gas
}

func (j *journal) transientState(addr common.Address, key common.Hash) common.Hash {
	return j.transient[addr][key]
}

func (j *journal) setTransientState(addr common.Address, key, value common.Hash) {
	prev := j.transientState(addr, key)
	if prev == value {
		return
	}
	j.undo = append(j.undo, func() { j.putTransient(addr, key, prev) })
	j.putTransient(addr, key, value)
}

func (j *journal) putTransient(addr common.Address, key, value common.Hash) {
	slots, ok := j.transient[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		j.transient[addr] = slots
	}
	slots[key] = value
}

func (j *journal) addressWarm(addr common.Address) bool {
	_, ok := j.warmAddrs[addr]
	return ok
}

func (j *journal) slotWarm(addr common.Address, slot common.Hash) (bool, bool) {
	_, slotOk := j.warmSlots[addr][slot]
	return j.addressWarm(addr), slotOk
}

func (j *journal) warmAddress(addr common.Address) {
	if j.addressWarm(addr) {
		return
	}
	j.undo = append(j.undo, func() { delete(j.warmAddrs, addr) })
	j.warmAddrs[addr] = struct{}{}
}

func (j *journal) warmSlot(addr common.Address, slot common.Hash) {
	j.warmAddress(addr)
	slots, ok := j.warmSlots[addr]
	if !ok {
		slots = make(map[common.Hash]struct{})
		j.warmSlots[addr] = slots
	}
	if _, ok := slots[slot]; ok {
		return
	}
	j.undo = append(j.undo, func() { delete(slots, slot) })
	slots[slot] = struct{}{}
}

// diff returns the net change of the transaction.
func (j *journal) diff() state.Diff {
	out := make(state.Diff)
	for addr, acc := range j.accounts {
		if !acc.dirty {
			continue
		}
		if acc.destructed {
			out[addr] = &state.AccountDiff{Created: true, Touched: true}
			continue
		}
		storage := make(map[common.Hash]*uint256.Int, len(acc.storage))
		for slot, v := range acc.storage {
			storage[slot] = v.Clone()
		}
		out[addr] = &state.AccountDiff{
			Info:    acc.info.Copy(),
			Storage: storage,
			Created: acc.created,
			Touched: true,
		}
	}
	return out
}
