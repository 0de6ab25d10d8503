package vm

import (
	"github.com/ethereum/go-ethereum/common"
	gethstate "github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/stateless"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/trie/utils"
	"github.com/holiman/uint256"
)

// evmState is the go-ethereum view of a transaction journal. Every write lands in the journal,
// so snapshots taken by nested frames unwind through the same undo log as the top level frame.
type evmState struct {
	j *journal
}

var _ gethvm.StateDB = (*evmState)(nil)

func (s *evmState) CreateAccount(addr common.Address) {
	s.j.touch(addr)
}

func (s *evmState) CreateContract(addr common.Address) {
	s.j.create(addr)
}

func (s *evmState) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	prev := s.j.GetBalance(addr)
	if amount.IsZero() {
		return *prev
	}
	s.j.subBalance(addr, amount)
	return *prev
}

func (s *evmState) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) uint256.Int {
	prev := s.j.GetBalance(addr)
	s.j.addBalance(addr, amount)
	return *prev
}

func (s *evmState) GetBalance(addr common.Address) *uint256.Int {
	return s.j.GetBalance(addr)
}

func (s *evmState) GetNonce(addr common.Address) uint64 {
	return s.j.GetNonce(addr)
}

func (s *evmState) SetNonce(addr common.Address, nonce uint64, _ tracing.NonceChangeReason) {
	s.j.setNonce(addr, nonce)
}

func (s *evmState) GetCodeHash(addr common.Address) common.Hash {
	return s.j.GetCodeHash(addr)
}

func (s *evmState) GetCode(addr common.Address) []byte {
	return s.j.GetCode(addr)
}

func (s *evmState) SetCode(addr common.Address, code []byte, _ tracing.CodeChangeReason) []byte {
	prev := s.j.GetCode(addr)
	s.j.setCode(addr, code)
	return prev
}

func (s *evmState) GetCodeSize(addr common.Address) int {
	return len(s.j.GetCode(addr))
}

func (s *evmState) AddRefund(gas uint64) { s.j.addRefund(gas) }
func (s *evmState) SubRefund(gas uint64) { s.j.subRefund(gas) }
func (s *evmState) GetRefund() uint64    { return s.j.refund }

func (s *evmState) GetStateAndCommittedState(addr common.Address, key common.Hash) (common.Hash, common.Hash) {
	return s.GetState(addr, key), s.j.committedStorage(addr, key).Bytes32()
}

func (s *evmState) GetState(addr common.Address, key common.Hash) common.Hash {
	return s.j.GetStorage(addr, key).Bytes32()
}

func (s *evmState) SetState(addr common.Address, key, value common.Hash) common.Hash {
	prev := s.GetState(addr, key)
	if prev != value {
		s.j.SetStorage(addr, key, new(uint256.Int).SetBytes32(value[:]))
	}
	return prev
}

// GetStorageRoot only feeds the EIP-7610 collision check. Storage roots are computed once
// per block, so accounts are reported with an empty storage trie.
func (s *evmState) GetStorageRoot(common.Address) common.Hash {
	return gethtypes.EmptyRootHash
}

func (s *evmState) GetTransientState(addr common.Address, key common.Hash) common.Hash {
	return s.j.transientState(addr, key)
}

func (s *evmState) SetTransientState(addr common.Address, key, value common.Hash) {
	s.j.setTransientState(addr, key, value)
}

func (s *evmState) SelfDestruct(addr common.Address) uint256.Int {
	prev := s.j.GetBalance(addr)
	if s.j.exists(addr) {
		s.j.selfDestruct(addr)
	}
	return *prev
}

func (s *evmState) HasSelfDestructed(addr common.Address) bool {
	return s.j.account(addr).destructed
}

// SelfDestruct6780 only deletes accounts created by the running transaction.
func (s *evmState) SelfDestruct6780(addr common.Address) (uint256.Int, bool) {
	if !s.j.account(addr).created {
		return *s.j.GetBalance(addr), false
	}
	return s.SelfDestruct(addr), true
}

func (s *evmState) Exist(addr common.Address) bool {
	return s.j.exists(addr)
}

func (s *evmState) Empty(addr common.Address) bool {
	info := s.j.account(addr).info
	return info == nil || info.IsEmpty()
}

func (s *evmState) AddressInAccessList(addr common.Address) bool {
	return s.j.addressWarm(addr)
}

func (s *evmState) SlotInAccessList(addr common.Address, slot common.Hash) (bool, bool) {
	return s.j.slotWarm(addr, slot)
}

func (s *evmState) AddAddressToAccessList(addr common.Address) {
	s.j.warmAddress(addr)
}

func (s *evmState) AddSlotToAccessList(addr common.Address, slot common.Hash) {
	s.j.warmSlot(addr, slot)
}

func (s *evmState) PointCache() *utils.PointCache { return nil }

// Prepare warms the accounts and slots of EIP-2929 and EIP-3651 and clears the transient storage.
func (s *evmState) Prepare(rules params.Rules, sender, coinbase common.Address, dest *common.Address, precompiles []common.Address, txAccesses gethtypes.AccessList) {
	clear(s.j.transient)
	if !rules.IsBerlin {
		return
	}
	clear(s.j.warmAddrs)
	clear(s.j.warmSlots)

	s.j.warmAddress(sender)
	if dest != nil {
		s.j.warmAddress(*dest)
	}
	for _, addr := range precompiles {
		s.j.warmAddress(addr)
	}
	for _, el := range txAccesses {
		s.j.warmAddress(el.Address)
		for _, key := range el.StorageKeys {
			s.j.warmSlot(el.Address, key)
		}
	}
	if rules.IsShanghai {
		s.j.warmAddress(coinbase)
	}
}

func (s *evmState) RevertToSnapshot(id int) {
	s.j.revertTo(snapshot(id))
}

func (s *evmState) Snapshot() int {
	return int(s.j.snapshot())
}

func (s *evmState) AddLog(log *gethtypes.Log) {
	s.j.AddLog(log)
}

func (s *evmState) AddPreimage(common.Hash, []byte) {}

func (s *evmState) Witness() *stateless.Witness { return nil }

func (s *evmState) AccessEvents() *gethstate.AccessEvents { return nil }

// Finalise is a no-op: the journal is turned into a state.Diff once the transaction ends.
func (s *evmState) Finalise(bool) {}
