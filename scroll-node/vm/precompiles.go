package vm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
)

var (
	ErrPrecompileDisabled  = errors.New("precompile is not supported on scroll")
	ErrModExpInputTooLarge = errors.New("modexp input lengths must not exceed 32 bytes")
	ErrTooManyPairings     = errors.New("ecpairing input exceeds 4 pairs")
)

var (
	sha256Addr    = common.BytesToAddress([]byte{0x02})
	ripemd160Addr = common.BytesToAddress([]byte{0x03})
	modExpAddr    = common.BytesToAddress([]byte{0x05})
	pairingAddr   = common.BytesToAddress([]byte{0x08})
	blake2FAddr   = common.BytesToAddress([]byte{0x09})
)

const (
	maxModExpLen = 32
	pairSize     = 192
	maxPairs     = 4
)

// Precompiles returns the precompiled contracts of spec. Scroll keeps the Berlin addresses but
// RIPEMD-160 and BLAKE2F always fail, SHA-256 fails before Bernoulli, and the modexp and pairing
// circuits bound their inputs.
func Precompiles(spec forks.SpecID) gethvm.PrecompiledContracts {
	out := make(gethvm.PrecompiledContracts, len(gethvm.PrecompiledContractsBerlin))
	for addr, p := range gethvm.PrecompiledContractsBerlin {
		out[addr] = p
	}
	out[ripemd160Addr] = disabledPrecompile{name: "RIPEMD160"}
	out[blake2FAddr] = disabledPrecompile{name: "BLAKE2F"}
	if !spec.IsEnabledIn(forks.SpecBernoulli) {
		out[sha256Addr] = disabledPrecompile{name: "SHA256"}
	}
	out[modExpAddr] = boundedModExp{out[modExpAddr]}
	out[pairingAddr] = boundedPairing{out[pairingAddr]}
	return out
}

// PrecompileAddresses returns the addresses that are warm at the start of every transaction.
func PrecompileAddresses() []common.Address {
	out := make([]common.Address, 0, len(gethvm.PrecompiledContractsBerlin))
	for addr := range gethvm.PrecompiledContractsBerlin {
		out = append(out, addr)
	}
	return out
}

// IsPrecompile reports whether addr is one of the precompiled contracts 0x01 to 0x09.
func IsPrecompile(addr common.Address) bool {
	_, ok := gethvm.PrecompiledContractsBerlin[addr]
	return ok
}

// disabledPrecompile consumes all gas of the call.
type disabledPrecompile struct {
	name string
}

func (disabledPrecompile) RequiredGas([]byte) uint64 { return 0 }

func (disabledPrecompile) Run([]byte) ([]byte, error) { return nil, ErrPrecompileDisabled }

func (p disabledPrecompile) Name() string { return p.name }

type boundedModExp struct {
	gethvm.PrecompiledContract
}

func (p boundedModExp) Run(input []byte) ([]byte, error) {
	for i := 0; i < 3; i++ {
		n := new(big.Int).SetBytes(word(input, i))
		if n.Cmp(big.NewInt(maxModExpLen)) > 0 {
			return nil, ErrModExpInputTooLarge
		}
	}
	return p.PrecompiledContract.Run(input)
}

type boundedPairing struct {
	gethvm.PrecompiledContract
}

func (p boundedPairing) Run(input []byte) ([]byte, error) {
	if len(input) > maxPairs*pairSize {
		return nil, ErrTooManyPairings
	}
	return p.PrecompiledContract.Run(input)
}

// word returns the i-th 32 byte word of input, zero padded.
func word(input []byte, i int) []byte {
	start := i * 32
	if start >= len(input) {
		return nil
	}
	end := min(start+32, len(input))
	return common.RightPadBytes(input[start:end], 32)
}
