package fees

import (
	"github.com/holiman/uint256"

	"github.com/scroll-tech/l2-executor/scroll-core/forks"
)

const (
	// TxL1CommitExtraCost accounts for the signature bytes not present in the unsigned payload.
	TxL1CommitExtraCost = 64

	zeroByteCost    = 4
	nonZeroByteCost = 16
)

// Precision is the fixed-point denominator of the oracle scalars.
var Precision = uint256.NewInt(1_000_000_000)

// DataGas returns the calldata gas of a payload: 4 per zero byte, 16 per non-zero byte.
func DataGas(data []byte) uint64 {
	var gas uint64
	for _, b := range data {
		if b == 0 {
			gas += zeroByteCost
		} else {
			gas += nonZeroByteCost
		}
	}
	return gas
}

// L1DataFee returns the fee charged for posting the canonical encoding of a transaction to L1.
//
// Before Curie: (dataGas + 64 + overhead) * l1BaseFee * scalar / 1e9
// From Curie:   (commitScalar * l1BaseFee + len * l1BlobBaseFee * blobScalar) / 1e9
func (o *GasOracle) L1DataFee(spec forks.SpecID, encoded []byte) *uint256.Int {
	if spec.IsEnabledIn(forks.SpecCurie) {
		return o.curieFee(encoded)
	}
	return o.preCurieFee(encoded)
}

func (o *GasOracle) preCurieFee(encoded []byte) *uint256.Int {
	fee := uint256.NewInt(DataGas(encoded) + TxL1CommitExtraCost)
	fee.Add(fee, o.Overhead)
	fee.Mul(fee, o.L1BaseFee)
	fee.Mul(fee, o.Scalar)
	return fee.Div(fee, Precision)
}

func (o *GasOracle) curieFee(encoded []byte) *uint256.Int {
	commit := new(uint256.Int).Mul(o.CommitScalar, o.L1BaseFee)
	blob := uint256.NewInt(uint64(len(encoded)))
	blob.Mul(blob, o.L1BlobBaseFee)
	blob.Mul(blob, o.BlobScalar)
	fee := commit.Add(commit, blob)
	return fee.Div(fee, Precision)
}
