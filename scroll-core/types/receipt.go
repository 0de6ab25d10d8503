package types

import (
	"bytes"
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
)

var (
	receiptStatusFailedRLP     = []byte{}
	receiptStatusSuccessfulRLP = []byte{0x01}
)

// Receipt is the outcome of one executed transaction.
type Receipt struct {
	Type              uint8
	Success           bool
	CumulativeGasUsed uint64
	Logs              []*gethtypes.Log
	Bloom             gethtypes.Bloom

	// L1Fee is the L1 data fee charged to the sender. It is nil for L1 messages.
	L1Fee *uint256.Int
}

// receiptRLP is the consensus encoding of a receipt. The L1 fee is not part of it.
type receiptRLP struct {
	Status            []byte
	CumulativeGasUsed uint64
	Bloom             gethtypes.Bloom
	Logs              []*gethtypes.Log
}

// storedReceiptRLP is the compact storage payload. The bloom is derived from the logs.
type storedReceiptRLP struct {
	Success           bool
	CumulativeGasUsed uint64
	Logs              []*gethtypes.Log
	L1Fee             *uint256.Int `rlp:"optional"`
}

// LogsBloom computes the bloom filter over logs.
func LogsBloom(logs []*gethtypes.Log) gethtypes.Bloom {
	var bloom gethtypes.Bloom
	for _, log := range logs {
		bloom.Add(log.Address.Bytes())
		for _, topic := range log.Topics {
			bloom.Add(topic[:])
		}
	}
	return bloom
}

func (r *Receipt) statusEncoding() []byte {
	if r.Success {
		return receiptStatusSuccessfulRLP
	}
	return receiptStatusFailedRLP
}

// MarshalBinary returns the consensus encoding of the receipt, as hashed into the receipts root.
func (r *Receipt) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encodeTyped(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Receipt) encodeTyped(w *bytes.Buffer) error {
	data := &receiptRLP{r.statusEncoding(), r.CumulativeGasUsed, r.Bloom, r.Logs}
	if r.Type != LegacyTxType {
		w.WriteByte(r.Type)
	}
	return rlp.Encode(w, data)
}

// MarshalCompact returns the compact storage encoding, including the L1 fee.
func (r *Receipt) MarshalCompact() ([]byte, error) {
	payload, err := rlp.EncodeToBytes(&storedReceiptRLP{
		Success:           r.Success,
		CumulativeGasUsed: r.CumulativeGasUsed,
		Logs:              r.Logs,
		L1Fee:             r.L1Fee,
	})
	if err != nil {
		return nil, err
	}
	return encodeCompact(r.Type, payload), nil
}

// UnmarshalCompact decodes a compact receipt and returns the number of bytes consumed.
func (r *Receipt) UnmarshalCompact(b []byte) (int, error) {
	typ, payload, n, err := decodeCompact(b)
	if err != nil {
		return 0, err
	}
	switch typ {
	case LegacyTxType, AccessListTxType, DynamicFeeTxType, L1MessageTxType:
	default:
		return 0, fmt.Errorf("%w: receipt type %d", ErrTxTypeNotSupported, typ)
	}
	var stored storedReceiptRLP
	if err := rlp.DecodeBytes(payload, &stored); err != nil {
		return 0, fmt.Errorf("decode compact receipt: %w", err)
	}
	if typ == L1MessageTxType && stored.L1Fee != nil {
		return 0, fmt.Errorf("compact l1 message receipt carries an l1 fee")
	}
	*r = Receipt{
		Type:              typ,
		Success:           stored.Success,
		CumulativeGasUsed: stored.CumulativeGasUsed,
		Logs:              stored.Logs,
		Bloom:             LogsBloom(stored.Logs),
		L1Fee:             stored.L1Fee,
	}
	return n, nil
}

// Receipts implements DerivableList for receipts root derivation.
type Receipts []*Receipt

func (rs Receipts) Len() int { return len(rs) }

func (rs Receipts) EncodeIndex(i int, w *bytes.Buffer) {
	_ = rs[i].encodeTyped(w)
}

// Bloom aggregates the blooms of all receipts.
func (rs Receipts) Bloom() gethtypes.Bloom {
	var bloom gethtypes.Bloom
	for _, r := range rs {
		for i := range bloom {
			bloom[i] |= r.Bloom[i]
		}
	}
	return bloom
}
