package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/klauspost/compress/zstd"
)

// Compact encoding layout, used for storage:
//
//	uvarint(len(body)) || body
//	body = flags || type || payload
//
// payload is the RLP encoding of the variant fields, zstd-compressed when flags has
// compactFlagZstd set. Payloads of at least compressionThreshold bytes are compressed.
const (
	compactFlagZstd byte = 1 << 0

	compressionThreshold = 512

	// maxCompactPayload bounds the decompressed size of a payload.
	maxCompactPayload = 8 << 20
)

var (
	ErrCompactTruncated = errors.New("compact encoding truncated")
	errCompactFlags     = errors.New("compact encoding has unknown flags")
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxCompactPayload))
)

func encodeCompact(typ byte, payload []byte) []byte {
	flags := byte(0)
	if len(payload) >= compressionThreshold {
		payload = zstdEncoder.EncodeAll(payload, nil)
		flags |= compactFlagZstd
	}
	bodyLen := 2 + len(payload)
	out := binary.AppendUvarint(make([]byte, 0, binary.MaxVarintLen64+bodyLen), uint64(bodyLen))
	out = append(out, flags, typ)
	return append(out, payload...)
}

// decodeCompact returns the type and decompressed payload, and the number of bytes read.
func decodeCompact(b []byte) (typ byte, payload []byte, n int, err error) {
	bodyLen, lenSize := binary.Uvarint(b)
	if lenSize <= 0 {
		return 0, nil, 0, ErrCompactTruncated
	}
	if bodyLen < 2 || uint64(len(b)-lenSize) < bodyLen {
		return 0, nil, 0, ErrCompactTruncated
	}
	body := b[lenSize : lenSize+int(bodyLen)]
	flags, typ, payload := body[0], body[1], body[2:]
	if flags&^compactFlagZstd != 0 {
		return 0, nil, 0, fmt.Errorf("%w: %#x", errCompactFlags, flags)
	}
	if flags&compactFlagZstd != 0 {
		payload, err = zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return 0, nil, 0, fmt.Errorf("decompress compact payload: %w", err)
		}
	}
	return typ, payload, lenSize + int(bodyLen), nil
}

// MarshalCompact returns the compact storage encoding of the transaction.
func (tx *Transaction) MarshalCompact() ([]byte, error) {
	payload, err := rlp.EncodeToBytes(tx.inner)
	if err != nil {
		return nil, err
	}
	return encodeCompact(tx.Type(), payload), nil
}

// UnmarshalCompact decodes a compact encoding produced by MarshalCompact and returns the
// number of bytes consumed.
func (tx *Transaction) UnmarshalCompact(b []byte) (int, error) {
	typ, payload, n, err := decodeCompact(b)
	if err != nil {
		return 0, err
	}
	var inner TxData
	switch typ {
	case LegacyTxType:
		inner = new(LegacyTx)
	case AccessListTxType:
		inner = new(AccessListTx)
	case DynamicFeeTxType:
		inner = new(DynamicFeeTx)
	case L1MessageTxType:
		inner = new(L1MessageTx)
	default:
		return 0, fmt.Errorf("%w: %d", ErrTxTypeNotSupported, typ)
	}
	if err := rlp.DecodeBytes(payload, inner); err != nil {
		return 0, fmt.Errorf("decode compact %s: %w", txTypeName(typ), err)
	}
	decoded := NewTx(inner)
	*tx = Transaction{inner: decoded.inner, eth: decoded.eth}
	return n, nil
}

func txTypeName(typ byte) string {
	switch typ {
	case LegacyTxType:
		return "legacy transaction"
	case AccessListTxType:
		return "eip-2930 transaction"
	case DynamicFeeTxType:
		return "eip-1559 transaction"
	case L1MessageTxType:
		return "l1 message"
	default:
		return fmt.Sprintf("transaction type %d", typ)
	}
}
