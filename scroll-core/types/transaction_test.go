package types

import (
	"bytes"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	testChainID = big.NewInt(534352)
	testKey, _  = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testAddr    = crypto.PubkeyToAddress(testKey.PublicKey)
	recipient   = common.HexToAddress("0x000000000000000000000000000000000000dead")
)

func testTransactions(t *testing.T) map[string]*Transaction {
	signer := LatestSigner(testChainID)
	accessList := gethtypes.AccessList{{Address: recipient, StorageKeys: []common.Hash{{0x01}}}}
	return map[string]*Transaction{
		"legacy": MustSignNewTx(testKey, signer, &LegacyTx{
			Nonce: 1, GasPrice: big.NewInt(2), Gas: 21000, To: &recipient, Value: big.NewInt(3), Data: []byte{0xca, 0xfe},
		}),
		"eip2930": MustSignNewTx(testKey, signer, &AccessListTx{
			ChainID: testChainID, Nonce: 2, GasPrice: big.NewInt(2), Gas: 30000, To: &recipient, Value: big.NewInt(1), AccessList: accessList,
		}),
		"eip1559": MustSignNewTx(testKey, signer, &DynamicFeeTx{
			ChainID: testChainID, Nonce: 3, GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(10), Gas: 30000, Value: big.NewInt(0), Data: []byte{0x60, 0x00},
		}),
		"l1message": NewTx(&L1MessageTx{
			QueueIndex: 7, Gas: 100000, To: &recipient, Value: big.NewInt(5), Data: []byte{0x01}, Sender: common.Address{0x11},
		}),
	}
}

func TestTransactionCodecs(t *testing.T) {
	for name, tx := range testTransactions(t) {
		t.Run(name, func(t *testing.T) {
			canonical, err := tx.MarshalBinary()
			require.NoError(t, err)
			require.Equal(t, uint64(len(canonical)), tx.Size())

			var fromBinary Transaction
			require.NoError(t, fromBinary.UnmarshalBinary(canonical))
			require.Equal(t, tx.Hash(), fromBinary.Hash())
			require.Equal(t, tx.Type(), fromBinary.Type())

			enc, err := json.Marshal(tx)
			require.NoError(t, err)
			var fromJSON Transaction
			require.NoError(t, json.Unmarshal(enc, &fromJSON))
			require.Equal(t, tx.Hash(), fromJSON.Hash())

			compact, err := tx.MarshalCompact()
			require.NoError(t, err)
			var fromCompact Transaction
			n, err := fromCompact.UnmarshalCompact(compact)
			require.NoError(t, err)
			require.Equal(t, len(compact), n)
			require.Equal(t, tx.Hash(), fromCompact.Hash())

			sender, err := Sender(LatestSigner(testChainID), &fromCompact)
			require.NoError(t, err)
			if tx.IsL1Message() {
				require.Equal(t, common.Address{0x11}, sender)
			} else {
				require.Equal(t, testAddr, sender)
			}
		})
	}
}

func TestL1MessageEncoding(t *testing.T) {
	msg := &L1MessageTx{QueueIndex: 1, Gas: 21000, To: &recipient, Value: big.NewInt(0), Data: []byte{}, Sender: testAddr}
	tx := NewTx(msg)

	payload, err := rlp.EncodeToBytes(msg)
	require.NoError(t, err)
	enc, err := tx.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, append([]byte{0x7e}, payload...), enc)
	require.Equal(t, crypto.Keccak256Hash(enc), tx.Hash())

	require.True(t, tx.IsL1Message())
	require.Equal(t, uint64(1), tx.Nonce())
	require.Zero(t, tx.EffectiveGasPrice(big.NewInt(100)).Sign())
	v, r, s := tx.RawSignatureValues()
	require.Nil(t, v)
	require.Nil(t, r)
	require.Nil(t, s)
}

func TestTransactionJSONTypeTag(t *testing.T) {
	txs := testTransactions(t)

	for name, want := range map[string]string{"legacy": "0x00", "eip2930": "0x01", "eip1559": "0x02", "l1message": "0x7e"} {
		enc, err := json.Marshal(txs[name])
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(enc, &fields))
		require.Equal(t, want, fields["type"], name)
	}

	rewrite := func(t *testing.T, tx *Transaction, tag any) []byte {
		enc, err := json.Marshal(tx)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(enc, &fields))
		if tag == nil {
			delete(fields, "type")
		} else {
			fields["type"] = tag
		}
		out, err := json.Marshal(fields)
		require.NoError(t, err)
		return out
	}

	t.Run("untagged decodes as legacy", func(t *testing.T) {
		var dec Transaction
		require.NoError(t, json.Unmarshal(rewrite(t, txs["legacy"], nil), &dec))
		require.Equal(t, uint8(LegacyTxType), dec.Type())
		require.Equal(t, txs["legacy"].Hash(), dec.Hash())
	})
	t.Run("aliases", func(t *testing.T) {
		var dec Transaction
		require.NoError(t, json.Unmarshal(rewrite(t, txs["legacy"], "0x0"), &dec))
		require.Equal(t, txs["legacy"].Hash(), dec.Hash())
		require.NoError(t, json.Unmarshal(rewrite(t, txs["l1message"], "0x7E"), &dec))
		require.Equal(t, txs["l1message"].Hash(), dec.Hash())
	})
	t.Run("unknown tag", func(t *testing.T) {
		var dec Transaction
		require.ErrorIs(t, json.Unmarshal(rewrite(t, txs["legacy"], "0x05"), &dec), ErrTxTypeNotSupported)
		require.Error(t, json.Unmarshal(rewrite(t, txs["legacy"], "legacy"), &dec))
	})
}

func TestUnsupportedTransactionTypes(t *testing.T) {
	signer := LatestSigner(testChainID)
	blob, err := gethtypes.SignNewTx(testKey, signer, &gethtypes.BlobTx{
		ChainID:    uint256.MustFromBig(testChainID),
		GasTipCap:  uint256.NewInt(1),
		GasFeeCap:  uint256.NewInt(1),
		Gas:        21000,
		To:         recipient,
		Value:      uint256.NewInt(0),
		BlobFeeCap: uint256.NewInt(1),
		BlobHashes: []common.Hash{{0x01}},
	})
	require.NoError(t, err)
	enc, err := blob.MarshalBinary()
	require.NoError(t, err)

	var tx Transaction
	require.ErrorIs(t, tx.UnmarshalBinary(enc), ErrTxTypeNotSupported)

	_, err = FromEth(blob)
	require.ErrorIs(t, err, ErrTxTypeNotSupported)

	compact := encodeCompact(BlobTxType, []byte{0xc0})
	_, err = tx.UnmarshalCompact(compact)
	require.ErrorIs(t, err, ErrTxTypeNotSupported)
}

func TestCompactCompression(t *testing.T) {
	data := bytes.Repeat([]byte{0xab, 0x00}, 2048)
	tx := NewTx(&L1MessageTx{QueueIndex: 9, Gas: 1_000_000, To: &recipient, Value: big.NewInt(0), Data: data, Sender: testAddr})

	compact, err := tx.MarshalCompact()
	require.NoError(t, err)
	require.Less(t, len(compact), len(data), "repetitive payloads compress")

	var dec Transaction
	n, err := dec.UnmarshalCompact(compact)
	require.NoError(t, err)
	require.Equal(t, len(compact), n)
	require.Equal(t, data, dec.Data())
	require.Equal(t, tx.Hash(), dec.Hash())

	_, err = dec.UnmarshalCompact(compact[:len(compact)-1])
	require.ErrorIs(t, err, ErrCompactTruncated)
	_, err = dec.UnmarshalCompact(nil)
	require.ErrorIs(t, err, ErrCompactTruncated)
}

func TestEffectiveGasPrice(t *testing.T) {
	tx := NewTx(&DynamicFeeTx{ChainID: testChainID, GasTipCap: big.NewInt(2), GasFeeCap: big.NewInt(10), Gas: 21000})
	require.Equal(t, big.NewInt(7), tx.EffectiveGasPrice(big.NewInt(5)))
	require.Equal(t, big.NewInt(10), tx.EffectiveGasPrice(big.NewInt(9)))

	legacy := NewTx(&LegacyTx{GasPrice: big.NewInt(4), Gas: 21000})
	require.Equal(t, big.NewInt(4), legacy.EffectiveGasPrice(big.NewInt(1)))
}
