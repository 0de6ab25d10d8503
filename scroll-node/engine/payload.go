package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/scroll-tech/l2-executor/scroll-core/types"
	"github.com/scroll-tech/l2-executor/scroll-service/eth"
)

// BuiltPayload is a block built by the local sequencer together with the fees it collects.
type BuiltPayload struct {
	Block *types.Block
	Fees  *big.Int
}

func NewBuiltPayload(block *types.Block, fees *big.Int) *BuiltPayload {
	if fees == nil {
		fees = new(big.Int)
	}
	return &BuiltPayload{Block: block, Fees: fees}
}

// ExecutionPayload converts the block into an engine API payload.
func (p *BuiltPayload) ExecutionPayload() (*eth.ExecutionPayload, error) {
	txs, err := p.Block.EncodedTransactions()
	if err != nil {
		return nil, fmt.Errorf("failed to encode block transactions: %w", err)
	}
	return eth.BlockToPayload(p.Block.Header, txs), nil
}

// EnvelopeV1 returns the engine_getPayloadV1 response.
func (p *BuiltPayload) EnvelopeV1() (*eth.ExecutionPayload, error) {
	return p.ExecutionPayload()
}

// EnvelopeV2 returns the engine_getPayloadV2 response.
func (p *BuiltPayload) EnvelopeV2() (*eth.ExecutionPayloadEnvelopeV2, error) {
	payload, err := p.ExecutionPayload()
	if err != nil {
		return nil, err
	}
	return &eth.ExecutionPayloadEnvelopeV2{
		ExecutionPayload: payload,
		BlockValue:       (*hexutil.Big)(new(big.Int).Set(p.Fees)),
	}, nil
}

// EnvelopeV3 returns the engine_getPayloadV3 response. Scroll blocks have no blobs.
func (p *BuiltPayload) EnvelopeV3() (*eth.ExecutionPayloadEnvelopeV3, error) {
	payload, err := p.ExecutionPayload()
	if err != nil {
		return nil, err
	}
	return &eth.ExecutionPayloadEnvelopeV3{
		ExecutionPayload:      payload,
		BlockValue:            (*hexutil.Big)(new(big.Int).Set(p.Fees)),
		BlobsBundle:           eth.EmptyBlobsBundle(),
		ShouldOverrideBuilder: false,
	}, nil
}
