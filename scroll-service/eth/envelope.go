package eth

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// BlobsBundle is the blobs bundle of a V3 envelope. Scroll payloads never carry blobs,
// so built envelopes always hold an empty bundle.
type BlobsBundle struct {
	Commitments []Data `json:"commitments"`
	Proofs      []Data `json:"proofs"`
	Blobs       []Data `json:"blobs"`
}

// ExecutionPayloadEnvelopeV2 is the engine_getPayloadV2 response.
type ExecutionPayloadEnvelopeV2 struct {
	ExecutionPayload *ExecutionPayload `json:"executionPayload"`
	BlockValue       *hexutil.Big      `json:"blockValue"`
}

// ExecutionPayloadEnvelopeV3 is the engine_getPayloadV3 response.
type ExecutionPayloadEnvelopeV3 struct {
	ExecutionPayload      *ExecutionPayload `json:"executionPayload"`
	BlockValue            *hexutil.Big      `json:"blockValue"`
	BlobsBundle           *BlobsBundle      `json:"blobsBundle"`
	ShouldOverrideBuilder bool              `json:"shouldOverrideBuilder"`
}

func EmptyBlobsBundle() *BlobsBundle {
	return &BlobsBundle{Commitments: []Data{}, Proofs: []Data{}, Blobs: []Data{}}
}
