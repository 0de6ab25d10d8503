package engine

import (
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/scroll-tech/l2-executor/scroll-service/eth"
)

// PayloadValidator turns an engine API payload into a sealed block of type B, rejecting
// payloads that are malformed or whose block hash does not match.
type PayloadValidator[B any] interface {
	EnsureWellFormedPayload(payload *eth.ExecutionPayload, sidecar eth.ExecutionPayloadSidecar) (B, error)
}

type Metrics interface {
	RecordPayloadValidation(validator string, err error)
}

// Forks reports the base protocol forks that change the payload shape.
type Forks interface {
	IsShanghai(t uint64) bool
	IsCancun(t uint64) bool
	IsPrague(t uint64) bool
}

// sealedHeader copies header with the given difficulty and returns it with its hash.
func sealedHeader(header *gethtypes.Header, difficulty int64) (*gethtypes.Header, common.Hash) {
	h := gethtypes.CopyHeader(header)
	h.Difficulty.SetInt64(difficulty)
	return h, h.Hash()
}
