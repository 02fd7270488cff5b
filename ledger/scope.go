package ledger

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/zkvote/zkvote/util"
)

// deriveScope computes the immutable per-instance scope binding every proof
// to this deployment: poseidon over the chain id, the deployment address
// and fresh entropy, all as field elements. The result is derived exactly
// once at initialization, persisted, and never recomputed, so proofs cannot
// be replayed across instances.
func deriveScope(chainID uint64, deployment common.Address, entropy []byte) (*big.Int, error) {
	if len(entropy) == 0 {
		entropy = util.RandomBytes(32)
	}
	scope, err := poseidon.Hash([]*big.Int{
		new(big.Int).SetUint64(chainID),
		new(big.Int).SetBytes(deployment.Bytes()),
		util.BigToFF(new(big.Int).SetBytes(entropy)),
	})
	if err != nil {
		return nil, fmt.Errorf("derive scope: %w", err)
	}
	return scope, nil
}
