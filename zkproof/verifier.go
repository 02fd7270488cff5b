// Package zkproof is the proof-verification boundary of the voting engine.
// Proofs are circom Groth16 membership proofs; they are converted to gnark
// objects and verified against the verification key matching the tree depth
// the proof declares. Proof generation happens off-path and is out of scope
// here.
package zkproof

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/circom2gnark/parser"
	"github.com/zkvote/zkvote/types"
	"github.com/zkvote/zkvote/util"
)

var (
	// ErrUnsupportedDepth is returned when no verification key is loaded
	// for the depth the proof declares.
	ErrUnsupportedDepth = fmt.Errorf("no verification key for tree depth")
	// ErrInvalidProof is returned when the proof does not verify against
	// its public signals.
	ErrInvalidProof = fmt.Errorf("proof verification failed")
)

// Verifier is the stateless proof-verification capability the ledger and
// the sponsorship validator consume.
type Verifier interface {
	// Verify checks the proof against the public signal tuple
	// [merkleTreeRoot, nullifier, hash(message), hash(scope)] and the
	// declared tree depth. A nil return means the proof is valid.
	Verify(proof *types.GroupProof) error
}

// HashToField maps an arbitrary field element to the bn254 scalar field by
// hashing its 32-byte big-endian encoding with keccak256 and dropping the
// lowest byte. Message and scope enter the public signals through this map.
func HashToField(v *big.Int) *big.Int {
	digest := crypto.Keccak256(util.BigToBytes32(v))
	return new(big.Int).Rsh(new(big.Int).SetBytes(digest), 8)
}

// Groth16Verifier verifies circom Groth16 proofs through circom2gnark, one
// verification key per supported tree depth.
type Groth16Verifier struct {
	vkeys map[int]*parser.CircomVerificationKey
}

// NewGroth16Verifier parses the given snarkjs verification keys, indexed by
// the tree depth they were compiled for.
func NewGroth16Verifier(vkeys map[int][]byte) (*Groth16Verifier, error) {
	if len(vkeys) == 0 {
		return nil, fmt.Errorf("no verification keys provided")
	}
	parsed := make(map[int]*parser.CircomVerificationKey, len(vkeys))
	for depth, raw := range vkeys {
		if depth < types.MinTreeDepth || depth > types.MaxTreeDepth {
			return nil, fmt.Errorf("verification key for out-of-range depth %d", depth)
		}
		vk, err := parser.UnmarshalCircomVerificationKeyJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse verification key for depth %d: %w", depth, err)
		}
		parsed[depth] = vk
	}
	return &Groth16Verifier{vkeys: parsed}, nil
}

// Verify implements Verifier.
func (g *Groth16Verifier) Verify(proof *types.GroupProof) error {
	if err := proof.Valid(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	vk, ok := g.vkeys[proof.MerkleTreeDepth]
	if !ok {
		return fmt.Errorf("%w %d", ErrUnsupportedDepth, proof.MerkleTreeDepth)
	}
	circomProof, err := snarkjsProof(proof.Points)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	publicSignals := []string{
		proof.MerkleTreeRoot.String(),
		proof.Nullifier.String(),
		HashToField(proof.Message.MathBigInt()).String(),
		HashToField(proof.Scope.MathBigInt()).String(),
	}
	gnarkProof, err := parser.ConvertCircomToGnark(circomProof, vk, publicSignals)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	valid, err := parser.VerifyProof(gnarkProof)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if !valid {
		return ErrInvalidProof
	}
	return nil
}

// snarkjsProof rebuilds the snarkjs proof document from the flat point
// encoding of the call surface: A (2 coordinates), B (4, row major),
// C (2), all affine.
func snarkjsProof(points [types.GroupProofPoints]*types.BigInt) (*parser.CircomProof, error) {
	p := make([]string, len(points))
	for i, pt := range points {
		p[i] = pt.String()
	}
	doc, err := json.Marshal(map[string]any{
		"pi_a":     []string{p[0], p[1], "1"},
		"pi_b":     [][]string{{p[2], p[3]}, {p[4], p[5]}, {"1", "0"}},
		"pi_c":     []string{p[6], p[7], "1"},
		"protocol": "groth16",
		"curve":    "bn128",
	})
	if err != nil {
		return nil, err
	}
	return parser.UnmarshalCircomProofJSON(doc)
}
