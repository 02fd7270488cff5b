// Package sponsor implements the fee-sponsorship pre-validator. It decides,
// in a read-only pre-execution phase, whether a pending vote transaction
// should have its fee underwritten. It mirrors the ledger's admission
// checks through the ledger's pure CheckVote entry point and never mutates
// ledger state; a positive decision is advisory, not a guarantee that the
// later real vote will still succeed.
package sponsor

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/zkvote/zkvote/types"
	"go.vocdoni.io/dvote/log"
)

// Declining reasons. Only ErrNotOwner and ErrInsufficientBalance are real
// errors; the rest merely shape the decision.
var (
	ErrUnauthorizedAccount   = fmt.Errorf("originating account is not allow-listed")
	ErrAccountNotDeployed    = fmt.Errorf("originating account is not deployed yet")
	ErrInsufficientDeposit   = fmt.Errorf("sponsorship deposit does not cover the fee")
	ErrMalformedCall         = fmt.Errorf("transaction is not a recognized vote call")
	ErrInnerValidationFailed = fmt.Errorf("vote admission checks failed")

	ErrNotOwner            = fmt.Errorf("caller is not the validator owner")
	ErrInsufficientBalance = fmt.Errorf("withdrawal exceeds the deposit balance")
)

// allowedMethods is the explicit allow-list of inner calls the validator is
// willing to sponsor.
var allowedMethods = map[string]bool{
	"vote": true,
}

// VoteChecker is the slice of the voting ledger the validator consumes: the
// pure admission check, with no way to mutate anything.
type VoteChecker interface {
	CheckVote(proof *types.GroupProof, rootIndex int) error
}

// Transaction is the structured, decoded-once representation of a pending
// sponsored call. It replaces byte-pattern matching on serialized calldata:
// the host decodes the envelope exactly once and the validator only ever
// inspects typed fields.
type Transaction struct {
	From         common.Address     `json:"from"`
	FromDeployed bool               `json:"fromDeployed"`
	To           common.Address     `json:"to"`
	Value        *types.BigInt      `json:"value"`
	MaxFee       *types.BigInt      `json:"maxFee"`
	Method       string             `json:"method"`
	Vote         *types.VoteRequest `json:"vote"`
}

// Decision is the outcome of a sponsorship check. Reason is set when the
// sponsorship is declined.
type Decision struct {
	ID        uuid.UUID `json:"id"`
	Sponsored bool      `json:"sponsored"`
	Reason    string    `json:"reason,omitempty"`
}

// Validator gates fee sponsorship for vote transactions. It is stateless
// between calls except for the deposit balance and the single allow-listed
// account, which only the owner may change.
type Validator struct {
	mu      sync.Mutex
	owner   common.Address
	allowed common.Address
	ledger  common.Address
	deposit *big.Int
	checker VoteChecker
}

// New creates a sponsorship validator. ledger is the address of the voting
// ledger, the only call target ever sponsored.
func New(owner, allowed, ledger common.Address, checker VoteChecker) *Validator {
	return &Validator{
		owner:   owner,
		allowed: allowed,
		ledger:  ledger,
		deposit: new(big.Int),
		checker: checker,
	}
}

// Validate decides whether to underwrite the transaction fee. Declines are
// decisions, not errors: the voter can always self-pay instead.
func (v *Validator) Validate(tx *Transaction) *Decision {
	v.mu.Lock()
	defer v.mu.Unlock()

	id := uuid.New()
	decline := func(reason error) *Decision {
		log.Debugw("sponsorship declined", "id", id.String(), "reason", reason.Error())
		return &Decision{ID: id, Reason: reason.Error()}
	}

	if tx == nil {
		return decline(ErrMalformedCall)
	}
	if tx.From != v.allowed {
		return decline(ErrUnauthorizedAccount)
	}
	// An account deployed in the same step could swap its code under the
	// sponsorship; reject the whole class.
	if !tx.FromDeployed {
		return decline(ErrAccountNotDeployed)
	}
	if tx.MaxFee == nil || v.deposit.Cmp(tx.MaxFee.MathBigInt()) < 0 {
		return decline(ErrInsufficientDeposit)
	}
	if tx.To != v.ledger {
		return decline(fmt.Errorf("%w: target is not the voting ledger", ErrMalformedCall))
	}
	if tx.Value != nil && tx.Value.MathBigInt().Sign() != 0 {
		return decline(fmt.Errorf("%w: nonzero value transfer", ErrMalformedCall))
	}
	if !allowedMethods[tx.Method] {
		return decline(fmt.Errorf("%w: method %q", ErrMalformedCall, tx.Method))
	}
	if tx.Vote == nil || tx.Vote.Proof == nil {
		return decline(fmt.Errorf("%w: missing vote payload", ErrMalformedCall))
	}
	if err := v.checker.CheckVote(tx.Vote.Proof, tx.Vote.RootIndex); err != nil {
		return decline(fmt.Errorf("%w: %v", ErrInnerValidationFailed, err))
	}

	log.Debugw("sponsorship approved",
		"id", id.String(),
		"proposalId", tx.Vote.ProposalID,
		"maxFee", tx.MaxFee.String())
	return &Decision{ID: id, Sponsored: true}
}

// AllowedAccount returns the current allow-listed account.
func (v *Validator) AllowedAccount() common.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.allowed
}

// SetAllowedAccount replaces the allow-listed account. Owner only.
func (v *Validator) SetAllowedAccount(caller, account common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrNotOwner
	}
	v.allowed = account
	log.Infow("sponsorship allow-list updated", "account", account.Hex())
	return nil
}

// Deposit adds funds to the sponsorship balance.
func (v *Validator) Deposit(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.deposit.Add(v.deposit, amount)
	return nil
}

// Withdraw removes funds from the sponsorship balance. Owner only.
func (v *Validator) Withdraw(caller common.Address, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if caller != v.owner {
		return ErrNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("withdrawal amount must be positive")
	}
	if v.deposit.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	v.deposit.Sub(v.deposit, amount)
	return nil
}

// Balance returns a copy of the current deposit balance.
func (v *Validator) Balance() *big.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return new(big.Int).Set(v.deposit)
}
