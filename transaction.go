package stellarrpc

import (
	"strconv"

	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// InfiniteTimeout is the sentinel passed to TransactionBuilder.SetTimeout to
// disable the upper time bound, matching txnbuild.NewInfiniteTimeout (§4.2).
const InfiniteTimeout int64 = -1

type boundsSource int

const (
	boundsNone boundsSource = iota
	boundsExplicit
	boundsTimeout
)

// BuiltTransaction is the output of TransactionBuilder.Build /
// BuildForSimulation: a ready-to-sign-or-simulate envelope plus the
// snapshot of builder state the Preparation Pipeline (C7) needs in order to
// rebuild it without ever touching the AccountAuthority again (§4.4: "the
// sequence must be the sequence originally chosen by the input builder —
// do not consume a new one").
type BuiltTransaction struct {
	Envelope        *txnbuild.Transaction
	SourceAccountID string
	Sequence        int64
	BaseFee         int64
	TimeBounds      txnbuild.TimeBounds
	Memo            txnbuild.Memo
	Operations      []txnbuild.Operation
}

// TransactionBuilder aggregates fee, time-bounds, memo and operations into
// an envelope, in two modes: Build() (submission, side-effecting) and
// BuildForSimulation() (preview, read-only) — see §4.2.
type TransactionBuilder struct {
	authority         *AccountAuthority
	networkPassphrase string

	operations   []txnbuild.Operation
	memo         txnbuild.Memo
	baseFee      int64
	timeBounds   txnbuild.TimeBounds
	boundsSource boundsSource

	ledgerBounds               *txnbuild.LedgerBounds
	minSequenceNumber          *int64
	minSequenceNumberAge       uint64
	minSequenceNumberLedgerGap uint32
	extraSigners               []string
}

// NewTransactionBuilder creates a builder bound to authority. timeBounds, if
// non-nil, is treated as an explicit bound — a later SetTimeout call then
// fails with CodeInvalidInput (§4.2's "Fails ... if both explicit
// time-bounds and set_timeout are configured inconsistently").
func NewTransactionBuilder(authority *AccountAuthority, networkPassphrase string, timeBounds *txnbuild.TimeBounds) *TransactionBuilder {
	t := &TransactionBuilder{
		authority:         authority,
		networkPassphrase: networkPassphrase,
		baseFee:           txnbuild.MinBaseFee,
	}
	if timeBounds != nil {
		t.timeBounds = *timeBounds
		t.boundsSource = boundsExplicit
	}
	return t
}

// Fee sets the base fee (stroops). When a Soroban resource fee is merged in
// later by the Preparation Pipeline, it is additive on top of this value
// (§4.2, §4.4).
func (t *TransactionBuilder) Fee(fee int64) *TransactionBuilder {
	t.baseFee = fee
	return t
}

// AddOperation appends one or more operations.
func (t *TransactionBuilder) AddOperation(ops ...txnbuild.Operation) *TransactionBuilder {
	t.operations = append(t.operations, ops...)
	return t
}

// AddMemo sets the transaction memo.
func (t *TransactionBuilder) AddMemo(m txnbuild.Memo) *TransactionBuilder {
	t.memo = m
	return t
}

// LedgerBounds sets the valid ledger-number range.
func (t *TransactionBuilder) LedgerBounds(lb *txnbuild.LedgerBounds) *TransactionBuilder {
	t.ledgerBounds = lb
	return t
}

// MinSequenceNumber sets the minimum source-account sequence number under
// which this transaction is valid.
func (t *TransactionBuilder) MinSequenceNumber(mn *int64) *TransactionBuilder {
	t.minSequenceNumber = mn
	return t
}

// MinSequenceNumberAge sets the minimum ledger-time age of the source
// account's sequence number.
func (t *TransactionBuilder) MinSequenceNumberAge(age uint64) *TransactionBuilder {
	t.minSequenceNumberAge = age
	return t
}

// MinSequenceNumberLedgerGap sets the minimum ledger-number gap since the
// source account's sequence number was last changed.
func (t *TransactionBuilder) MinSequenceNumberLedgerGap(gap uint32) *TransactionBuilder {
	t.minSequenceNumberLedgerGap = gap
	return t
}

// ExtraSigners requires a signature from each of the given signer keys in
// addition to whatever the source account or operations already require.
func (t *TransactionBuilder) ExtraSigners(signers ...string) *TransactionBuilder {
	t.extraSigners = append(t.extraSigners, signers...)
	return t
}

// SetTimeout sets max_time = now + seconds (InfiniteTimeout disables the
// upper bound entirely). It fails with CodeInvalidInput if explicit
// time-bounds were already supplied to NewTransactionBuilder (§4.2).
func (t *TransactionBuilder) SetTimeout(seconds int64) (*TransactionBuilder, error) {
	if t.boundsSource == boundsExplicit {
		return nil, invalidInputError("set_timeout conflicts with explicit time bounds already configured")
	}
	if seconds == InfiniteTimeout {
		t.timeBounds = txnbuild.NewInfiniteTimeout()
	} else {
		t.timeBounds = txnbuild.NewTimeout(seconds)
	}
	t.boundsSource = boundsTimeout
	return t, nil
}

// SetSorobanData attaches Soroban resource data to the transaction's single
// host-function-shaped operation (§4.2, §3's Soroban-transaction
// invariant). It is a no-op if the first operation isn't one of the three
// Soroban operation kinds.
func (t *TransactionBuilder) SetSorobanData(data xdr.SorobanTransactionData) *TransactionBuilder {
	if len(t.operations) == 0 {
		return t
	}
	switch op := t.operations[0].(type) {
	case *txnbuild.InvokeHostFunction:
		op.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}
	case *txnbuild.RestoreFootprint:
		op.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}
	case *txnbuild.ExtendFootprintTtl:
		op.Ext = xdr.TransactionExt{V: 1, SorobanData: &data}
	}
	return t
}

// SetAuthorization replaces the authorization entries on the single
// InvokeHostFunction operation, if present (§4.4.b). A no-op otherwise,
// since ExtendFootprintTtl/RestoreFootprint carry no authorization.
func (t *TransactionBuilder) SetAuthorization(auth []xdr.SorobanAuthorizationEntry) *TransactionBuilder {
	if len(t.operations) == 0 {
		return t
	}
	if op, ok := t.operations[0].(*txnbuild.InvokeHostFunction); ok {
		op.Auth = auth
	}
	return t
}

// Build acquires the account authority, consumes exactly one sequence
// number, and attaches it to the envelope. This is the only side-effecting
// build mode (§4.2).
func (t *TransactionBuilder) Build() (*BuiltTransaction, error) {
	return t.build(true)
}

// BuildForSimulation reads the authority's current sequence without
// advancing it, previewing the envelope that the next Build() call would
// produce (§4.2, Testable Property 2).
func (t *TransactionBuilder) BuildForSimulation() (*BuiltTransaction, error) {
	return t.build(false)
}

func (t *TransactionBuilder) build(submit bool) (*BuiltTransaction, error) {
	var seq int64
	if submit {
		seqStr, err := t.authority.IncrementSequenceAndReturn()
		if err != nil {
			return nil, err
		}
		seq, _ = strconv.ParseInt(seqStr, 10, 64)
	} else {
		seq = t.authority.sequenceValue()
	}

	account := &txnbuild.SimpleAccount{AccountID: t.authority.AccountID(), Sequence: seq}
	params := txnbuild.TransactionParams{
		SourceAccount: account,
		Operations:    t.operations,
		Memo:          t.memo,
		BaseFee:       t.baseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds:                 t.timeBounds,
			LedgerBounds:               t.ledgerBounds,
			MinSequenceNumber:          t.minSequenceNumber,
			MinSequenceNumberAge:       t.minSequenceNumberAge,
			MinSequenceNumberLedgerGap: t.minSequenceNumberLedgerGap,
			ExtraSigners:               t.extraSigners,
		},
		// Build() already consumed the real next number from the
		// authority, so txnbuild must not add its own +1. For
		// BuildForSimulation the account holds the current number and
		// txnbuild's +1 previews the next one (mirrored in finalSeq below).
		IncrementSequenceNum: !submit,
	}

	envelope, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, protocolViolationError("building transaction envelope", err)
	}

	finalSeq := seq
	if !submit {
		finalSeq = seq + 1
	}

	return &BuiltTransaction{
		Envelope:        envelope,
		SourceAccountID: t.authority.AccountID(),
		Sequence:        finalSeq,
		BaseFee:         t.baseFee,
		TimeBounds:      t.timeBounds,
		Memo:            t.memo,
		Operations:      t.operations,
	}, nil
}
