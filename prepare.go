package stellarrpc

import (
	"context"
	"math"

	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// PrepareOutcome discriminates what Prepare produced: a ready-to-submit
// transaction, or a report that expired ledger entries must be restored
// first (§4.4).
type PrepareOutcome int

const (
	PrepareReady PrepareOutcome = iota
	PrepareRestorationRequired
)

// RestorationRequired carries everything needed to submit a restoration
// transaction before retrying the original one (§4.4, §9: modeled as a
// distinct return value, not an error).
type RestorationRequired struct {
	MinResourceFee int64
	SorobanData    xdr.SorobanTransactionData
}

// PrepareResult is the outcome of running a built transaction through the
// Preparation Pipeline.
type PrepareResult struct {
	Outcome      PrepareOutcome
	Transaction  *BuiltTransaction
	Restoration  *RestorationRequired
	Simulation   *SimulationResult
}

// isSorobanOperation reports whether op is one of the three operation kinds
// that carry Soroban resource data (§3).
func isSorobanOperation(op txnbuild.Operation) bool {
	switch op.(type) {
	case *txnbuild.InvokeHostFunction, *txnbuild.RestoreFootprint, *txnbuild.ExtendFootprintTtl:
		return true
	default:
		return false
	}
}

// Prepare runs the simulate-then-assemble pipeline (§4.4): it validates that
// tx is a single-operation Soroban transaction, simulates it, and on
// success rebuilds the envelope with the simulated footprint/auth and a fee
// that adds the simulated resource fee on top of the original base fee. A
// simulation error surfaces as CodeSimulationFailed; a restore-required
// simulation surfaces as PrepareRestorationRequired rather than an error.
func (s *Server) Prepare(ctx context.Context, tx *BuiltTransaction) (*PrepareResult, error) {
	ops := tx.Operations
	if len(ops) != 1 || !isSorobanOperation(ops[0]) {
		return nil, newError(CodeInvalidSorobanTransaction, "transaction must contain exactly one Soroban operation", nil)
	}

	sim, err := s.SimulateTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	switch sim.Outcome {
	case SimulationError:
		e := newError(CodeSimulationFailed, sim.ErrorMessage, nil)
		e.DiagnosticEvents = sim.DiagnosticEvents
		return nil, e

	case SimulationRestore:
		return &PrepareResult{
			Outcome:    PrepareRestorationRequired,
			Simulation: sim,
			Restoration: &RestorationRequired{
				MinResourceFee: sim.RestorePreamble.MinResourceFee,
				SorobanData:    sim.RestorePreamble.TransactionData,
			},
		}, nil

	default: // SimulationSuccess
		assembled, err := assembleTransaction(tx, sim)
		if err != nil {
			return nil, err
		}
		return &PrepareResult{
			Outcome:     PrepareReady,
			Transaction: assembled,
			Simulation:  sim,
		}, nil
	}
}

// assembleTransaction rebuilds tx's envelope carrying the simulated
// footprint, authorization entries, and a fee equal to the original base
// fee plus the simulated resource fee, saturating at math.MaxInt64 rather
// than overflowing (Testable Property 3). It rebuilds from the
// BuiltTransaction snapshot — source account, sequence, time bounds, memo,
// operations — rather than re-deriving an Account from the opaque envelope,
// so the rebuilt transaction always carries forward exactly the sequence
// number the original Build() call consumed (§9).
func assembleTransaction(tx *BuiltTransaction, sim *SimulationResult) (*BuiltTransaction, error) {
	op := tx.Operations[0]
	sorobanData := sim.TransactionData
	switch concrete := op.(type) {
	case *txnbuild.InvokeHostFunction:
		concrete.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}
		if len(sim.Results) > 0 {
			concrete.Auth = sim.Results[0].Auth
		}
	case *txnbuild.RestoreFootprint:
		concrete.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}
	case *txnbuild.ExtendFootprintTtl:
		concrete.Ext = xdr.TransactionExt{V: 1, SorobanData: &sorobanData}
	}

	fee := saturatingAddInt64(tx.BaseFee, sim.MinResourceFee)

	account := &txnbuild.SimpleAccount{AccountID: tx.SourceAccountID, Sequence: tx.Sequence}
	params := txnbuild.TransactionParams{
		SourceAccount:        account,
		Operations:           []txnbuild.Operation{op},
		Memo:                 tx.Memo,
		BaseFee:              fee,
		Preconditions:        txnbuild.Preconditions{TimeBounds: tx.TimeBounds},
		IncrementSequenceNum: false,
	}
	envelope, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, protocolViolationError("assembling prepared transaction envelope", err)
	}

	return &BuiltTransaction{
		Envelope:        envelope,
		SourceAccountID: tx.SourceAccountID,
		Sequence:        tx.Sequence,
		BaseFee:         fee,
		TimeBounds:      tx.TimeBounds,
		Memo:            tx.Memo,
		Operations:      []txnbuild.Operation{op},
	}, nil
}

// saturatingAddInt64 adds a and b, clamping to math.MaxInt64 instead of
// wrapping on overflow (Testable Property 3).
func saturatingAddInt64(a, b int64) int64 {
	if a > 0 && b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
