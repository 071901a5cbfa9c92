package stellarrpc

import (
	"context"
	"strconv"

	"github.com/stellar/go/xdr"
)

// Cost reports the resource cost of a simulated invocation.
type Cost struct {
	CPUInsns uint64 `json:"cpuInsns,string"`
	MemBytes uint64 `json:"memBytes,string"`
}

// HostFunctionResult is the decoded return value and required
// authorizations of a single simulated host function invocation.
type HostFunctionResult struct {
	ReturnValue xdr.ScVal
	Auth        []xdr.SorobanAuthorizationEntry
}

// StateChange is a single ledger-entry diff produced by simulation.
type StateChange struct {
	Type   string
	Key    xdr.LedgerKey
	Before *xdr.LedgerEntryData
	After  *xdr.LedgerEntryData
}

// RestorePreamble carries the footprint and fee needed to restore expired
// entries before the simulated transaction can succeed (§4.3, §9).
type RestorePreamble struct {
	MinResourceFee  int64
	TransactionData xdr.SorobanTransactionData
}

// SimulationOutcome discriminates the three shapes a simulateTransaction
// response can take (§4.3): success, restoration required, or error.
type SimulationOutcome int

const (
	SimulationSuccess SimulationOutcome = iota
	SimulationRestore
	SimulationError
)

// SimulationResult is the decoded, discriminated form of simulateTransaction
// (§4.3). RestorePreamble is populated only when Outcome == SimulationRestore,
// ErrorMessage only when Outcome == SimulationError; everything else is
// populated for SimulationSuccess (and, where known, for SimulationRestore
// too, since a restore-required response still reports cost/events).
type SimulationResult struct {
	Outcome SimulationOutcome

	LatestLedger     int64
	MinResourceFee   int64
	Cost             Cost
	Results          []HostFunctionResult
	StateChanges     []StateChange
	TransactionData  xdr.SorobanTransactionData
	DiagnosticEvents []string

	RestorePreamble *RestorePreamble

	ErrorMessage string
}

// simulateWireResponse mirrors the raw JSON shape of simulateTransaction.
// The server protocol has evolved the diagnostic-events field from a flat
// "events" array to split "transactionEvents"/"contractEvents" arrays (§9);
// this struct accepts both and mergeDiagnosticEvents below reconciles them.
type simulateWireResponse struct {
	Error  string `json:"error,omitempty"`
	Events []string `json:"events,omitempty"`

	TransactionEvents []string `json:"transactionEvents,omitempty"`
	ContractEvents    []string `json:"contractEvents,omitempty"`

	LatestLedger int64 `json:"latestLedger"`

	MinResourceFee  string `json:"minResourceFee,omitempty"`
	TransactionData string `json:"transactionData,omitempty"`
	Cost            *Cost  `json:"cost,omitempty"`

	Results []struct {
		XDR  string   `json:"xdr"`
		Auth []string `json:"auth"`
	} `json:"results,omitempty"`

	StateChanges []struct {
		Type   string `json:"type"`
		Key    string `json:"key"`
		Before string `json:"before,omitempty"`
		After  string `json:"after,omitempty"`
	} `json:"stateChanges,omitempty"`

	RestorePreamble *struct {
		MinResourceFee  string `json:"minResourceFee"`
		TransactionData string `json:"transactionData"`
	} `json:"restorePreamble,omitempty"`
}

// SimulateTransaction simulates tx against current ledger state without
// submitting it. The resulting discriminated union is decoded in the order
// error, then restorePreamble, then success (§4.3, §9), since a response
// that carries an error may still happen to have other fields populated.
func (s *Server) SimulateTransaction(ctx context.Context, tx *BuiltTransaction) (*SimulationResult, error) {
	envelopeXDR, err := tx.Envelope.Base64()
	if err != nil {
		return nil, protocolViolationError("encoding transaction envelope", err)
	}

	var wire simulateWireResponse
	if err := s.call(ctx, methodSimulateTransaction, &wire, struct {
		Transaction string `json:"transaction"`
	}{envelopeXDR}); err != nil {
		return nil, err
	}

	result := &SimulationResult{
		LatestLedger:     wire.LatestLedger,
		DiagnosticEvents: mergeDiagnosticEvents(wire.Events, wire.TransactionEvents, wire.ContractEvents),
	}

	if wire.Error != "" {
		result.Outcome = SimulationError
		result.ErrorMessage = wire.Error
		return result, nil
	}

	if wire.Cost != nil {
		result.Cost = *wire.Cost
	}
	if wire.MinResourceFee != "" {
		fee, err := parseInt64(wire.MinResourceFee)
		if err != nil {
			return nil, protocolViolationError("decoding minResourceFee", err)
		}
		result.MinResourceFee = fee
	}
	if wire.TransactionData != "" {
		var data xdr.SorobanTransactionData
		if err := unmarshalBase64(wire.TransactionData, &data); err != nil {
			return nil, protocolViolationError("decoding simulation transactionData", err)
		}
		result.TransactionData = data
	}
	for _, sc := range wire.StateChanges {
		change := StateChange{Type: sc.Type}
		if err := unmarshalBase64(sc.Key, &change.Key); err != nil {
			return nil, protocolViolationError("decoding state change key", err)
		}
		if sc.Before != "" {
			var entry xdr.LedgerEntryData
			if err := unmarshalBase64(sc.Before, &entry); err != nil {
				return nil, protocolViolationError("decoding state change before-entry", err)
			}
			change.Before = &entry
		}
		if sc.After != "" {
			var entry xdr.LedgerEntryData
			if err := unmarshalBase64(sc.After, &entry); err != nil {
				return nil, protocolViolationError("decoding state change after-entry", err)
			}
			change.After = &entry
		}
		result.StateChanges = append(result.StateChanges, change)
	}

	if wire.RestorePreamble != nil {
		fee, err := parseInt64(wire.RestorePreamble.MinResourceFee)
		if err != nil {
			return nil, protocolViolationError("decoding restorePreamble.minResourceFee", err)
		}
		var data xdr.SorobanTransactionData
		if err := unmarshalBase64(wire.RestorePreamble.TransactionData, &data); err != nil {
			return nil, protocolViolationError("decoding restorePreamble.transactionData", err)
		}
		result.Outcome = SimulationRestore
		result.RestorePreamble = &RestorePreamble{MinResourceFee: fee, TransactionData: data}
	} else {
		result.Outcome = SimulationSuccess
	}

	for _, r := range wire.Results {
		var hf HostFunctionResult
		if err := unmarshalBase64(r.XDR, &hf.ReturnValue); err != nil {
			return nil, protocolViolationError("decoding simulation result value", err)
		}
		for _, a := range r.Auth {
			var entry xdr.SorobanAuthorizationEntry
			if err := unmarshalBase64(a, &entry); err != nil {
				return nil, protocolViolationError("decoding simulation auth entry", err)
			}
			hf.Auth = append(hf.Auth, entry)
		}
		result.Results = append(result.Results, hf)
	}
	return result, nil
}

// mergeDiagnosticEvents reconciles the older flat "events" field with the
// newer split "transactionEvents"/"contractEvents" fields (§9): whichever
// shape the server actually populated wins, oldest first.
func mergeDiagnosticEvents(flat, txEvents, contractEvents []string) []string {
	if len(flat) > 0 {
		return flat
	}
	merged := make([]string, 0, len(txEvents)+len(contractEvents))
	merged = append(merged, txEvents...)
	merged = append(merged, contractEvents...)
	return merged
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
