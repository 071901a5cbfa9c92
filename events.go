package stellarrpc

import (
	"context"
)

// EventType filters getEvents by event category (§4.6).
type EventType string

const (
	EventTypeContract EventType = "contract"
	EventTypeSystem   EventType = "system"
	EventTypeDiagnostic EventType = "diagnostic"
)

const (
	maxEventContractIDs = 5
	maxEventTopicPositions = 4
)

// EventFilter narrows a getEvents call to a set of event types, contract
// ids (at most 5), and topic patterns — each pattern an ordered list of up
// to 4 positions, each position either a specific base64-XDR ScVal or a
// wildcard (§4.6, §6: "Position count ≤ 4" is per pattern, not a cap on how
// many patterns a filter may carry). Overflowing the contract-id or
// per-pattern position limit fails fast with CodeInvalidInput rather than
// being sent to the server, matching scenario S6's intent even though the
// wire-level overflow the server itself reports comes back as a plain
// RPCError.
type EventFilter struct {
	eventTypes  []EventType
	contractIDs []string
	topics      [][]string
}

// NewEventFilter returns an empty filter ready for Type/ContractID/Topic.
func NewEventFilter() *EventFilter {
	return &EventFilter{}
}

// WithType adds an event type to the filter.
func (f *EventFilter) WithType(t EventType) *EventFilter {
	f.eventTypes = append(f.eventTypes, t)
	return f
}

// WithContractID adds a contract id to the filter. It fails with
// CodeInvalidInput once more than 5 contract ids would be configured
// (§4.6, S6).
func (f *EventFilter) WithContractID(contractID string) (*EventFilter, error) {
	if len(f.contractIDs) >= maxEventContractIDs {
		return nil, invalidInputError("event filter supports at most %d contract ids", maxEventContractIDs)
	}
	f.contractIDs = append(f.contractIDs, contractID)
	return f, nil
}

// WithTopic adds one topic pattern to the filter: an ordered list of
// base64-XDR ScVal segments (or "*" for wildcard), one per topic position,
// at most 4 positions per pattern (§4.6, §6). The number of patterns a
// filter may carry is not limited here; the wire shape is
// `topics:[[pos0,pos1,...],...]`, an array of independent patterns.
func (f *EventFilter) WithTopic(segments ...string) (*EventFilter, error) {
	if len(segments) > maxEventTopicPositions {
		return nil, invalidInputError("topic pattern supports at most %d positions, got %d", maxEventTopicPositions, len(segments))
	}
	f.topics = append(f.topics, segments)
	return f, nil
}

type eventFilterWire struct {
	Type        EventType  `json:"type,omitempty"`
	ContractIDs []string   `json:"contractIds,omitempty"`
	Topics      [][]string `json:"topics,omitempty"`
}

func (f *EventFilter) toWire() []eventFilterWire {
	if f == nil {
		return nil
	}
	if len(f.eventTypes) == 0 {
		return []eventFilterWire{{ContractIDs: f.contractIDs, Topics: f.topics}}
	}
	wire := make([]eventFilterWire, 0, len(f.eventTypes))
	for _, t := range f.eventTypes {
		wire = append(wire, eventFilterWire{Type: t, ContractIDs: f.contractIDs, Topics: f.topics})
	}
	return wire
}

// Pagination selects a result page for getEvents/getTransactions/getLedgers:
// either a starting ledger (first page) or a cursor returned by the
// previous page, never both (§4.6).
type Pagination struct {
	Cursor     string
	Limit      int32
	StartLedger int64
}

type paginationWire struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int32  `json:"limit,omitempty"`
}

func (p *Pagination) toWire() *paginationWire {
	if p == nil || p.Cursor == "" {
		return nil
	}
	return &paginationWire{Cursor: p.Cursor, Limit: p.Limit}
}

// EventResult is a single entry of getEvents.
type EventResult struct {
	Type                     string   `json:"type"`
	Ledger                   int64    `json:"ledger"`
	LedgerClosedAt           string   `json:"ledgerClosedAt"`
	ContractID               string   `json:"contractId"`
	ID                       string   `json:"id"`
	PagingToken              string   `json:"pagingToken"`
	TopicXDR                 []string `json:"topic"`
	ValueXDR                 string   `json:"value"`
	InSuccessfulContractCall bool     `json:"inSuccessfulContractCall"`
	TransactionHash          string   `json:"txHash"`
}

// GetEventsResult is the typed result of getEvents.
type GetEventsResult struct {
	Events       []EventResult `json:"events"`
	LatestLedger int64         `json:"latestLedger"`
	Cursor       string        `json:"cursor,omitempty"`
}

// GetEvents returns contract/system/diagnostic events matching filter,
// starting at pagination's cursor or ledger (§4.6).
func (s *Server) GetEvents(ctx context.Context, pagination Pagination, filter *EventFilter) (*GetEventsResult, error) {
	var result GetEventsResult
	req := struct {
		StartLedger int64             `json:"startLedger,omitempty"`
		Filters     []eventFilterWire `json:"filters,omitempty"`
		Pagination  *paginationWire   `json:"pagination,omitempty"`
	}{
		Filters:    filter.toWire(),
		Pagination: pagination.toWire(),
	}
	if req.Pagination == nil {
		req.StartLedger = pagination.StartLedger
	}
	if err := s.call(ctx, methodGetEvents, &result, req); err != nil {
		return nil, err
	}
	return &result, nil
}

// LedgerTransactionResult is a single entry of getTransactions.
type LedgerTransactionResult struct {
	Status          string `json:"status"`
	ApplicationOrder int32 `json:"applicationOrder"`
	FeeBump         bool   `json:"feeBump"`
	EnvelopeXDR     string `json:"envelopeXdr"`
	ResultXDR       string `json:"resultXdr"`
	ResultMetaXDR   string `json:"resultMetaXdr"`
	Ledger          int64  `json:"ledger"`
	LedgerCloseTime int64  `json:"createdAt,string"`
}

// GetTransactionsResult is the typed result of getTransactions.
type GetTransactionsResult struct {
	Transactions          []LedgerTransactionResult `json:"transactions"`
	LatestLedger          int64                     `json:"latestLedger"`
	LatestLedgerCloseTime int64                     `json:"latestLedgerCloseTime"`
	OldestLedger          int64                     `json:"oldestLedger"`
	OldestLedgerCloseTime int64                     `json:"oldestLedgerCloseTime"`
	Cursor                string                    `json:"cursor,omitempty"`
}

// GetTransactions returns every transaction in a range of ledgers, paginated
// by cursor or starting ledger.
func (s *Server) GetTransactions(ctx context.Context, pagination Pagination) (*GetTransactionsResult, error) {
	var result GetTransactionsResult
	req := struct {
		StartLedger int64           `json:"startLedger,omitempty"`
		Pagination  *paginationWire `json:"pagination,omitempty"`
	}{Pagination: pagination.toWire()}
	if req.Pagination == nil {
		req.StartLedger = pagination.StartLedger
	}
	if err := s.call(ctx, methodGetTransactions, &result, req); err != nil {
		return nil, err
	}
	return &result, nil
}

// LedgerResult is a single entry of getLedgers.
type LedgerResult struct {
	Hash            string `json:"hash"`
	Sequence        int64  `json:"sequence"`
	LedgerCloseTime int64  `json:"ledgerCloseTime,string"`
	HeaderXDR       string `json:"headerXdr"`
	MetadataXDR     string `json:"metadataXdr"`
}

// GetLedgersResult is the typed result of getLedgers.
type GetLedgersResult struct {
	Ledgers               []LedgerResult `json:"ledgers"`
	LatestLedger          int64          `json:"latestLedger"`
	LatestLedgerCloseTime int64          `json:"latestLedgerCloseTime"`
	OldestLedger          int64          `json:"oldestLedger"`
	OldestLedgerCloseTime int64          `json:"oldestLedgerCloseTime"`
	Cursor                string         `json:"cursor,omitempty"`
}

// GetLedgers returns a page of ledger headers/metadata, paginated by cursor
// or starting ledger.
func (s *Server) GetLedgers(ctx context.Context, pagination Pagination) (*GetLedgersResult, error) {
	var result GetLedgersResult
	req := struct {
		StartLedger int64           `json:"startLedger,omitempty"`
		Pagination  *paginationWire `json:"pagination,omitempty"`
	}{Pagination: pagination.toWire()}
	if req.Pagination == nil {
		req.StartLedger = pagination.StartLedger
	}
	if err := s.call(ctx, methodGetLedgers, &result, req); err != nil {
		return nil, err
	}
	return &result, nil
}
