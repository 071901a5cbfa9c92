package stellarrpc

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stellar/go/xdr"
)

// SendTransaction status values (§3 "Send Status").
const (
	SendTransactionStatusPending       = "PENDING"
	SendTransactionStatusDuplicate     = "DUPLICATE"
	SendTransactionStatusTryAgainLater = "TRY_AGAIN_LATER"
	SendTransactionStatusError         = "ERROR"
)

// SendTransactionResult is the typed result of sendTransaction. ErrorResult
// is populated only when Status == SendTransactionStatusError, decoded from
// ErrorResultXDR (§4.5).
type SendTransactionResult struct {
	Status                string   `json:"status"`
	Hash                  string   `json:"hash"`
	LatestLedger          int64    `json:"latestLedger"`
	LatestLedgerCloseTime int64    `json:"latestLedgerCloseTime,string"`
	ErrorResultXDR        string   `json:"errorResultXdr,omitempty"`
	DiagnosticEventsXDR   []string `json:"diagnosticEventsXdr,omitempty"`

	ErrorResult *xdr.TransactionResult
}

// SendTransaction submits a signed transaction envelope for inclusion and
// returns immediately with its initial (PENDING/ERROR/DUPLICATE/
// TRY_AGAIN_LATER) status; it does not wait for the transaction to be
// confirmed (§4.5, use WaitTransaction for that). When Status is ERROR, the
// server-attached errorResultXdr is decoded into ErrorResult; a response
// that reports ERROR without an errorResultXdr fails with
// CodeProtocolViolation rather than being returned as if it had succeeded
// (§9, source ambiguity (b)).
func (s *Server) SendTransaction(ctx context.Context, tx *BuiltTransaction) (*SendTransactionResult, error) {
	envelopeXDR, err := tx.Envelope.Base64()
	if err != nil {
		return nil, protocolViolationError("encoding transaction envelope", err)
	}
	var result SendTransactionResult
	if err := s.call(ctx, methodSendTransaction, &result, struct {
		Transaction string `json:"transaction"`
	}{envelopeXDR}); err != nil {
		return nil, err
	}

	if result.Status == SendTransactionStatusError {
		if result.ErrorResultXDR == "" {
			return nil, protocolViolationError("sendTransaction status ERROR without errorResultXdr", nil)
		}
		var errResult xdr.TransactionResult
		if err := unmarshalBase64(result.ErrorResultXDR, &errResult); err != nil {
			return nil, protocolViolationError("decoding sendTransaction errorResultXdr", err)
		}
		result.ErrorResult = &errResult
	}

	return &result, nil
}

// GetTransactionResult is the typed result of getTransaction, covering all
// three states the original implementation models as a discriminated union
// (SUCCESS, FAILED, NOT_FOUND) flattened into one struct with a Status tag.
type GetTransactionResult struct {
	Status                string `json:"status"`
	LatestLedger          int64  `json:"latestLedger"`
	LatestLedgerCloseTime int64  `json:"latestLedgerCloseTime,string"`
	OldestLedger          int64  `json:"oldestLedger"`
	OldestLedgerCloseTime int64  `json:"oldestLedgerCloseTime,string"`

	Ledger          int64  `json:"ledger,omitempty"`
	CreatedAt       int64  `json:"createdAt,omitempty,string"`
	ApplicationOrder int32 `json:"applicationOrder,omitempty"`
	FeeBump         bool   `json:"feeBump,omitempty"`
	EnvelopeXDR     string `json:"envelopeXdr,omitempty"`
	ResultXDR       string `json:"resultXdr,omitempty"`
	ResultMetaXDR   string `json:"resultMetaXdr,omitempty"`
}

// TransactionStatus values for GetTransactionResult.Status (§4.5).
const (
	TransactionStatusSuccess  = "SUCCESS"
	TransactionStatusFailed   = "FAILED"
	TransactionStatusNotFound = "NOT_FOUND"
)

// GetTransaction reports the current status of a previously submitted
// transaction by hash.
func (s *Server) GetTransaction(ctx context.Context, hash string) (*GetTransactionResult, error) {
	var result GetTransactionResult
	if err := s.call(ctx, methodGetTransaction, &result, struct {
		Hash string `json:"hash"`
	}{hash}); err != nil {
		return nil, err
	}
	return &result, nil
}

// WaitTransaction polls getTransaction for hash until it leaves NOT_FOUND,
// ctx is cancelled, or maxWait elapses (§4.5, §5, Testable Property 5,
// scenario S5). The poll interval starts at one second and doubles on each
// attempt up to a 60-second cap, mirroring the original implementation's
// backoff; on timeout the last observed response is returned alongside a
// CodeWaitTransactionTimeout error so the caller isn't left with nothing.
func (s *Server) WaitTransaction(ctx context.Context, hash string, maxWait time.Duration) (*GetTransactionResult, error) {
	start := time.Now()
	deadlineCtx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 60 * time.Second
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0 // bounded by deadlineCtx instead, so we control the timeout error ourselves
	bo.Reset()            // restart from the 1s InitialInterval set above

	var last *GetTransactionResult

	// classify distinguishes deadlineCtx's own timer expiring (→ Timeout)
	// from the caller's ctx being cancelled out from under it (→
	// Cancelled), since both end up observed as deadlineCtx.Err() != nil.
	classify := func() (*GetTransactionResult, error) {
		if ctx.Err() != nil {
			return last, cancelledError(ctx.Err())
		}
		return last, waitTimeoutError(maxWait, time.Since(start))
	}

	for {
		result, err := s.GetTransaction(deadlineCtx, hash)
		if err != nil {
			if deadlineCtx.Err() != nil {
				return classify()
			}
			return nil, err
		}
		last = result
		if result.Status != TransactionStatusNotFound {
			return result, nil
		}

		wait := bo.NextBackOff()
		timer := time.NewTimer(wait)
		select {
		case <-deadlineCtx.Done():
			timer.Stop()
			return classify()
		case <-timer.C:
		}
	}
}
