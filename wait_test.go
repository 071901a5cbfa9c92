package stellarrpc_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"

	stellarrpc "github.com/sebamiro/stellarrpc"
)

func TestServer_WaitTransaction_EventuallySucceeds(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		status := "NOT_FOUND"
		if calls >= 2 {
			status = stellarrpc.TransactionStatusSuccess
		}
		var req struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"status": status},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)

	s, err := stellarrpc.NewServer(ts.URL, stellarrpc.WithAllowHTTP(true))
	require.NoError(t, err)

	result, err := s.WaitTransaction(context.Background(), "deadbeef", 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, stellarrpc.TransactionStatusSuccess, result.Status)
	require.GreaterOrEqual(t, calls, 2)
}

func TestServer_WaitTransaction_TimesOut(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"status": "NOT_FOUND"},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)

	s, err := stellarrpc.NewServer(ts.URL, stellarrpc.WithAllowHTTP(true))
	require.NoError(t, err)

	_, err = s.WaitTransaction(context.Background(), "deadbeef", 1500*time.Millisecond)
	require.Error(t, err)
	var rpcErr *stellarrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, stellarrpc.CodeWaitTransactionTimeout, rpcErr.Code)
}

func TestServer_WaitTransaction_CancelledDistinctFromTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]interface{}{"status": "NOT_FOUND"},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(ts.Close)

	s, err := stellarrpc.NewServer(ts.URL, stellarrpc.WithAllowHTTP(true))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	_, err = s.WaitTransaction(ctx, "deadbeef", time.Minute)
	require.Error(t, err)
	var rpcErr *stellarrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, stellarrpc.CodeCancelled, rpcErr.Code)
}

func badSeqResultBase64(t *testing.T) string {
	t.Helper()
	opResults := []xdr.OperationResult{}
	result := xdr.TransactionResult{
		FeeCharged: 100,
		Result: xdr.TransactionResultResult{
			Code:    xdr.TransactionResultCodeTxBadSeq,
			Results: &opResults,
		},
	}
	b, err := result.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

func TestServer_SendTransaction_DecodesErrorResult(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"sendTransaction": map[string]interface{}{
			"status":         stellarrpc.SendTransactionStatusError,
			"hash":           "deadbeef",
			"latestLedger":   500,
			"errorResultXdr": badSeqResultBase64(t),
		},
	})

	result, err := s.SendTransaction(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Equal(t, stellarrpc.SendTransactionStatusError, result.Status)
	require.NotNil(t, result.ErrorResult)
	require.Equal(t, xdr.TransactionResultCodeTxBadSeq, result.ErrorResult.Result.Code)
}

func TestServer_SendTransaction_ErrorWithoutXDRIsProtocolViolation(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"sendTransaction": map[string]interface{}{
			"status":       stellarrpc.SendTransactionStatusError,
			"hash":         "deadbeef",
			"latestLedger": 500,
		},
	})

	_, err := s.SendTransaction(context.Background(), buildInvokeTx(t))
	require.Error(t, err)
	var rpcErr *stellarrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, stellarrpc.CodeProtocolViolation, rpcErr.Code)
}

func TestServer_SendTransaction_PendingHasNoErrorResult(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"sendTransaction": map[string]interface{}{
			"status":       stellarrpc.SendTransactionStatusPending,
			"hash":         "deadbeef",
			"latestLedger": 500,
		},
	})

	result, err := s.SendTransaction(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Nil(t, result.ErrorResult)
}
