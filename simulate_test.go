package stellarrpc_test

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/require"

	stellarrpc "github.com/sebamiro/stellarrpc"
)

func buildInvokeTx(t *testing.T) *stellarrpc.BuiltTransaction {
	t.Helper()
	authority, err := stellarrpc.NewAccountAuthority("GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF", "100")
	require.NoError(t, err)

	op := &txnbuild.InvokeHostFunction{
		HostFunction:  xdr.HostFunction{Type: xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm, Wasm: &[]byte{1, 2, 3}},
		SourceAccount: "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF",
	}
	builder := stellarrpc.NewTransactionBuilder(authority, network.TestNetworkPassphrase, nil)
	builder.AddOperation(op)
	_, err = builder.SetTimeout(stellarrpc.InfiniteTimeout)
	require.NoError(t, err)

	built, err := builder.Build()
	require.NoError(t, err)
	return built
}

func sorobanDataBase64(t *testing.T) string {
	t.Helper()
	data := xdr.SorobanTransactionData{}
	b, err := data.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(b)
}

func TestSimulateTransaction_Error(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"simulateTransaction": map[string]interface{}{
			"error":        "HostError: contract trapped",
			"latestLedger": 500,
		},
	})

	res, err := s.SimulateTransaction(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Equal(t, stellarrpc.SimulationError, res.Outcome)
	require.Equal(t, "HostError: contract trapped", res.ErrorMessage)
}

func TestSimulateTransaction_RestoreRequired(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"simulateTransaction": map[string]interface{}{
			"latestLedger": 500,
			"restorePreamble": map[string]interface{}{
				"minResourceFee":  "12345",
				"transactionData": sorobanDataBase64(t),
			},
		},
	})

	res, err := s.SimulateTransaction(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Equal(t, stellarrpc.SimulationRestore, res.Outcome)
	require.NotNil(t, res.RestorePreamble)
	require.EqualValues(t, 12345, res.RestorePreamble.MinResourceFee)
}

func TestSimulateTransaction_Success(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"simulateTransaction": map[string]interface{}{
			"latestLedger":    500,
			"minResourceFee":  "100",
			"transactionData": sorobanDataBase64(t),
			"cost":            map[string]interface{}{"cpuInsns": "1000", "memBytes": "2000"},
		},
	})

	res, err := s.SimulateTransaction(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Equal(t, stellarrpc.SimulationSuccess, res.Outcome)
	require.EqualValues(t, 100, res.MinResourceFee)
	require.EqualValues(t, 1000, res.Cost.CPUInsns)
}
