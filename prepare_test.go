package stellarrpc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	stellarrpc "github.com/sebamiro/stellarrpc"
)

func TestServer_Prepare_Success(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"simulateTransaction": map[string]interface{}{
			"latestLedger":    500,
			"minResourceFee":  "100",
			"transactionData": sorobanDataBase64(t),
		},
	})

	result, err := s.Prepare(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Equal(t, stellarrpc.PrepareReady, result.Outcome)
	require.NotNil(t, result.Transaction)
	require.EqualValues(t, 100+100, result.Transaction.BaseFee) // MinBaseFee (100) + minResourceFee (100)
}

func TestServer_Prepare_RestorationRequired(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"simulateTransaction": map[string]interface{}{
			"latestLedger": 500,
			"restorePreamble": map[string]interface{}{
				"minResourceFee":  "777",
				"transactionData": sorobanDataBase64(t),
			},
		},
	})

	result, err := s.Prepare(context.Background(), buildInvokeTx(t))
	require.NoError(t, err)
	require.Equal(t, stellarrpc.PrepareRestorationRequired, result.Outcome)
	require.NotNil(t, result.Restoration)
	require.EqualValues(t, 777, result.Restoration.MinResourceFee)
}

func TestServer_Prepare_SimulationError(t *testing.T) {
	s := newTestServer(t, rpcHandler{
		"simulateTransaction": map[string]interface{}{
			"error":        "trapped",
			"latestLedger": 500,
		},
	})

	_, err := s.Prepare(context.Background(), buildInvokeTx(t))
	require.Error(t, err)
	var rpcErr *stellarrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	require.Equal(t, stellarrpc.CodeSimulationFailed, rpcErr.Code)
}
