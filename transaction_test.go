package stellarrpc_test

import (
	"testing"

	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stellarrpc "github.com/sebamiro/stellarrpc"
)

func samplePaymentOp() *txnbuild.BumpSequence {
	return &txnbuild.BumpSequence{BumpTo: 1}
}

func TestTransactionBuilder_BuildConsumesSequence(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF", "100")
	require.NoError(t, err)

	builder := stellarrpc.NewTransactionBuilder(authority, network.TestNetworkPassphrase, nil)
	builder.AddOperation(samplePaymentOp())
	_, err = builder.SetTimeout(30)
	require.NoError(t, err)

	built, err := builder.Build()
	require.NoError(t, err)
	assert.EqualValues(t, 101, built.Sequence)
	assert.Equal(t, "101", authority.SequenceNumber())
}

func TestTransactionBuilder_BuildForSimulationDoesNotConsumeSequence(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF", "100")
	require.NoError(t, err)

	builder := stellarrpc.NewTransactionBuilder(authority, network.TestNetworkPassphrase, nil)
	builder.AddOperation(samplePaymentOp())
	_, err = builder.SetTimeout(30)
	require.NoError(t, err)

	built, err := builder.BuildForSimulation()
	require.NoError(t, err)
	assert.EqualValues(t, 101, built.Sequence)
	assert.Equal(t, "100", authority.SequenceNumber())

	again, err := builder.BuildForSimulation()
	require.NoError(t, err)
	assert.EqualValues(t, 101, again.Sequence)
	assert.Equal(t, "100", authority.SequenceNumber())
}

func TestTransactionBuilder_SetTimeoutConflictsWithExplicitBounds(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF", "100")
	require.NoError(t, err)

	explicit := txnbuild.NewTimeout(60)
	builder := stellarrpc.NewTransactionBuilder(authority, network.TestNetworkPassphrase, &explicit)

	_, err = builder.SetTimeout(30)
	require.Error(t, err)
	var rpcErr *stellarrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, stellarrpc.CodeInvalidInput, rpcErr.Code)
}

func TestTransactionBuilder_SetSorobanDataOnInvokeHostFunction(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF", "100")
	require.NoError(t, err)

	op := &txnbuild.InvokeHostFunction{
		HostFunction:  xdr.HostFunction{Type: xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm},
		SourceAccount: "GAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAWHF",
	}
	builder := stellarrpc.NewTransactionBuilder(authority, network.TestNetworkPassphrase, nil)
	builder.AddOperation(op)
	_, err = builder.SetTimeout(stellarrpc.InfiniteTimeout)
	require.NoError(t, err)

	builder.SetSorobanData(xdr.SorobanTransactionData{})
	assert.EqualValues(t, 1, op.Ext.V)
	require.NotNil(t, op.Ext.SorobanData)
}
