package stellarrpc_test

import (
	"testing"

	"github.com/stellar/go/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stellarrpc "github.com/sebamiro/stellarrpc"
)

func TestContract_GetAddress_RequiresFields(t *testing.T) {
	_, err := stellarrpc.NewContract().GetAddress()
	require.Error(t, err)
}

func TestContract_GetAddress_IsDeterministic(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K", "1")
	require.NoError(t, err)

	build := func() (*stellarrpc.Contract, error) {
		c := stellarrpc.NewContract().
			SourceAccount(authority).
			NetworkPassphrase(network.TestNetworkPassphrase).
			Salt("a1")
		_, err := c.GetAddress()
		return c, err
	}

	c1, err := build()
	require.NoError(t, err)
	addr1, err := c1.GetAddress()
	require.NoError(t, err)

	c2, err := build()
	require.NoError(t, err)
	addr2, err := c2.GetAddress()
	require.NoError(t, err)

	assert.Equal(t, addr1.ContractId, addr2.ContractId)
}

func TestContract_GetAddress_DifferentSaltDifferentAddress(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K", "1")
	require.NoError(t, err)

	addr1, err := stellarrpc.NewContract().
		SourceAccount(authority).
		NetworkPassphrase(network.TestNetworkPassphrase).
		Salt("a1").
		GetAddress()
	require.NoError(t, err)

	addr2, err := stellarrpc.NewContract().
		SourceAccount(authority).
		NetworkPassphrase(network.TestNetworkPassphrase).
		Salt("a2").
		GetAddress()
	require.NoError(t, err)

	assert.NotEqual(t, *addr1.ContractId, *addr2.ContractId)
}

func TestContract_GetCodeKey_RequiresWasmHash(t *testing.T) {
	_, err := stellarrpc.NewContract().GetCodeKey()
	require.Error(t, err)
}

func TestContract_GetCodeKey(t *testing.T) {
	key, err := stellarrpc.NewContract().Wasm([]byte("contract bytes")).GetCodeKey()
	require.NoError(t, err)
	assert.NotNil(t, key.ContractCode)
}

func TestContract_Invoke_RequiresFunction(t *testing.T) {
	authority, err := stellarrpc.NewAccountAuthority("GDDFXO5LE6JLE7E4HYN7EWBDJSKJ3NV7MAC4UN7LY7BUSD6JNPUAUK4K", "1")
	require.NoError(t, err)

	contract := stellarrpc.NewContract().
		SourceAccount(authority).
		NetworkPassphrase(network.TestNetworkPassphrase).
		Salt("a1")

	_, err = contract.Invoke().Symbol("world").Send(nil)
	require.Error(t, err)
}
