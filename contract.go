package stellarrpc

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/txnbuild"
	"github.com/stellar/go/xdr"
)

// Contract is a convenience builder layered on top of Server/AccountAuthority/
// TransactionBuilder for the common install/deploy/invoke lifecycle of a
// Soroban contract. It owns no network state of its own beyond the address
// cache; every operation goes through the Server it's given.
type Contract struct {
	wasm      []byte
	wasmHash  [32]byte
	salt      [32]byte
	server    *Server
	authority *AccountAuthority
	networkPassphrase string
	kp        *keypair.Full
	address   *xdr.ScAddress
}

type (
	invokeBuilder struct {
		contract *Contract
		build    *invokeBuild
	}

	invokeBuild struct {
		function string
		params   []xdr.ScVal
	}
)

const (
	ErrorRequiredSource           = "source account authority is required"
	ErrorRequiredWasm             = "wasm is required"
	ErrorRequiredWasmHash         = "wasm hash is required"
	ErrorRequiredServer           = "server is required"
	ErrorRequiredKeyPair          = "key pair is required"
	ErrorRequiredSalt             = "salt is required"
	ErrorWasmCodeNeedsRestore     = "wasm code has no ttl, requires a restore"
	ErrorContractNeedsRestore     = "contract has no ttl, requires a restore"
	ErrorContractDataNeedsRestore = "contract data has no ttl, requires a restore"
	ErrorInvokeRequiresFunction   = "function is required"
)

// NewContract returns a Contract builder that can install, deploy and invoke.
//
// Example:
//
//	contract := stellarrpc.NewContract().
//		Wasm(contractWasm).
//		Server(server).
//		Salt(salt).
//		SourceAccount(authority).
//		NetworkPassphrase(passphrase).
//		KeyPair(pair)
func NewContract() *Contract {
	return &Contract{}
}

// Wasm sets the compiled wasm file of the contract.
func (c *Contract) Wasm(wasm []byte) *Contract {
	c.wasm = wasm
	c.wasmHash = sha256.Sum256(wasm)
	return c
}

// WasmHash sets the compiled wasm hash of the contract directly, for when
// the wasm itself is installed but not held locally.
func (c *Contract) WasmHash(wasmHash [32]byte) *Contract {
	c.wasmHash = wasmHash
	return c
}

// Salt hashes and sets the salt of the contract, which together with the
// source account determines its deterministic address.
func (c *Contract) Salt(salt string) *Contract {
	c.salt = sha256.Sum256([]byte(salt))
	return c
}

// Server sets the RPC server this contract talks to.
func (c *Contract) Server(server *Server) *Contract {
	c.server = server
	return c
}

// SourceAccount sets the account authority that will own the sequence
// numbers for every transaction this contract submits.
func (c *Contract) SourceAccount(authority *AccountAuthority) *Contract {
	c.authority = authority
	return c
}

// NetworkPassphrase sets the passphrase used both to derive this contract's
// deterministic address and to sign its transactions.
func (c *Contract) NetworkPassphrase(passphrase string) *Contract {
	c.networkPassphrase = passphrase
	return c
}

// KeyPair sets the key pair used to sign this contract's transactions.
func (c *Contract) KeyPair(kp *keypair.Full) *Contract {
	c.kp = kp
	return c
}

// Address sets the contract address directly, bypassing derivation from
// source account/salt.
func (c *Contract) Address(address xdr.ScAddress) *Contract {
	c.address = &address
	return c
}

func (c *Contract) getContractIDPreimage() (xdr.ContractIdPreimage, error) {
	sourceAccountID, err := xdr.AddressToAccountId(c.authority.AccountID())
	if err != nil {
		return xdr.ContractIdPreimage{}, invalidInputError("invalid source account id: %v", err)
	}
	return xdr.ContractIdPreimage{
		Type: xdr.ContractIdPreimageTypeContractIdPreimageFromAddress,
		FromAddress: &xdr.ContractIdPreimageFromAddress{
			Address: xdr.ScAddress{
				Type:      xdr.ScAddressTypeScAddressTypeAccount,
				AccountId: &sourceAccountID,
			},
			Salt: c.salt,
		},
	}, nil
}

// GetAddress returns the contract's address, deriving it from the source
// account and salt if not already set via Address.
//
//	Requires SourceAccount, NetworkPassphrase, Salt
func (c *Contract) GetAddress() (*xdr.ScAddress, error) {
	if c.address != nil {
		return c.address, nil
	}
	switch {
	case c.authority == nil:
		return nil, invalidInputError(ErrorRequiredSource)
	case c.networkPassphrase == "":
		return nil, invalidInputError("network passphrase is required")
	case c.salt == [32]byte{}:
		return nil, invalidInputError(ErrorRequiredSalt)
	}
	contractIDPreimage, err := c.getContractIDPreimage()
	if err != nil {
		return nil, err
	}
	contractID := &xdr.HashIdPreimageContractId{
		NetworkId:          sha256.Sum256([]byte(c.networkPassphrase)),
		ContractIdPreimage: contractIDPreimage,
	}
	preImage := xdr.HashIdPreimage{
		Type:       xdr.EnvelopeTypeEnvelopeTypeContractId,
		ContractId: contractID,
	}
	xdrPreImageBytes, err := preImage.MarshalBinary()
	if err != nil {
		return nil, protocolViolationError("encoding contract id preimage", err)
	}
	contractHash := xdr.Hash(sha256.Sum256(xdrPreImageBytes))
	c.address = &xdr.ScAddress{
		Type:       xdr.ScAddressTypeScAddressTypeContract,
		ContractId: &contractHash,
	}
	return c.address, nil
}

// GetCodeKey returns the LedgerKey of the contract's wasm code entry.
//
//	Requires wasm or WasmHash
func (c *Contract) GetCodeKey() (xdr.LedgerKey, error) {
	if c.wasmHash == [32]byte{} {
		return xdr.LedgerKey{}, invalidInputError(ErrorRequiredWasmHash)
	}
	return xdr.LedgerKey{
		Type:         xdr.LedgerEntryTypeContractCode,
		ContractCode: &xdr.LedgerKeyContractCode{Hash: c.wasmHash},
	}, nil
}

// GetFootprint returns the LedgerKey of the contract's instance entry.
//
//	Requires wasm or WasmHash, SourceAccount, NetworkPassphrase, Salt
func (c *Contract) GetFootprint() (xdr.LedgerKey, error) {
	if c.wasmHash == [32]byte{} {
		return xdr.LedgerKey{}, invalidInputError(ErrorRequiredWasmHash)
	}
	contractAddress, err := c.GetAddress()
	if err != nil {
		return xdr.LedgerKey{}, err
	}
	return xdr.LedgerKey{
		Type: xdr.LedgerEntryTypeContractData,
		ContractData: &xdr.LedgerKeyContractData{
			Contract:   *contractAddress,
			Key:        xdr.ScVal{Type: xdr.ScValTypeScvLedgerKeyContractInstance},
			Durability: xdr.ContractDataDurabilityPersistent,
		},
	}, nil
}

// IsCodeAlive reports whether the contract's wasm code ttl is still live.
//
//	Requires wasm or WasmHash, Server
func (c *Contract) IsCodeAlive(ctx context.Context) (bool, *GetLedgerEntriesResult, error) {
	if c.server == nil {
		return false, nil, invalidInputError(ErrorRequiredServer)
	}
	key, err := c.GetCodeKey()
	if err != nil {
		return false, nil, err
	}
	base64Key, err := key.MarshalBinaryBase64()
	if err != nil {
		return false, nil, protocolViolationError("encoding code ledger key", err)
	}
	res, err := c.server.GetLedgerEntries(ctx, base64Key)
	if err != nil {
		return false, nil, err
	}
	if len(res.Entries) == 0 {
		return false, res, nil
	}
	return res.Entries[0].LiveUntilLedgerSeq >= res.LatestLedger, res, nil
}

// IsInstanceAlive reports whether the contract instance's ttl is still live.
//
//	Requires wasm or WasmHash, SourceAccount, NetworkPassphrase, Salt
func (c *Contract) IsInstanceAlive(ctx context.Context) (bool, *GetLedgerEntriesResult, error) {
	key, err := c.GetFootprint()
	if err != nil {
		return false, nil, err
	}
	base64Key, err := key.MarshalBinaryBase64()
	if err != nil {
		return false, nil, protocolViolationError("encoding instance ledger key", err)
	}
	res, err := c.server.GetLedgerEntries(ctx, base64Key)
	if err != nil {
		return false, nil, err
	}
	if len(res.Entries) == 0 {
		return false, res, nil
	}
	return res.Entries[0].LiveUntilLedgerSeq >= res.LatestLedger, res, nil
}

// IsAlive reports whether both the contract code and instance are live.
func (c *Contract) IsAlive(ctx context.Context) (bool, error) {
	code, _, err := c.IsCodeAlive(ctx)
	if err != nil {
		return false, err
	}
	instance, _, err := c.IsInstanceAlive(ctx)
	if err != nil {
		return false, err
	}
	return code && instance, nil
}

// Install submits the transaction that uploads the compiled contract wasm.
// It returns as soon as the transaction is accepted for processing; the
// caller is responsible for following up with WaitTransaction.
//
//	Requires wasm, Server, SourceAccount, NetworkPassphrase, KeyPair
func (c *Contract) Install(ctx context.Context) (*SendTransactionResult, error) {
	switch {
	case c.server == nil:
		return nil, invalidInputError(ErrorRequiredServer)
	case c.authority == nil:
		return nil, invalidInputError(ErrorRequiredSource)
	case c.kp == nil:
		return nil, invalidInputError(ErrorRequiredKeyPair)
	}
	installOp := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeUploadContractWasm,
			Wasm: &c.wasm,
		},
		SourceAccount: c.authority.AccountID(),
	}
	return c.prepareSignSubmit(ctx, installOp)
}

// Deploy submits the transaction that creates a new instance of the
// installed wasm code. It fails with CodeInvalidInput if the wasm code has
// no ttl left to build from.
//
//	Requires wasm, Server, SourceAccount, NetworkPassphrase, KeyPair
func (c *Contract) Deploy(ctx context.Context) (*SendTransactionResult, error) {
	switch {
	case c.server == nil:
		return nil, invalidInputError(ErrorRequiredServer)
	case c.authority == nil:
		return nil, invalidInputError(ErrorRequiredSource)
	case c.kp == nil:
		return nil, invalidInputError(ErrorRequiredKeyPair)
	}
	isCodeAlive, _, err := c.IsCodeAlive(ctx)
	if err != nil {
		return nil, err
	}
	if !isCodeAlive {
		return nil, invalidInputError(ErrorWasmCodeNeedsRestore)
	}

	contractIDPreimage, err := c.getContractIDPreimage()
	if err != nil {
		return nil, err
	}
	wasmHash := xdr.Hash(c.wasmHash)
	createOp := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeCreateContract,
			CreateContract: &xdr.CreateContractArgs{
				ContractIdPreimage: contractIDPreimage,
				Executable: xdr.ContractExecutable{
					Type:     xdr.ContractExecutableTypeContractExecutableWasm,
					WasmHash: &wasmHash,
				},
			},
		},
		SourceAccount: c.authority.AccountID(),
	}
	return c.prepareSignSubmit(ctx, createOp)
}

// Invoke starts building an invocation of one of the contract's functions.
//
//	Example:
//	 res, err := contract.Invoke().Function("hello").Symbol("world").Send(ctx)
func (c *Contract) Invoke() *invokeBuilder {
	return &invokeBuilder{contract: c, build: &invokeBuild{}}
}

// Function sets the name of the function to invoke.
func (b *invokeBuilder) Function(function string) *invokeBuilder {
	b.build.function = function
	return b
}

// Params appends a list of already-built xdr.ScVal arguments.
func (b *invokeBuilder) Params(params ...xdr.ScVal) *invokeBuilder {
	b.build.params = append(b.build.params, params...)
	return b
}

// Bool appends a bool argument.
func (b *invokeBuilder) Bool(v bool) *invokeBuilder {
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvBool, B: &v})
	return b
}

// Int32 appends an int32 argument.
func (b *invokeBuilder) Int32(v int32) *invokeBuilder {
	i := xdr.Int32(v)
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvI32, I32: &i})
	return b
}

// Int64 appends an int64 argument.
func (b *invokeBuilder) Int64(v int64) *invokeBuilder {
	i := xdr.Int64(v)
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvI64, I64: &i})
	return b
}

// Uint32 appends a uint32 argument.
func (b *invokeBuilder) Uint32(v uint32) *invokeBuilder {
	u := xdr.Uint32(v)
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvU32, U32: &u})
	return b
}

// Uint64 appends a uint64 argument.
func (b *invokeBuilder) Uint64(v uint64) *invokeBuilder {
	u := xdr.Uint64(v)
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvU64, U64: &u})
	return b
}

// String appends a string argument.
func (b *invokeBuilder) String(v string) *invokeBuilder {
	s := xdr.ScString(v)
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvString, Str: &s})
	return b
}

// Symbol appends a symbol argument.
func (b *invokeBuilder) Symbol(v string) *invokeBuilder {
	s := xdr.ScSymbol(v)
	b.build.params = append(b.build.params, xdr.ScVal{Type: xdr.ScValTypeScvSymbol, Sym: &s})
	return b
}

// Send submits the invocation. It fails with CodeInvalidInput if the
// contract's code or instance has no ttl left; use RestoreAndSend to
// restore automatically instead.
//
//	Requires wasm, Server, SourceAccount, NetworkPassphrase, KeyPair, Salt, Function
func (b *invokeBuilder) Send(ctx context.Context) (*SendTransactionResult, error) {
	if b.build.function == "" {
		return nil, invalidInputError(ErrorInvokeRequiresFunction)
	}
	isAlive, err := b.contract.IsAlive(ctx)
	if err != nil {
		return nil, err
	}
	if !isAlive {
		return nil, invalidInputError(ErrorContractNeedsRestore)
	}
	return b.contract.invoke(ctx, b.build, false)
}

// RestoreAndSend restores the contract's footprint first if its ttl has
// expired, then submits the invocation.
//
//	Requires wasm, Server, SourceAccount, NetworkPassphrase, KeyPair, Salt, Function
func (b *invokeBuilder) RestoreAndSend(ctx context.Context) (*SendTransactionResult, error) {
	if b.build.function == "" {
		return nil, invalidInputError(ErrorInvokeRequiresFunction)
	}
	isAlive, err := b.contract.IsAlive(ctx)
	if err != nil {
		return nil, err
	}
	if !isAlive {
		res, err := b.contract.Restore(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := b.contract.server.WaitTransaction(ctx, res.Hash, 30*time.Second); err != nil {
			return nil, err
		}
	}
	return b.contract.invoke(ctx, b.build, true)
}

func (c *Contract) invoke(ctx context.Context, build *invokeBuild, restore bool) (*SendTransactionResult, error) {
	contractAddress, err := c.GetAddress()
	if err != nil {
		return nil, err
	}
	op := &txnbuild.InvokeHostFunction{
		HostFunction: xdr.HostFunction{
			Type: xdr.HostFunctionTypeHostFunctionTypeInvokeContract,
			InvokeContract: &xdr.InvokeContractArgs{
				ContractAddress: *contractAddress,
				FunctionName:    xdr.ScSymbol(build.function),
				Args:            xdr.ScVec(build.params),
			},
		},
		SourceAccount: c.authority.AccountID(),
	}

	built, err := c.newBuilder(op).Build()
	if err != nil {
		return nil, err
	}
	prepared, err := c.server.Prepare(ctx, built)
	if err != nil {
		return nil, err
	}
	if prepared.Outcome == PrepareRestorationRequired {
		if !restore {
			return nil, invalidInputError(ErrorContractDataNeedsRestore)
		}
		res, err := c.Restore(ctx)
		if err != nil {
			return nil, err
		}
		if _, err := c.server.WaitTransaction(ctx, res.Hash, 30*time.Second); err != nil {
			return nil, err
		}
		rebuilt, err := c.newBuilder(op).Build()
		if err != nil {
			return nil, err
		}
		prepared, err = c.server.Prepare(ctx, rebuilt)
		if err != nil {
			return nil, err
		}
	}
	return c.signAndSend(ctx, prepared.Transaction)
}

func (c *Contract) prepareSignSubmit(ctx context.Context, op txnbuild.Operation) (*SendTransactionResult, error) {
	built, err := c.newBuilder(op).Build()
	if err != nil {
		return nil, err
	}
	prepared, err := c.server.Prepare(ctx, built)
	if err != nil {
		return nil, err
	}
	if prepared.Outcome == PrepareRestorationRequired {
		return nil, invalidInputError(ErrorContractDataNeedsRestore)
	}
	return c.signAndSend(ctx, prepared.Transaction)
}

// Restore restores the contract's wasm code and instance entries.
// Docs: https://developers.stellar.org/docs/learn/encyclopedia/storage/state-archival
//
//	Requires wasm, Server, SourceAccount, NetworkPassphrase, KeyPair, Salt
func (c *Contract) Restore(ctx context.Context) (*SendTransactionResult, error) {
	codeKey, err := c.GetCodeKey()
	if err != nil {
		return nil, err
	}
	instanceKey, err := c.GetFootprint()
	if err != nil {
		return nil, err
	}
	op := &txnbuild.RestoreFootprint{SourceAccount: c.authority.AccountID()}

	builder := c.newBuilder(op)
	builder.SetSorobanData(xdr.SorobanTransactionData{
		Resources: xdr.SorobanResources{
			Footprint: xdr.LedgerFootprint{ReadWrite: []xdr.LedgerKey{codeKey, instanceKey}},
		},
	})
	built, err := builder.Build()
	if err != nil {
		return nil, err
	}
	prepared, err := c.server.Prepare(ctx, built)
	if err != nil {
		return nil, err
	}
	if prepared.Outcome == PrepareRestorationRequired {
		return nil, invalidInputError("restore transaction itself requires a restore, this should not happen")
	}
	return c.signAndSend(ctx, prepared.Transaction)
}

func (c *Contract) newBuilder(op txnbuild.Operation) *TransactionBuilder {
	builder := NewTransactionBuilder(c.authority, c.networkPassphrase, nil)
	builder.AddOperation(op)
	_, _ = builder.SetTimeout(30)
	return builder
}

func (c *Contract) signAndSend(ctx context.Context, tx *BuiltTransaction) (*SendTransactionResult, error) {
	if err := tx.Sign(c.networkPassphrase, c.kp); err != nil {
		return nil, err
	}
	return c.server.SendTransaction(ctx, tx)
}
