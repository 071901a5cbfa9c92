package stellarrpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/stellar/go/xdr"

	"github.com/sebamiro/stellarrpc/internal/rpc"
)

// JSON-RPC method names consumed by this module (§6, bit-exact).
const (
	methodGetHealth           = "getHealth"
	methodGetNetwork          = "getNetwork"
	methodGetLatestLedger     = "getLatestLedger"
	methodGetLedgerEntries    = "getLedgerEntries"
	methodGetTransaction      = "getTransaction"
	methodGetTransactions     = "getTransactions"
	methodGetLedgers          = "getLedgers"
	methodGetFeeStats         = "getFeeStats"
	methodGetVersionInfo      = "getVersionInfo"
	methodSimulateTransaction = "simulateTransaction"
	methodSendTransaction     = "sendTransaction"
	methodGetEvents           = "getEvents"
)

// Server is the facade over a single Soroban JSON-RPC endpoint (C9). It
// validates its own construction and routes every other call through the
// transport core (C1).
type Server struct {
	rpc       rpc.Client
	allowHTTP bool
}

type serverConfig struct {
	httpClient rpc.HTTP
	allowHTTP  bool
}

// ServerOption configures NewServer. This module is a library, not a
// daemon, so configuration is a small set of functional options rather than
// a file/env loader (see SPEC_FULL.md §2).
type ServerOption func(*serverConfig)

// WithHTTPClient injects a custom HTTP client (connection pooling, TLS,
// header injection beyond X-Client-Name/X-Client-Version are the caller's
// responsibility; this module treats http.Client as an external
// collaborator per §1).
func WithHTTPClient(client rpc.HTTP) ServerOption {
	return func(c *serverConfig) { c.httpClient = client }
}

// WithAllowHTTP opts into a plain-http (non-TLS) RPC endpoint. Without this,
// NewServer rejects an "http" scheme URL with CodeInvalidRPC (§4.7).
func WithAllowHTTP(allow bool) ServerOption {
	return func(c *serverConfig) { c.allowHTTP = allow }
}

// NewServer validates serverURL and returns a ready-to-use Server. The
// scheme must be http or https; http requires WithAllowHTTP(true); any
// other scheme, or a malformed URI, fails with CodeInvalidRPC (§4.7,
// Testable Property 6).
func NewServer(serverURL string, opts ...ServerOption) (*Server, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, invalidRPCError("invalid RPC URL", err)
	}
	switch u.Scheme {
	case "https":
		// always fine
	case "http":
		if !cfg.allowHTTP {
			return nil, invalidRPCError("insecure http RPC endpoint requires WithAllowHTTP(true)", nil)
		}
	default:
		return nil, invalidRPCError(fmt.Sprintf("RPC URL scheme must be http or https, got %q", u.Scheme), nil)
	}

	return &Server{
		rpc:       rpc.Client{URL: serverURL, HTTP: cfg.httpClient},
		allowHTTP: cfg.allowHTTP,
	}, nil
}

// GetHealthResult is the typed result of getHealth.
type GetHealthResult struct {
	Status                string `json:"status"`
	LatestLedger          int64  `json:"latestLedger"`
	OldestLedger          int64  `json:"oldestLedger"`
	LedgerRetentionWindow int64  `json:"ledgerRetentionWindow"`
}

// GetHealth reports the health of the connected RPC node.
func (s *Server) GetHealth(ctx context.Context) (*GetHealthResult, error) {
	var result GetHealthResult
	if err := s.call(ctx, methodGetHealth, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetNetworkResult is the typed result of getNetwork.
type GetNetworkResult struct {
	Passphrase      string `json:"passphrase"`
	FriendbotURL    string `json:"friendbotUrl,omitempty"`
	ProtocolVersion int64  `json:"protocolVersion"`
}

// GetNetwork reports the network passphrase, protocol version, and
// (on test networks) the friendbot URL.
func (s *Server) GetNetwork(ctx context.Context) (*GetNetworkResult, error) {
	var result GetNetworkResult
	if err := s.call(ctx, methodGetNetwork, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLatestLedgerResult is the typed result of getLatestLedger.
type GetLatestLedgerResult struct {
	ID              string `json:"id"`
	ProtocolVersion int64  `json:"protocolVersion"`
	Sequence        int64  `json:"sequence"`
}

// GetLatestLedger reports the most recent ledger the node has ingested.
func (s *Server) GetLatestLedger(ctx context.Context) (*GetLatestLedgerResult, error) {
	var result GetLatestLedgerResult
	if err := s.call(ctx, methodGetLatestLedger, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// FeeDistribution is the inclusion-fee percentile ladder returned by
// getFeeStats for either the classic or Soroban fee market.
type FeeDistribution struct {
	Max              int64 `json:"max,string"`
	Min              int64 `json:"min,string"`
	Mode             int64 `json:"mode,string"`
	P10              int64 `json:"p10,string"`
	P20              int64 `json:"p20,string"`
	P30              int64 `json:"p30,string"`
	P40              int64 `json:"p40,string"`
	P50              int64 `json:"p50,string"`
	P60              int64 `json:"p60,string"`
	P70              int64 `json:"p70,string"`
	P80              int64 `json:"p80,string"`
	P90              int64 `json:"p90,string"`
	P95              int64 `json:"p95,string"`
	P99              int64 `json:"p99,string"`
	TransactionCount int64 `json:"transactionCount,string"`
	LedgerCount      int32 `json:"ledgerCount"`
}

// GetFeeStatsResult is the typed result of getFeeStats.
type GetFeeStatsResult struct {
	SorobanInclusionFee FeeDistribution `json:"sorobanInclusionFee"`
	InclusionFee        FeeDistribution `json:"inclusionFee"`
	LatestLedger        int64           `json:"latestLedger"`
}

// GetFeeStats reports recent fee percentiles for both the classic and
// Soroban fee markets, useful for choosing a competitive base fee.
func (s *Server) GetFeeStats(ctx context.Context) (*GetFeeStatsResult, error) {
	var result GetFeeStatsResult
	if err := s.call(ctx, methodGetFeeStats, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetVersionInfoResult is the typed result of getVersionInfo.
type GetVersionInfoResult struct {
	Version            string `json:"version"`
	CommitHash         string `json:"commitHash"`
	BuildTimestamp     string `json:"buildTimestamp"`
	CaptiveCoreVersion string `json:"captiveCoreVersion"`
	ProtocolVersion    int64  `json:"protocolVersion"`
}

// GetVersionInfo reports the RPC node's own build and protocol version.
func (s *Server) GetVersionInfo(ctx context.Context) (*GetVersionInfoResult, error) {
	var result GetVersionInfoResult
	if err := s.call(ctx, methodGetVersionInfo, &result, nil); err != nil {
		return nil, err
	}
	return &result, nil
}

// LedgerEntryResult is a single entry as returned by getLedgerEntries.
type LedgerEntryResult struct {
	Key                   string `json:"key"`
	XDR                   string `json:"xdr"`
	LastModifiedLedgerSeq int64  `json:"lastModifiedLedgerSeq"`
	LiveUntilLedgerSeq    int64  `json:"liveUntilLedgerSeq,omitempty"`
}

// GetLedgerEntriesResult is the typed result of getLedgerEntries.
type GetLedgerEntriesResult struct {
	Entries      []LedgerEntryResult `json:"entries"`
	LatestLedger int64               `json:"latestLedger"`
}

// GetLedgerEntries fetches the current ledger entries named by keys, each a
// base64-XDR LedgerKey (§4.6: `{keys: [base64-xdr ...]}`).
func (s *Server) GetLedgerEntries(ctx context.Context, keys ...string) (*GetLedgerEntriesResult, error) {
	var result GetLedgerEntriesResult
	if err := s.call(ctx, methodGetLedgerEntries, &result, struct {
		Keys []string `json:"keys"`
	}{keys}); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetAccount translates accountID into a LedgerKey::Account and reads it
// through getLedgerEntries; an empty response fails with
// CodeAccountNotFound (§4.7, S4).
func (s *Server) GetAccount(ctx context.Context, accountID string) (*LedgerAccount, error) {
	id, err := xdr.AddressToAccountId(accountID)
	if err != nil {
		return nil, invalidInputError("invalid account id %q: %v", accountID, err)
	}
	key := xdr.LedgerKey{
		Type:    xdr.LedgerEntryTypeAccount,
		Account: &xdr.LedgerKeyAccount{AccountId: id},
	}
	base64Key, err := key.MarshalBinaryBase64()
	if err != nil {
		return nil, protocolViolationError("encoding account ledger key", err)
	}

	res, err := s.GetLedgerEntries(ctx, base64Key)
	if err != nil {
		return nil, err
	}
	if len(res.Entries) < 1 {
		return nil, newError(CodeAccountNotFound, "account "+accountID+" not found", nil)
	}

	var entry xdr.LedgerEntryData
	if err := unmarshalBase64(res.Entries[0].XDR, &entry); err != nil {
		return nil, protocolViolationError("decoding account ledger entry", err)
	}
	if entry.Account == nil {
		return nil, protocolViolationError("ledger entry is not an account entry", nil)
	}
	return ledgerAccountFromEntry(accountID, entry.Account)
}

// RequestAirdrop funds accountID via the network's friendbot (test networks
// only). It reads friendbotUrl from getNetwork, fails with CodeNoFriendbot
// if absent, and otherwise GETs `friendbotUrl?addr=<id>`, returning the
// funded account on success or CodeAccountNotFound if friendbot reports
// failure (§4.7).
func (s *Server) RequestAirdrop(ctx context.Context, accountID string) (*LedgerAccount, error) {
	network, err := s.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}
	if network.FriendbotURL == "" {
		return nil, newError(CodeNoFriendbot, "network has no friendbot", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, network.FriendbotURL+"?addr="+accountID, nil)
	if err != nil {
		return nil, transportError("building friendbot request", err)
	}
	client := s.rpc.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelledError(ctx.Err())
		}
		return nil, transportError("requesting airdrop", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(CodeAccountNotFound, fmt.Sprintf("friendbot reported failure: %s", resp.Status), nil)
	}

	return s.GetAccount(ctx, accountID)
}
