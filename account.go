package stellarrpc

import (
	"math"
	"strconv"
	"sync"

	"github.com/stellar/go/xdr"
)

// AccountAuthority owns an account's current sequence number (§3, §4.1). It
// is the only mutable shared resource this module defines; every mutation
// goes through mu, and the critical section is one integer increment plus
// one copy, matching §9's "avoid exposing direct references" guidance.
//
// A TransactionBuilder holds a non-owning pointer to an AccountAuthority; it
// never copies the authority itself, only short-lived snapshots of its
// current sequence (see TransactionBuilder.Build).
type AccountAuthority struct {
	mu        sync.Mutex
	accountID string
	sequence  int64
}

// NewAccountAuthority parses sequence as a base-10, non-negative 63-bit
// integer and returns an authority seeded at that value. Any other input
// fails with CodeInvalidInput (§4.1).
func NewAccountAuthority(accountID, sequence string) (*AccountAuthority, error) {
	if accountID == "" {
		return nil, invalidInputError("account id must not be empty")
	}
	seq, err := strconv.ParseInt(sequence, 10, 64)
	if err != nil || seq < 0 {
		return nil, invalidInputError("sequence %q must parse as a non-negative 63-bit integer", sequence)
	}
	return &AccountAuthority{accountID: accountID, sequence: seq}, nil
}

// AccountID returns the strkey this authority was created with. It never
// changes and needs no locking.
func (a *AccountAuthority) AccountID() string {
	return a.accountID
}

// SequenceNumber returns the current sequence as a decimal string without
// mutating it. Any number of calls leave the authority unchanged
// (Testable Property 2).
func (a *AccountAuthority) SequenceNumber() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return strconv.FormatInt(a.sequence, 10)
}

func (a *AccountAuthority) sequenceValue() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sequence
}

// IncrementSequenceAndReturn atomically advances the sequence by one and
// returns the new value as a decimal string. Across any interleaving of
// concurrent callers, the values handed out form the strictly increasing
// contiguous run s0+1, s0+2, ..., sN with no repeats (Testable Property 1),
// because the entire read-modify-write happens inside mu.
func (a *AccountAuthority) IncrementSequenceAndReturn() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sequence == math.MaxInt64 {
		return "", invalidInputError("sequence cannot be increased, it already reached MaxInt64 (%d)", int64(math.MaxInt64))
	}
	a.sequence++
	return strconv.FormatInt(a.sequence, 10), nil
}

// LedgerAccount is the decoded form of a ledger's AccountEntry, as returned
// by Server.GetAccount. Unlike AccountAuthority it is a plain value: a
// snapshot of ledger state at the moment it was fetched, not a live,
// mutation-guarded counter.
type LedgerAccount struct {
	AccountID             string
	Sequence              int64
	SubentryCount         int32
	InflationDestination  string
	HomeDomain            string
	Thresholds            AccountThresholds
	Flags                 AccountFlags
	Balance               int64
	Signers               []Signer
	NumSponsored          uint32
	NumSponsoring         uint32
	SignerSponsoringIDs   []string
}

// Signer is a single entry of an account's signer list.
type Signer struct {
	Weight int32
	Key    string
}

// AccountThresholds mirrors xdr.AccountEntry's threshold byte array.
type AccountThresholds struct {
	LowThreshold  byte
	MedThreshold  byte
	HighThreshold byte
}

// AccountFlags mirrors xdr.AccountEntry's auth flag bits.
type AccountFlags struct {
	AuthRequired        bool
	AuthRevocable       bool
	AuthImmutable       bool
	AuthClawbackEnabled bool
}

func ledgerAccountFromEntry(accountID string, entry *xdr.AccountEntry) (*LedgerAccount, error) {
	inflationDestination, err := entry.InflationDest.GetAddress()
	if err != nil {
		return nil, protocolViolationError("decoding inflation destination", err)
	}
	account := &LedgerAccount{
		AccountID:            accountID,
		Sequence:             int64(entry.SeqNum),
		SubentryCount:        int32(entry.NumSubEntries),
		InflationDestination: inflationDestination,
		HomeDomain:           string(entry.HomeDomain),
		Thresholds: AccountThresholds{
			LowThreshold:  entry.ThresholdLow(),
			MedThreshold:  entry.ThresholdMedium(),
			HighThreshold: entry.ThresholdHigh(),
		},
		Flags: AccountFlags{
			AuthRequired:        xdr.AccountFlags(entry.Flags).IsAuthRequired(),
			AuthRevocable:       xdr.AccountFlags(entry.Flags).IsAuthRevocable(),
			AuthImmutable:       xdr.AccountFlags(entry.Flags).IsAuthImmutable(),
			AuthClawbackEnabled: xdr.AccountFlags(entry.Flags).IsAuthClawbackEnabled(),
		},
		Balance: int64(entry.Balance),
		Signers: make([]Signer, 0, len(entry.Signers)),
	}
	for _, s := range entry.Signers {
		account.Signers = append(account.Signers, Signer{Key: s.Key.Address(), Weight: int32(s.Weight)})
	}
	for _, s := range entry.SignerSponsoringIDs() {
		account.SignerSponsoringIDs = append(account.SignerSponsoringIDs, s.Address())
	}
	return account, nil
}
