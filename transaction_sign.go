package stellarrpc

import "github.com/stellar/go/keypair"

// Sign signs tx's envelope in place with each of signers, using
// networkPassphrase to derive the signature payload. It mirrors
// txnbuild.Transaction.Sign, which returns a new, already-signed
// *txnbuild.Transaction rather than mutating receiver state.
func (tx *BuiltTransaction) Sign(networkPassphrase string, signers ...*keypair.Full) error {
	signed, err := tx.Envelope.Sign(networkPassphrase, signers...)
	if err != nil {
		return protocolViolationError("signing transaction", err)
	}
	tx.Envelope = signed
	return nil
}
