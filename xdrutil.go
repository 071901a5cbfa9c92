package stellarrpc

import "github.com/stellar/go/xdr"

// unmarshalBase64 decodes a base64-XDR field into dst. This module treats
// the XDR wire codec as an external collaborator (§1, C2): every call site
// funnels through here, and the actual decode is entirely
// github.com/stellar/go/xdr's.
func unmarshalBase64(value string, dst interface{}) error {
	return xdr.SafeUnmarshalBase64(value, dst)
}
