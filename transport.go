package stellarrpc

import (
	"context"
	"encoding/json"
)

// call drives a single JSON-RPC round trip through the transport core and
// classifies the outcome into the §4.6 taxonomy: a transport-level failure
// (bad status, network error, malformed envelope) becomes CodeTransport; an
// RPCError field on the envelope becomes CodeRPCError{code,message}; and a
// result that fails to decode into out becomes CodeProtocolViolation.
func (s *Server) call(ctx context.Context, method string, out interface{}, params interface{}) error {
	resp, err := s.rpc.Call(ctx, method, params)
	if err != nil {
		if ctx.Err() != nil {
			return cancelledError(ctx.Err())
		}
		return transportError("calling "+method, err)
	}
	if resp.Error != nil {
		return rpcError(resp.Error.Code, resp.Error.Message)
	}
	if out == nil {
		return nil
	}
	if resp.Result == nil {
		return protocolViolationError("missing result for "+method, nil)
	}
	if err := json.Unmarshal(*resp.Result, out); err != nil {
		return protocolViolationError("decoding result for "+method, err)
	}
	return nil
}
