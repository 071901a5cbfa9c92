package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stellar/go/support/log"
)

// ClientName and ClientVersion are sent on every request as the
// X-Client-Name / X-Client-Version headers (§6).
const (
	ClientName    = "stellarrpc-go"
	ClientVersion = "0.1.0"
)

// Client implements a single JSON-RPC 2.0 endpoint. It holds no mutable
// state beyond what the HTTP client itself synchronizes, so a Client value
// may be shared freely across goroutines.
type Client struct {
	HTTP HTTP
	URL  string
}

func (c Client) http() HTTP {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

// Call frames method/params as a JSON-RPC 2.0 request, posts it, and
// decodes the envelope. A non-nil error here always means a transport or
// framing failure (bad status, network error, malformed JSON); an RPC-level
// failure is reported in Response.Error with a nil error return, so the
// caller can classify it against the method-specific semantics.
func (c Client) Call(ctx context.Context, method string, params interface{}) (*Response, error) {
	req := Request{Version: "2.0", ID: uuid.NewString(), Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "rpc: encoding request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "rpc: building request")
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("X-Client-Name", ClientName)
	httpReq.Header.Set("X-Client-Version", ClientVersion)

	start := time.Now()
	resp, err := c.http().Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(err, "rpc: executing request")
	}
	defer resp.Body.Close()

	log.DefaultLogger.WithField("subsystem", "stellarrpc").
		WithField("method", method).
		WithField("elapsed", time.Since(start)).
		Debug("rpc call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("rpc: bad status %s for %s", resp.Status, method)
	}

	var r Response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, errors.Wrap(err, "rpc: decoding response")
	}
	return &r, nil
}

// CallResult is a convenience wrapper that decodes a successful result
// directly into out. It returns the RPCError unwrapped (as an error) when
// present; callers that need §4.6's Transport/RPCError/ProtocolViolation
// distinction use Call directly instead (see the stellarrpc package's call
// helper).
func (c Client) CallResult(ctx context.Context, method string, out interface{}, params interface{}) error {
	resp, err := c.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if resp.Result == nil {
		return errors.Errorf("rpc: missing result for %s", method)
	}
	if err := json.Unmarshal(*resp.Result, out); err != nil {
		return errors.Wrapf(err, "rpc: decoding result for %s", method)
	}
	return nil
}
