package rpc_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebamiro/stellarrpc/internal/rpc"
)

func TestClient_Call_SendsClientHeaders(t *testing.T) {
	var gotName, gotVersion string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.Header.Get("X-Client-Name")
		gotVersion = r.Header.Get("X-Client-Version")
		var req rpc.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result := json.RawMessage(`{"ok":true}`)
		resp := rpc.Response{Version: "2.0", ID: req.ID, Result: &result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(ts.Close)

	client := rpc.Client{URL: ts.URL}
	resp, err := client.Call(context.Background(), "getHealth", nil)
	require.NoError(t, err)
	assert.Equal(t, rpc.ClientName, gotName)
	assert.Equal(t, rpc.ClientVersion, gotVersion)
	assert.NotNil(t, resp.Result)
}

func TestClient_Call_NonOKStatusIsError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	client := rpc.Client{URL: ts.URL}
	_, err := client.Call(context.Background(), "getHealth", nil)
	require.Error(t, err)
}

func TestClient_CallResult_DecodesInto(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		result := json.RawMessage(`{"status":"healthy"}`)
		resp := rpc.Response{Version: "2.0", ID: req.ID, Result: &result}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(ts.Close)

	client := rpc.Client{URL: ts.URL}
	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, client.CallResult(context.Background(), "getHealth", &out, nil))
	assert.Equal(t, "healthy", out.Status)
}

func TestClient_CallResult_SurfacesRPCError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := rpc.Response{Version: "2.0", ID: req.ID, Error: &rpc.RPCError{Code: -32602, Message: "bad params"}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(ts.Close)

	client := rpc.Client{URL: ts.URL}
	var out struct{}
	err := client.CallResult(context.Background(), "getHealth", &out, nil)
	require.Error(t, err)
	assert.Equal(t, "bad params", err.Error())
}
