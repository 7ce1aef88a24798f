package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		Kind      string `json:"kind"`
		Retryable bool   `json:"retryable"`
	} `json:"data,omitempty"`
}

type rpcResponseBody struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorBody   `json:"error"`
}

func runCall(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("rpc", defaultRPCEndpoint(), "RPC endpoint")
	token := fs.String("token", os.Getenv(rpcTokenEnv), "bearer token")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	rest := fs.Args()
	if len(rest) < 1 || len(rest) > 2 {
		fmt.Fprintln(stderr, "Usage: stake-cli call [-rpc url] [-token t] <method> [json-params]")
		return 1
	}

	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": rest[0]}
	if len(rest) == 2 {
		var params json.RawMessage
		if err := json.Unmarshal([]byte(rest[1]), &params); err != nil {
			fmt.Fprintf(stderr, "Error: params must be a JSON object: %v\n", err)
			return 1
		}
		payload["params"] = []json.RawMessage{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(stderr, "Error: encode request: %v\n", err)
		return 1
	}

	resp, err := doRPCRequest(*endpoint, strings.TrimSpace(*token), body)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if resp.Error != nil {
		fmt.Fprintf(stderr, "RPC error %d: %s\n", resp.Error.Code, resp.Error.Message)
		if resp.Error.Data != nil {
			fmt.Fprintf(stderr, "  kind: %s, retryable: %t\n", resp.Error.Data.Kind, resp.Error.Data.Retryable)
		}
		return 1
	}
	printJSONResult(stdout, resp.Result)
	return 0
}

func doRPCRequest(endpoint, token string, payload []byte) (*rpcResponseBody, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	var out rpcResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &out, nil
}

func printJSONResult(w io.Writer, result json.RawMessage) {
	if len(result) == 0 {
		fmt.Fprintln(w, "No result.")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, buf.String())
}
