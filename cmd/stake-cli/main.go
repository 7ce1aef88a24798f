package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	keystorePassEnv = "STAKE_KEYSTORE_PASS"
	rpcTokenEnv     = "STAKE_RPC_TOKEN"
	rpcSecretEnv    = "STAKE_RPC_SECRET"
	rpcURLEnv       = "STAKE_RPC_URL"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}
	switch args[0] {
	case "keygen":
		return runKeygen(args[1:], stdout, stderr)
	case "address":
		return runAddress(args[1:], stdout, stderr)
	case "token":
		return runToken(args[1:], stdout, stderr)
	case "call":
		return runCall(args[1:], stdout, stderr)
	case "audit":
		return runAudit(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", args[0], usage())
		return 1
	}
}

func defaultRPCEndpoint() string {
	if v := strings.TrimSpace(os.Getenv(rpcURLEnv)); v != "" {
		return v
	}
	return "http://localhost:8080/rpc"
}

func usage() string {
	return strings.TrimSpace(`
Usage: stake-cli <command> [flags]

Commands:
  keygen   -dir <path>                      create an encrypted keystore
  address  -keystore <file>                 print the identity stored in a keystore
  token    -keystore <file>|-address <addr> sign an RPC bearer token
  call     [-rpc url] [-token t] <method> [json-params]
                                            invoke a staking RPC method
  audit    -config <file>                   check ledger invariants offline

Environment:
  ` + keystorePassEnv + `  keystore passphrase
  ` + rpcTokenEnv + `      bearer token for call
  ` + rpcSecretEnv + `     HMAC secret for token
  ` + rpcURLEnv + `        RPC endpoint for call`)
}
