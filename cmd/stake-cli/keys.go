package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tierstake/cmd/internal/passphrase"
	"tierstake/crypto"
	"tierstake/rpc"
)

// newPassSource is replaced in tests.
var newPassSource = func(confirm bool) func() (string, error) {
	src := passphrase.NewSource(keystorePassEnv, "keystore")
	if confirm {
		src = src.WithConfirmation()
	}
	return src.Get
}

func runKeygen(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "./keys", "directory for the keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	pass, err := newPassSource(true)()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		fmt.Fprintf(stderr, "Error: generate key: %v\n", err)
		return 1
	}
	addr := key.PubKey().Address()
	path := filepath.Join(*dir, crypto.KeystoreFileName(addr))
	if err := crypto.SaveToKeystore(path, key, pass); err != nil {
		fmt.Fprintf(stderr, "Error: save keystore: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Address:  %s\n", addr.String())
	fmt.Fprintf(stdout, "Keystore: %s\n", path)
	return 0
}

func runAddress(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("address", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keystore := fs.String("keystore", "", "keystore file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	addr, err := keystoreAddress(*keystore)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, addr.String())
	return 0
}

func keystoreAddress(path string) (crypto.Address, error) {
	if strings.TrimSpace(path) == "" {
		return crypto.Address{}, fmt.Errorf("-keystore is required")
	}
	pass, err := newPassSource(false)()
	if err != nil {
		return crypto.Address{}, err
	}
	return crypto.LoadAddress(path, pass)
}

func runToken(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	keystore := fs.String("keystore", "", "keystore file holding the caller identity")
	address := fs.String("address", "", "caller address, instead of -keystore")
	secret := fs.String("secret", os.Getenv(rpcSecretEnv), "shared HMAC secret")
	issuer := fs.String("issuer", "tierstake", "token issuer")
	audience := fs.String("audience", "stakingd", "token audience")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var caller crypto.Address
	switch {
	case strings.TrimSpace(*address) != "":
		decoded, err := crypto.DecodeUserAddress(strings.TrimSpace(*address))
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid address: %v\n", err)
			return 1
		}
		caller = decoded
	case strings.TrimSpace(*keystore) != "":
		addr, err := keystoreAddress(*keystore)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		caller = addr
	default:
		fmt.Fprintln(stderr, "Error: -keystore or -address is required")
		return 1
	}

	token, err := rpc.IssueToken(*secret, caller, *issuer, *audience, *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
