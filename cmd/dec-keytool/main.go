package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"eppie-mail/go-core/internal/address"
	"eppie-mail/go-core/internal/keys"
	"eppie-mail/go-core/internal/keystore"
	"eppie-mail/go-core/internal/nameclaim"
	"eppie-mail/go-core/internal/routing"
	"eppie-mail/go-core/pkg/models"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	exitOK           = 0
	exitInvalidInput = 10
	exitKeyFailed    = 20
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitInvalidInput)
	}

	switch os.Args[1] {
	case "init":
		runInit(os.Args[2:])
	case "address":
		runAddress(os.Args[2:])
	case "claim-sign":
		runClaimSign(os.Args[2:])
	case "claim-verify":
		runClaimVerify(os.Args[2:])
	default:
		printUsage()
		os.Exit(exitInvalidInput)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	keyPath := fs.String("key-path", "keys.sealed", "sealed key store path")
	mnemonic := fs.String("mnemonic", "", "existing seed phrase (optional, a new one is generated when empty)")
	if err := fs.Parse(args); err != nil {
		writeStderrln(err.Error(), exitInvalidInput)
	}

	passphrase := os.Getenv("EPPIE_KEY_PASSPHRASE")
	if passphrase == "" {
		writeStderrln("EPPIE_KEY_PASSPHRASE is required", exitInvalidInput)
	}

	phrase := strings.TrimSpace(*mnemonic)
	generated := false
	if phrase == "" {
		var err error
		phrase, err = keys.NewMnemonic()
		if err != nil {
			writeStderrln(err.Error(), exitKeyFailed)
		}
		generated = true
	}

	store, err := keystore.NewFileStore(*keyPath, passphrase)
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	if err := store.Initialize(phrase); err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}

	out := map[string]any{
		"initialized": true,
		"key_path":    *keyPath,
	}
	if generated {
		// The phrase is shown exactly once, at creation.
		out["mnemonic"] = phrase
	}
	if err := printJSON(out); err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	os.Exit(exitOK)
}

func runAddress(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	accountIndex := fs.Int("account", 0, "decentralized account index")
	tag := fs.String("tag", "", "derivation tag (overrides the account index)")
	if err := fs.Parse(args); err != nil {
		writeStderrln(err.Error(), exitInvalidInput)
	}

	master := masterFromEnv()
	var (
		priv *secp256k1.PrivateKey
		err  error
	)
	if *tag != "" {
		priv, err = master.DeriveByTag(*tag)
	} else {
		priv, err = master.DeriveByPath(keys.PathForAccount(*accountIndex))
	}
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}

	addr, err := address.Encode(priv.PubKey())
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	routingID, err := routing.ID(addr)
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	if err := printJSON(map[string]any{
		"address":    addr,
		"email":      addr + "@eppie",
		"routing_id": routingID,
	}); err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	os.Exit(exitOK)
}

func runClaimSign(args []string) {
	fs := flag.NewFlagSet("claim-sign", flag.ExitOnError)
	name := fs.String("name", "", "name to claim")
	accountIndex := fs.Int("account", 0, "decentralized account index")
	if err := fs.Parse(args); err != nil {
		writeStderrln(err.Error(), exitInvalidInput)
	}
	if strings.TrimSpace(*name) == "" {
		writeStderrln("name is required", exitInvalidInput)
	}

	master := masterFromEnv()
	account := models.Account{
		Network:                   models.NetworkEppie,
		DecentralizedAccountIndex: *accountIndex,
	}
	sig, err := nameclaim.Sign(*name, account, master)
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	priv, err := master.KeyForAccount(account)
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	addr, err := address.Encode(priv.PubKey())
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	if err := printJSON(map[string]any{
		"name":      *name,
		"address":   addr,
		"signature": hex.EncodeToString(sig),
	}); err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	os.Exit(exitOK)
}

func runClaimVerify(args []string) {
	fs := flag.NewFlagSet("claim-verify", flag.ExitOnError)
	name := fs.String("name", "", "claimed name")
	addr := fs.String("address", "", "claimant public key address")
	sigHex := fs.String("signature", "", "claim signature, hex")
	if err := fs.Parse(args); err != nil {
		writeStderrln(err.Error(), exitInvalidInput)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(*sigHex))
	if err != nil {
		writeStderrln("signature must be hex", exitInvalidInput)
	}
	valid := nameclaim.VerifyV1(*name, *addr, sig)
	if err := printJSON(map[string]any{"valid": valid}); err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	if valid {
		os.Exit(exitOK)
	}
	os.Exit(exitKeyFailed)
}

// masterFromEnv unlocks the master key from the mnemonic in
// EPPIE_MNEMONIC. The key tool never touches the sealed store for
// derivation so it can run against a phrase that was never persisted.
func masterFromEnv() *keys.MasterKey {
	phrase := strings.TrimSpace(os.Getenv("EPPIE_MNEMONIC"))
	if phrase == "" {
		writeStderrln("EPPIE_MNEMONIC is required", exitInvalidInput)
	}
	master, err := keys.FromMnemonic(phrase, "")
	if err != nil {
		writeStderrln(err.Error(), exitKeyFailed)
	}
	return master
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage() {
	writeStdoutln("dec-keytool <command> [flags]")
	writeStdoutln("commands:")
	writeStdoutln("  init          --key-path <path> [--mnemonic \"phrase\"]   (EPPIE_KEY_PASSPHRASE)")
	writeStdoutln("  address       --account <n> | --tag <tag>               (EPPIE_MNEMONIC)")
	writeStdoutln("  claim-sign    --name <name> --account <n>               (EPPIE_MNEMONIC)")
	writeStdoutln("  claim-verify  --name <name> --address <addr> --signature <hex>")
}

func writeStdoutln(line string) {
	if _, err := fmt.Fprintln(os.Stdout, line); err != nil {
		os.Exit(exitKeyFailed)
	}
}

func writeStderrln(line string, exitCode int) {
	if _, err := fmt.Fprintln(os.Stderr, line); err != nil {
		os.Exit(exitCode)
	}
	os.Exit(exitCode)
}
