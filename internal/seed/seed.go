// Package seed loads the BIP32 master key every service's KeyService
// or TreasuryCore derives from, following teacher mint/mint.go's own
// seed bootstrap: generate once, persist, and reload thereafter. This
// rewrite additionally accepts a BIP-39 mnemonic (env MNEMONIC) as an
// alternative to a raw persisted seed, since a mnemonic is what an
// operator actually backs up and re-enters across service instances.
package seed

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// FromMnemonic derives a master key from a BIP-39 mnemonic, the seed
// format an operator actually writes down and re-enters.
func FromMnemonic(mnemonic string) (*hdkeychain.ExtendedKey, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, fmt.Errorf("invalid mnemonic")
	}
	seedBytes := bip39.NewSeed(mnemonic, "")
	return hdkeychain.NewMaster(seedBytes, &chaincfg.MainNetParams)
}

// LoadOrGenerate reads a hex-encoded seed from path, generating and
// persisting a fresh 32-byte one (teacher: hdkeychain.GenerateSeed(32))
// the first time a service starts against an empty state directory.
func LoadOrGenerate(path string) (*hdkeychain.ExtendedKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		seedBytes, err := hex.DecodeString(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decoding seed file %s: %w", path, err)
		}
		return hdkeychain.NewMaster(seedBytes, &chaincfg.MainNetParams)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	seedBytes, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		return nil, fmt.Errorf("generating seed: %w", err)
	}
	if err := os.WriteFile(path, []byte(hex.EncodeToString(seedBytes)), 0o600); err != nil {
		return nil, fmt.Errorf("persisting seed file %s: %w", path, err)
	}
	return hdkeychain.NewMaster(seedBytes, &chaincfg.MainNetParams)
}

// Load resolves a service's master key: MNEMONIC env var if set,
// otherwise the persisted/generated raw seed at seedPath.
func Load(mnemonic, seedPath string) (*hdkeychain.ExtendedKey, error) {
	if mnemonic != "" {
		return FromMnemonic(mnemonic)
	}
	return LoadOrGenerate(seedPath)
}
