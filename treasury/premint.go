package treasury

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PreMintSecret is one (secret, blinding factor) pair deterministically
// derived at a given counter value, ready to be blinded and sent to
// KeyService for signing.
type PreMintSecret struct {
	Amount         uint64
	Secret         string
	BlindingFactor *secp256k1.PrivateKey
}

// deriveKeysetPath reproduces NUT-13's deterministic secret derivation
// path (m/129372'/0'/keyset_k_int') so that, given the same master seed
// and keyset id, the same sequence of secrets and blinding factors can
// always be reconstructed from a counter alone.
func deriveKeysetPath(master *hdkeychain.ExtendedKey, keysetId string) (*hdkeychain.ExtendedKey, error) {
	idBytes, err := hex.DecodeString(keysetId)
	if err != nil {
		return nil, err
	}
	idInt := binary.BigEndian.Uint64(idBytes) % (1<<31 - 1)

	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + 129372)
	if err != nil {
		return nil, err
	}
	coinType, err := purpose.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, err
	}
	return coinType.Derive(hdkeychain.HardenedKeyStart + uint32(idInt))
}

func deriveSecret(keysetPath *hdkeychain.ExtendedKey, counter uint32) (string, error) {
	counterPath, err := keysetPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return "", err
	}
	secretPath, err := counterPath.Derive(0)
	if err != nil {
		return "", err
	}
	key, err := secretPath.ECPrivKey()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(key.Serialize()), nil
}

func deriveBlindingFactor(keysetPath *hdkeychain.ExtendedKey, counter uint32) (*secp256k1.PrivateKey, error) {
	counterPath, err := keysetPath.Derive(hdkeychain.HardenedKeyStart + counter)
	if err != nil {
		return nil, err
	}
	rPath, err := counterPath.Derive(1)
	if err != nil {
		return nil, err
	}
	return rPath.ECPrivKey()
}

// derivePreMintSecrets derives len(amounts) PreMintSecrets starting at
// startCounter, one per amount, in order.
func derivePreMintSecrets(master *hdkeychain.ExtendedKey, keysetId string, startCounter uint32, amounts []uint64) ([]PreMintSecret, error) {
	keysetPath, err := deriveKeysetPath(master, keysetId)
	if err != nil {
		return nil, err
	}

	secrets := make([]PreMintSecret, 0, len(amounts))
	for i, amount := range amounts {
		counter := startCounter + uint32(i)
		secret, err := deriveSecret(keysetPath, counter)
		if err != nil {
			return nil, err
		}
		r, err := deriveBlindingFactor(keysetPath, counter)
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, PreMintSecret{Amount: amount, Secret: secret, BlindingFactor: r})
	}
	return secrets, nil
}
