// Package identity derives ledger account addresses from BIP-39 mnemonics.
// Signing is out of scope for the daemon; it only needs to name accounts, so
// nothing here retains private key material beyond the derivation call.
package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const (
	hkdfInfoAccount = "tessera/account/signing/v1"
	addressPrefix   = "tsr1"
)

var (
	ErrMnemonicRequired = errors.New("mnemonic is required")
	ErrInvalidMnemonic  = errors.New("mnemonic failed BIP-39 validation")
)

// DeriveAddress maps a mnemonic to the account address the ledger knows it
// by: base58 of the blake2b-256 hash of the derived ed25519 public key,
// prefixed for human recognizability.
func DeriveAddress(mnemonic string) (string, error) {
	pub, err := derivePublicKey(mnemonic)
	if err != nil {
		return "", err
	}
	return AddressFromPublicKey(pub), nil
}

// AddressFromPublicKey builds the canonical address string for a signing key.
func AddressFromPublicKey(pub ed25519.PublicKey) string {
	h := blake2b.Sum256(pub)
	return addressPrefix + base58.Encode(h[:])
}

// ValidMnemonic reports whether the mnemonic passes BIP-39 checksum rules.
func ValidMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(strings.TrimSpace(mnemonic))
}

// ValidAddress performs a shape check only; it cannot verify the key behind
// the hash.
func ValidAddress(address string) bool {
	address = strings.TrimSpace(address)
	if !strings.HasPrefix(address, addressPrefix) {
		return false
	}
	raw, err := base58.Decode(strings.TrimPrefix(address, addressPrefix))
	if err != nil {
		return false
	}
	return len(raw) == blake2b.Size256
}

func derivePublicKey(mnemonic string) (ed25519.PublicKey, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if mnemonic == "" {
		return nil, ErrMnemonicRequired
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seedBytes := bip39.NewSeed(mnemonic, "")

	reader := hkdf.New(sha256.New, seedBytes, nil, []byte(hkdfInfoAccount))
	signingSeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, signingSeed); err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(signingSeed)
	return priv.Public().(ed25519.PublicKey), nil
}
