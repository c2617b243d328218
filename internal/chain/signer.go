package chain

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// LocalSigner signs with an in-process secp256k1 key. The bech32 address is
// supplied alongside the key; no derivation happens here.
type LocalSigner struct {
	address string
	key     *ecdsa.PrivateKey
	pubkey  []byte // compressed
}

// NewLocalSigner creates a signer from a hex-encoded secp256k1 private key.
func NewLocalSigner(address, privateKeyHex string) (*LocalSigner, error) {
	if address == "" {
		return nil, fmt.Errorf("signer address is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &LocalSigner{
		address: address,
		key:     key,
		pubkey:  crypto.CompressPubkey(&key.PublicKey),
	}, nil
}

// Address returns the signer's bech32 account address.
func (s *LocalSigner) Address() string {
	return s.address
}

// PublicKey returns the compressed secp256k1 public key.
func (s *LocalSigner) PublicKey() []byte {
	return s.pubkey
}

// Sign returns the 64-byte r||s signature over the sha256 digest of bytes.
func (s *LocalSigner) Sign(bytes []byte) ([]byte, error) {
	digest := sha256.Sum256(bytes)
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	// Drop the recovery id; verifiers expect plain r||s.
	return sig[:64], nil
}
