// Package wgkeys generates and validates WireGuard key pairs.
package wgkeys

import (
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Keypair holds a base64-encoded WireGuard private and public key
type Keypair struct {
	PrivateKey string
	PublicKey  string
}

// Generate creates a new WireGuard key pair
func Generate() (Keypair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to generate WireGuard private key: %w", err)
	}
	return Keypair{
		PrivateKey: priv.String(),
		PublicKey:  priv.PublicKey().String(),
	}, nil
}

// PublicKey derives the public key of a base64-encoded private key
func PublicKey(privateKey string) (string, error) {
	priv, err := wgtypes.ParseKey(privateKey)
	if err != nil {
		return "", fmt.Errorf("parse private key: %w", err)
	}
	return priv.PublicKey().String(), nil
}
