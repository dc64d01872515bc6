package google

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/pkcs12"
)

// keyPassphrase is the fixed passphrase Google used for exported
// service account .p12 keys.
const keyPassphrase = "notasecret"

// KeyParts holds the service account identity and its private key.
type KeyParts struct {
	// EmailAddress is the service account ID (the ...@developer.gserviceaccount.com address)
	EmailAddress string

	// Fingerprint is the key fingerprint used in the key file naming convention
	Fingerprint string

	// Key is the decoded RSA private key
	Key *rsa.PrivateKey

	// PEM is the key re-encoded as PKCS#8 PEM, the format oauth2/jwt expects
	PEM []byte
}

// KeyPath returns the conventional path of a service account key file:
// {dir}/{fingerprint}-privatekey.p12
func KeyPath(dir, fingerprint string) string {
	return filepath.Join(dir, fingerprint+"-privatekey.p12")
}

// NewKeyParts loads the PKCS#12 service account key identified by fingerprint
// from dir. The load happens once at process start; a failure here leaves the
// process without a usable key, and client construction will fail until
// restart.
func NewKeyParts(dir, fingerprint, emailAddress string) (*KeyParts, error) {
	path := KeyPath(dir, fingerprint)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service account key %s: %w", path, err)
	}

	priv, _, err := pkcs12.Decode(data, keyPassphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 key %s: %w", path, err)
	}

	rsaKey, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected private key type %T in %s", priv, path)
	}

	der, err := x509.MarshalPKCS8PrivateKey(rsaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode private key from %s: %w", path, err)
	}

	return &KeyParts{
		EmailAddress: emailAddress,
		Fingerprint:  fingerprint,
		Key:          rsaKey,
		PEM: pem.EncodeToMemory(&pem.Block{
			Type:  "PRIVATE KEY",
			Bytes: der,
		}),
	}, nil
}
