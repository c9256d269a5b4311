package main

import (
	"errors"
	"fmt"
	"io/fs"
)

type certPaths struct {
	PEM    string // mkcert certificate, or a bundle holding key and certificate
	KeyPEM string // mkcert key
	Key    string // openssl key
	Cert   string // openssl certificate
}

type certificates struct {
	Cert   []byte
	Key    []byte
	Source string
}

// resolveCertificates picks, in order: the mkcert pair, the separate
// key/crt pair, then a single PEM bundle.
func resolveCertificates(p certPaths, readFile func(string) ([]byte, error)) (certificates, error) {
	keyPEM, keyPEMErr := readFile(p.KeyPEM)
	pem, pemErr := readFile(p.PEM)
	if keyPEMErr == nil && pemErr == nil {
		return certificates{Cert: pem, Key: keyPEM, Source: "mkcert"}, nil
	}

	key, keyErr := readFile(p.Key)
	cert, certErr := readFile(p.Cert)
	if keyErr == nil && certErr == nil {
		return certificates{Cert: cert, Key: key, Source: "openssl"}, nil
	}

	if pemErr == nil {
		return certificates{Cert: pem, Key: pem, Source: "bundle"}, nil
	}

	for _, err := range []error{keyPEMErr, pemErr, keyErr, certErr} {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return certificates{}, fmt.Errorf("read tls files: %w", err)
		}
	}
	return certificates{}, fmt.Errorf(
		"missing TLS cert files: provide mkcert files %s and %s, or %s and %s",
		p.PEM, p.KeyPEM, p.Key, p.Cert)
}
