package dtls

import (
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSelfSignedIdentityPEMRoundTrip(t *testing.T) {
	identity, err := NewSelfSignedLocalhostIdentity()
	if err != nil {
		t.Fatalf("NewSelfSignedLocalhostIdentity: %v", err)
	}

	certPEM, keyPEM, err := EncodeIdentityPEM(identity)
	if err != nil {
		t.Fatalf("EncodeIdentityPEM: %v", err)
	}

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("write cert file: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	loaded, err := LoadIdentity(certFile, keyFile)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}

	leaf, err := x509.ParseCertificate(loaded.Certificate[0])
	if err != nil {
		t.Fatalf("parse loaded certificate: %v", err)
	}
	if leaf.Subject.CommonName != "localhost" {
		t.Errorf("CommonName = %q, want localhost", leaf.Subject.CommonName)
	}
	if len(leaf.DNSNames) == 0 || leaf.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v, want [localhost]", leaf.DNSNames)
	}
	now := time.Now()
	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		t.Errorf("validity window [%v, %v] does not cover now", leaf.NotBefore, leaf.NotAfter)
	}
}

func TestLoadIdentityMissingFiles(t *testing.T) {
	if _, err := LoadIdentity("/nonexistent/cert.pem", "/nonexistent/key.pem"); err == nil {
		t.Fatal("LoadIdentity accepted missing PEM files")
	}
}

func TestLoadIdentityRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatalf("write cert file: %v", err)
	}
	if err := os.WriteFile(keyFile, []byte("not a key"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}

	if _, err := LoadIdentity(certFile, keyFile); err == nil {
		t.Fatal("LoadIdentity accepted non-PEM input")
	}
}
