package main

import (
	"os"
	"path/filepath"
	"testing"

	solanainfra "github.com/gigagfun/launchium-token-creator/internal/infra/solana"
)

func TestGenerateWritesLoadableKeys(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "issuer.json")
	b58Path := filepath.Join(dir, "issuer.b58")

	res, err := generate(jsonPath, b58Path, false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	for _, p := range []string{jsonPath, b58Path} {
		raw, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		acct, err := solanainfra.DecodeSecretKey(raw)
		if err != nil {
			t.Fatalf("decode %s: %v", p, err)
		}
		if acct.PublicKey.ToBase58() != res.Address {
			t.Fatalf("%s: address %s, want %s", p, acct.PublicKey.ToBase58(), res.Address)
		}
		info, err := os.Stat(p)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("%s: mode %v", p, info.Mode().Perm())
		}
	}
}

func TestGenerateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issuer.json")
	if _, err := generate(path, "", false); err != nil {
		t.Fatal(err)
	}
	if _, err := generate(path, "", false); err == nil {
		t.Fatalf("second run without -force should fail")
	}
	if _, err := generate(path, "", true); err != nil {
		t.Fatalf("-force: %v", err)
	}
}
