// cmd/keygen/main.go
//
// keygen creates an issuer wallet for the launch service.
//   - generates an ed25519 keypair
//   - prints the public key (the issuer address)
//   - writes the secret key as a solana-keygen compatible JSON array
//
// The secret is never printed. Register the file with Secret Manager
// (ISSUER_SECRET_NAME) or point ISSUER_SECRET_KEY_FILE at it.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mr-tron/base58"
)

type keyFiles struct {
	Address    string
	JSONPath   string
	Base58Path string
}

func main() {
	out := flag.String("out", "launchium-issuer.json", "keypair file (JSON byte array)")
	b58Out := flag.String("base58-out", "", "optional second file holding the base58 secret")
	force := flag.Bool("force", false, "overwrite existing files")
	flag.Parse()

	res, err := generate(*out, *b58Out, *force)
	if err != nil {
		log.Fatalf("[keygen] %v", err)
	}

	fmt.Println("============================================")
	fmt.Println("Launchium issuer wallet generated")
	fmt.Println("============================================")
	fmt.Printf("Public key (issuer address):\n  %s\n\n", res.Address)
	fmt.Printf("Secret key file (solana-keygen compatible):\n  %s\n", res.JSONPath)
	if res.Base58Path != "" {
		fmt.Printf("Secret key file (base58):\n  %s\n", res.Base58Path)
	}
	fmt.Println()
	fmt.Println("IMPORTANT: never commit these files. Fund the address before launching.")
}

func generate(jsonPath, base58Path string, force bool) (keyFiles, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return keyFiles{}, fmt.Errorf("generate ed25519 keypair: %w", err)
	}

	secret := make([]int, len(priv))
	for i, b := range priv {
		secret[i] = int(b)
	}
	data, err := json.Marshal(secret)
	if err != nil {
		return keyFiles{}, fmt.Errorf("marshal secret key json: %w", err)
	}

	if err := writeSecret(jsonPath, data, force); err != nil {
		return keyFiles{}, err
	}
	res := keyFiles{Address: base58.Encode(pub), JSONPath: jsonPath}

	if base58Path != "" {
		if err := writeSecret(base58Path, []byte(base58.Encode(priv)), force); err != nil {
			return keyFiles{}, err
		}
		res.Base58Path = base58Path
	}
	return res, nil
}

func writeSecret(path string, data []byte, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists (use -force to overwrite)", path)
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
