package gh

import (
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

// encryptPlaintext seals plaintext with GitHub's libsodium public key
// scheme. The same sealing is used for org, repo and environment secrets.
func encryptPlaintext(plaintext, publicKeyB64 string) ([]byte, error) {
	publicKeyBytes, err := base64.StdEncoding.DecodeString(publicKeyB64)
	if err != nil {
		return nil, err
	}

	var publicKey [32]byte
	if copied := copy(publicKey[:], publicKeyBytes); copied != 32 {
		return nil, fmt.Errorf("invalid public key length %d", copied)
	}

	return box.SealAnonymous(nil, []byte(plaintext), &publicKey, nil)
}

// sealSecret produces the base64 ciphertext GitHub expects in secret
// upsert bodies.
func sealSecret(plaintext, publicKeyB64 string) (string, error) {
	cipher, err := encryptPlaintext(plaintext, publicKeyB64)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(cipher), nil
}
