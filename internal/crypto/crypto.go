package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

const (
	// AES-256 key length
	keyLength = 32
	// AES block size, also the CBC IV length
	aesBlockSize = 16
	ivHexLength  = aesBlockSize * 2
)

// DeriveKey stretches a passphrase into an AES-256 key using scrypt with the
// given salt. The same passphrase and salt always produce the same key.
func DeriveKey(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase cannot be empty")
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}
	key, err := scrypt.Key([]byte(passphrase), salt, 1<<15, 8, 1, keyLength)
	if err != nil {
		return nil, fmt.Errorf("scrypt key derivation failed: %w", err)
	}
	return key, nil
}

// NewSalt returns a fresh random salt for DeriveKey.
func NewSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - (len(data) % blockSize)
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded data length")
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, errors.New("invalid pkcs7 padding")
	}
	for i := 0; i < padding; i++ {
		if data[len(data)-padding+i] != byte(padding) {
			return nil, errors.New("invalid pkcs7 padding")
		}
	}
	return data[:len(data)-padding], nil
}

// Encrypt encrypts plaintext using AES-256-CBC, then hex encodes IV and
// ciphertext, concatenates them, and Base64 encodes the result.
func Encrypt(plainText string, key []byte) (string, error) {
	if len(key) != keyLength {
		return "", fmt.Errorf("invalid key length: must be %d bytes for AES-256", keyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	iv := make([]byte, aesBlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := pkcs7Pad([]byte(plainText), aesBlockSize)
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)

	combined := hex.EncodeToString(iv) + hex.EncodeToString(cipherText)
	return base64.StdEncoding.EncodeToString([]byte(combined)), nil
}

// Decrypt reverses Encrypt.
func Decrypt(cipherTextBase64 string, key []byte) (string, error) {
	if len(key) != keyLength {
		return "", fmt.Errorf("invalid key length: must be %d bytes for AES-256", keyLength)
	}

	decoded, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	combined := string(decoded)
	if len(combined) < ivHexLength {
		return "", errors.New("invalid ciphertext: too short to contain IV")
	}

	iv, err := hex.DecodeString(combined[:ivHexLength])
	if err != nil {
		return "", fmt.Errorf("failed to decode IV from hex: %w", err)
	}
	cipherText, err := hex.DecodeString(combined[ivHexLength:])
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext from hex: %w", err)
	}
	if len(cipherText)%aesBlockSize != 0 {
		return "", errors.New("ciphertext is not a multiple of the block size")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}

	plain := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, cipherText)

	unpadded, err := pkcs7Unpad(plain, aesBlockSize)
	if err != nil {
		return "", fmt.Errorf("failed to unpad plaintext: %w", err)
	}
	return string(unpadded), nil
}
