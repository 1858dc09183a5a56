package keystore

import (
	"errors"
	"fmt"

	"github.com/multiformats/go-base32"
)

var (
	// ErrNotFound is returned when the key does not exist.
	ErrNotFound = errors.New("keystore: key not found")
	// ErrExists is returned on an attempt to overwrite a key.
	ErrExists = errors.New("keystore: key already exists")
)

// Keystore is meant to manage private keys of the node.
type Keystore interface {
	// Put stores given PrivKey.
	Put(KeyName, PrivKey) error

	// Get reads PrivKey using given KeyName.
	Get(KeyName) (PrivKey, error)

	// Delete erases PrivKey using given KeyName.
	Delete(name KeyName) error

	// List lists all stored key names.
	List() ([]KeyName, error)
}

// KeyName represents private key name.
type KeyName string

// KeyNameFromBase32 decodes KeyName from Base32 format.
func KeyNameFromBase32(bs string) (KeyName, error) {
	name, err := base32.RawStdEncoding.DecodeString(bs)
	if err != nil {
		return "", fmt.Errorf("keystore: failed to decode key name: %w", err)
	}

	return KeyName(name), nil
}

// Base32 formats KeyName to Base32 format.
// Used to make the key names safe to be used as file names.
func (kn KeyName) Base32() string {
	return base32.RawStdEncoding.EncodeToString([]byte(kn))
}

func (kn KeyName) String() string {
	return string(kn)
}

// PrivKey represents private keys with their raw bodies.
type PrivKey struct {
	Body []byte `json:"body"`
}
