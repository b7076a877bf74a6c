// Package keystore reads a folder of .ecdsa key files and provides name
// lookup for their addresses and loading of the signing key.
package keystore

import (
	"crypto/ecdsa"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Extension is the file extension of key files.
const Extension = ".ecdsa"

// KeyStore maintains the keys found in a folder by name and address.
type KeyStore struct {
	names map[common.Address]string
	keys  map[string]*ecdsa.PrivateKey
}

// New constructs a KeyStore with the keys from the specified folder.
func New(root string) (*KeyStore, error) {
	ks := KeyStore{
		names: make(map[common.Address]string),
		keys:  make(map[string]*ecdsa.PrivateKey),
	}

	fn := func(fileName string, info fs.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if path.Ext(fileName) != Extension {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		name := strings.TrimSuffix(path.Base(fileName), Extension)
		ks.names[crypto.PubkeyToAddress(privateKey.PublicKey)] = name
		ks.keys[name] = privateKey

		return nil
	}

	if err := filepath.Walk(root, fn); err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ks, nil
}

// Key returns the private key stored under the specified name.
func (ks *KeyStore) Key(name string) (*ecdsa.PrivateKey, error) {
	key, exists := ks.keys[strings.TrimSuffix(name, Extension)]
	if !exists {
		return nil, fmt.Errorf("key %q not found", name)
	}
	return key, nil
}

// Lookup returns the name for the specified address.
func (ks *KeyStore) Lookup(address common.Address) string {
	name, exists := ks.names[address]
	if !exists {
		return address.Hex()
	}
	return name
}

// Copy returns a copy of the map of addresses and names.
func (ks *KeyStore) Copy() map[common.Address]string {
	cpy := make(map[common.Address]string, len(ks.names))
	for address, name := range ks.names {
		cpy[address] = name
	}
	return cpy
}
