package keystore_test

import (
	"path/filepath"
	"testing"

	"github.com/ardanlabs/storagecost/foundation/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	pkHexKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	address  = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
)

func TestKeyStore(t *testing.T) {
	t.Log("Given the need to load signing keys from a folder.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a folder with one key.", testID)
		{
			dir := t.TempDir()

			pk, err := crypto.HexToECDSA(pkHexKey)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a private key: %s", failed, testID, err)
			}
			if err := crypto.SaveECDSA(filepath.Join(dir, "deployer.ecdsa"), pk); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to save the key: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to save the key.", success, testID)

			ks, err := keystore.New(dir)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to load the folder: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to load the folder.", success, testID)

			key, err := ks.Key("deployer")
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to find the key by name: %s", failed, testID, err)
			}
			if got := crypto.PubkeyToAddress(key.PublicKey).Hex(); got != address {
				t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, got)
				t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, address)
				t.Fatalf("\t%s\tTest %d:\tShould get back the right address.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould get back the right address.", success, testID)

			if name := ks.Lookup(common.HexToAddress(address)); name != "deployer" {
				t.Fatalf("\t%s\tTest %d:\tShould resolve the address to a name, got %q.", failed, testID, name)
			}
			t.Logf("\t%s\tTest %d:\tShould resolve the address to a name.", success, testID)

			if _, err := ks.Key("missing"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould fail for an unknown name.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould fail for an unknown name.", success, testID)
		}
	}
}
