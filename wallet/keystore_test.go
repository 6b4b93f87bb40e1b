package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKeystore(t *testing.T) *KeystoreManager {
	t.Helper()
	km, err := NewKeystoreManager(t.TempDir())
	require.NoError(t, err)
	km.Iterations = 16
	return km
}

func TestKeystore_SaveLoad(t *testing.T) {
	km := newTestKeystore(t)
	w, err := NewWalletFromPrivateKey(testPrivateKey)
	require.NoError(t, err)

	path, err := km.Save(w, "secret")
	require.NoError(t, err)
	assert.Equal(t, w.Address().String()+".json", filepath.Base(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := km.Load(w.Address().String(), "secret")
	require.NoError(t, err)
	assert.Equal(t, w.Address(), loaded.Address())
	assert.Equal(t, w.PrivateKey().D, loaded.PrivateKey().D)
}

func TestKeystore_WrongPassword(t *testing.T) {
	km := newTestKeystore(t)
	w, err := NewWallet()
	require.NoError(t, err)
	_, err = km.Save(w, "secret")
	require.NoError(t, err)

	_, err = km.Load(w.Address().String(), "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid password")
}

func TestKeystore_LoadKeyring(t *testing.T) {
	km := newTestKeystore(t)

	var addrs []string
	for i := 0; i < 3; i++ {
		w, err := NewWallet()
		require.NoError(t, err)
		_, err = km.Save(w, "pw")
		require.NoError(t, err)
		addrs = append(addrs, w.Address().String())
	}
	// 非 keystore 文件被忽略
	require.NoError(t, os.WriteFile(filepath.Join(km.keystoreDir, "README"), []byte("x"), 0600))

	ring, err := km.LoadKeyring("pw")
	require.NoError(t, err)
	require.Equal(t, 3, ring.Len())

	known := ring.KnownAddresses(context.Background())
	for i := 1; i < len(known); i++ {
		assert.Less(t, known[i-1].String(), known[i].String(), "keyring must be ordered by address")
	}
	for _, a := range known {
		assert.True(t, ring.IsSpendable(a))
		assert.Contains(t, addrs, a.String())
	}
}
