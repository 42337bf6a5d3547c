package crypto

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known development key (hardhat account #0).
const (
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestEncryptDecryptKey(t *testing.T) {
	blob, err := EncryptKey(testKey, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKey[2:], got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)

	_, err = EncryptKey(testKey, "")
	assert.Error(t, err)
	_, err = EncryptKey("0x1234", "pw")
	assert.Error(t, err)
}

func TestLoadKey(t *testing.T) {
	t.Run("raw key wins", func(t *testing.T) {
		got, err := LoadKey(KeyConfig{RawPrivateKey: testKey, EncryptedKeyPath: "/does/not/exist"})
		require.NoError(t, err)
		assert.Equal(t, testKey[2:], got)
	})

	t.Run("encrypted file", func(t *testing.T) {
		blob, err := EncryptKey(testKey, "pw")
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "operator.json")
		require.NoError(t, os.WriteFile(path, blob, 0o600))

		got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
		require.NoError(t, err)
		assert.Equal(t, testKey[2:], got)
	})

	t.Run("nothing configured", func(t *testing.T) {
		cfg := KeyConfig{}
		assert.False(t, cfg.Configured())
		_, err := LoadKey(cfg)
		assert.Error(t, err)
	})
}

func TestTxSigner(t *testing.T) {
	s, err := NewTxSigner(testKey, 11155111)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testAddress), s.Address())
	assert.Equal(t, int64(11155111), s.ChainID().Int64())

	to := common.HexToAddress("0x0000000000000000000000000000000000000042")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   s.ChainID(),
		Nonce:     1,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21_000,
		To:        &to,
		Value:     new(big.Int),
	})
	signed, err := s.Sign(tx)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(s.ChainID()), signed)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)
}
