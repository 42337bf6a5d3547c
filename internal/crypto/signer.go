package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// TxSigner signs transactions with the operator key for one chain.
type TxSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  types.Signer
	chainID *big.Int
}

// NewTxSigner parses a hex secp256k1 key and binds it to chainID
// (11155111 for Sepolia).
func NewTxSigner(privateKeyHex string, chainID int64) (*TxSigner, error) {
	raw, err := decodeKeyHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: %w", err)
	}
	key, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}
	id := big.NewInt(chainID)
	return &TxSigner{
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(id),
		chainID: id,
	}, nil
}

// Address returns the account the signer controls.
func (s *TxSigner) Address() common.Address { return s.address }

// ChainID returns the chain the signer is bound to.
func (s *TxSigner) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// Sign returns a signed copy of tx.
func (s *TxSigner) Sign(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, s.signer, s.key)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing: %w", err)
	}
	return signed, nil
}
