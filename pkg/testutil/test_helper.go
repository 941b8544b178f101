package testutil

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Constants for testing
const (
	DefaultTestTimeout = 5 * time.Second

	// SimulatedChainID is the chain id of the simulated backend
	SimulatedChainID = 1337
)

// SetupSimulation creates a simulated blockchain with one account holding 10 ETH
func SetupSimulation(t *testing.T) (*simulated.Backend, *ecdsa.PrivateKey, common.Address) {
	// Generate a new random private key
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err, "Failed to generate private key")
	address := crypto.PubkeyToAddress(privateKey.PublicKey)

	//nolint:SA1019 // Using deprecated GenesisAccount for compatibility
	genesisAlloc := map[common.Address]core.GenesisAccount{
		address: {
			Balance: Ether(10),
		},
	}

	// Create simulated blockchain
	sim := simulated.NewBackend(genesisAlloc)
	t.Cleanup(func() {
		_ = sim.Close()
	})

	return sim, privateKey, address
}

// GenerateKey creates a random unfunded key
func GenerateKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err, "Failed to generate private key")
	return privateKey, crypto.PubkeyToAddress(privateKey.PublicKey)
}

// GenerateAddress creates a random address for testing
func GenerateAddress() common.Address {
	privateKey, _ := crypto.GenerateKey()
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// Ether returns n ether in wei
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

// Gwei returns n gwei in wei
func Gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9))
}

// AssertBigIntEqual compares two big.Int values for equality in tests
func AssertBigIntEqual(t *testing.T, expected, actual *big.Int, msgAndArgs ...interface{}) {
	if expected == nil && actual == nil {
		return
	}

	if (expected == nil && actual != nil) || (expected != nil && actual == nil) {
		assert.Fail(t, "Values not equal", msgAndArgs...)
		return
	}

	assert.Equal(t, 0, expected.Cmp(actual), msgAndArgs...)
}
