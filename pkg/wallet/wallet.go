// Package wallet loads the accounts of a batch from the wallets and proxies files.
package wallet

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/speedrun-hq/zora-runner/pkg/models"
)

// ErrProxyCountMismatch is returned when the proxies file is neither empty nor as long as the wallets file
var ErrProxyCountMismatch = errors.New("proxies count doesn't match wallets count, add proxies or leave proxies file empty")

// Entry is one wallet line and its proxy, before decryption
type Entry struct {
	// Address is the address written in the wallets file, empty for key only lines
	Address string
	// Key is the private key, encrypted unless no password is configured
	Key   string
	Proxy string
	// Fields are the original columns written back to the outcome logs
	Fields []string
}

// ParseWalletLine splits a "key" or "address;key" line
func ParseWalletLine(line string) (address, key string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", errors.New("empty wallet line")
	}
	parts := strings.Split(line, ";")
	switch len(parts) {
	case 1:
		return "", parts[0], nil
	case 2:
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
	}
	return "", "", fmt.Errorf("wallet line has %d fields, expected 'key' or 'address;key'", len(parts))
}

// NormalizeProxy prefixes proxies without a scheme with http://
func NormalizeProxy(proxy string) string {
	proxy = strings.TrimSpace(proxy)
	if len(proxy) > 4 && !strings.HasPrefix(proxy, "http") {
		return "http://" + proxy
	}
	return proxy
}

// LoadEntries reads the wallets file and pairs every line with its proxy.
// An empty or missing proxies file means no proxies.
func LoadEntries(walletsPath, proxiesPath string) ([]Entry, error) {
	wallets, err := readLines(walletsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read wallets: %w", err)
	}

	proxies, err := readLines(proxiesPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read proxies: %w", err)
	}
	if len(proxies) != 0 && len(proxies) != len(wallets) {
		return nil, fmt.Errorf("%w: %d proxies for %d wallets", ErrProxyCountMismatch, len(proxies), len(wallets))
	}

	entries := make([]Entry, 0, len(wallets))
	for i, line := range wallets {
		address, key, err := ParseWalletLine(line)
		if err != nil {
			return nil, fmt.Errorf("wallets line %d: %w", i+1, err)
		}
		entry := Entry{
			Address: address,
			Key:     key,
			Fields:  []string{line},
		}
		if len(proxies) != 0 {
			entry.Proxy = NormalizeProxy(proxies[i])
			entry.Fields = append(entry.Fields, proxies[i])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Account decrypts the entry key with password and returns the account it controls.
// An empty password means the key is stored in clear.
func (e Entry) Account(password string) (*models.Account, error) {
	hexKey := e.Key
	if password != "" {
		decrypted, err := Decrypt(e.Key, password)
		if err != nil {
			return nil, err
		}
		hexKey = decrypted
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	if e.Address != "" && common.IsHexAddress(e.Address) && common.HexToAddress(e.Address) != address {
		return nil, fmt.Errorf("private key does not match address %s", e.Address)
	}

	return &models.Account{
		Address:    address,
		PrivateKey: privateKey,
		Proxy:      e.Proxy,
		Fields:     e.Fields,
	}, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
