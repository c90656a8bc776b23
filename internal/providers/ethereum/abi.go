package ethereum

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/feral-file/ff-marketplace/internal/adapter"
)

// Method signatures the marketplace contract must expose
const (
	sigTotalSupply = "totalSupply()"
	sigOwnerOf     = "ownerOf(uint256)"
	sigTokenURI    = "tokenURI(uint256)"
	sigMint        = "mint(address,uint256,string)"
)

// defaultABI covers the four methods used by the marketplace
const defaultABI = `[
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"uri","type":"string"}],"name":"mint","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

// contractMethods holds the resolved methods of the marketplace contract
type contractMethods struct {
	totalSupply abi.Method
	ownerOf     abi.Method
	tokenURI    abi.Method
	mint        abi.Method
}

// LoadABI reads the contract ABI from path, or returns the built-in ABI when path is empty
func LoadABI(fs adapter.FileSystem, path string) (abi.ABI, error) {
	if path == "" {
		return abi.JSON(strings.NewReader(defaultABI))
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to read ABI file %s: %w", path, err)
	}

	parsed, err := abi.JSON(bytes.NewReader(data))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI file %s: %w", path, err)
	}

	return parsed, nil
}

// resolveMethods looks the required methods up by full signature so overloaded names still resolve
func resolveMethods(parsed abi.ABI) (*contractMethods, error) {
	bySig := make(map[string]abi.Method, len(parsed.Methods))
	for _, m := range parsed.Methods {
		bySig[m.Sig] = m
	}

	lookup := func(sig string) (abi.Method, error) {
		m, ok := bySig[sig]
		if !ok {
			return abi.Method{}, fmt.Errorf("contract ABI is missing %s", sig)
		}
		return m, nil
	}

	var methods contractMethods
	var err error
	if methods.totalSupply, err = lookup(sigTotalSupply); err != nil {
		return nil, err
	}
	if methods.ownerOf, err = lookup(sigOwnerOf); err != nil {
		return nil, err
	}
	if methods.tokenURI, err = lookup(sigTokenURI); err != nil {
		return nil, err
	}
	if methods.mint, err = lookup(sigMint); err != nil {
		return nil, err
	}

	return &methods, nil
}

// pack encodes a call to m with args
func pack(m abi.Method, args ...interface{}) ([]byte, error) {
	encoded, err := m.Inputs.Pack(args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", m.Sig, err)
	}
	return append(append([]byte{}, m.ID...), encoded...), nil
}

// unpackSingle decodes the single return value of m
func unpackSingle(m abi.Method, data []byte) (interface{}, error) {
	values, err := m.Outputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", m.Sig, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %d return values from %s", len(values), m.Sig)
	}
	return values[0], nil
}
