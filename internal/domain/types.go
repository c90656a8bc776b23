package domain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainPolygonMainnet  Chain = "eip155:137"
	ChainPolygonAmoy     Chain = "eip155:80002"
)

// EVMChainID returns the numeric EIP-155 chain id encoded in the CAIP-2 identifier
func (c Chain) EVMChainID() (*big.Int, error) {
	namespace, reference, ok := strings.Cut(string(c), ":")
	if !ok || namespace != "eip155" {
		return nil, fmt.Errorf("unsupported chain: %s", c)
	}

	id, ok := new(big.Int).SetString(reference, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain reference: %s", c)
	}

	return id, nil
}

// ChainFromID builds the CAIP-2 identifier for an EVM chain id
func ChainFromID(id *big.Int) Chain {
	if id == nil {
		return ""
	}
	return Chain("eip155:" + id.String())
}

// ContentHash identifies a payload in the content-addressed store
type ContentHash string

func (h ContentHash) String() string {
	return string(h)
}

// Empty reports whether the hash carries no content id
func (h ContentHash) Empty() bool {
	return strings.TrimSpace(string(h)) == ""
}

// TokenID is the sequential token number assigned at mint time
type TokenID uint64

func (id TokenID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// BigInt returns the token id as a big.Int for ABI packing
func (id TokenID) BigInt() *big.Int {
	return new(big.Int).SetUint64(uint64(id))
}

// ParseTokenID parses a decimal token id, rejecting zero
func ParseTokenID(s string) (TokenID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid token id %q: %w", s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("invalid token id %q: token ids start at %d", s, FIRST_TOKEN_ID)
	}
	return TokenID(v), nil
}

// Attribute is a single trait entry in token metadata
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// TokenMetadata is the JSON document referenced by a token's metadata pointer
type TokenMetadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       ContentHash `json:"image"`
	ExternalURL string      `json:"external_url"`
	Attributes  []Attribute `json:"attributes"`
}

// Artist returns the value of the artist attribute, if any
func (m *TokenMetadata) Artist() string {
	for _, attr := range m.Attributes {
		if attr.TraitType == TRAIT_TYPE_ARTIST {
			return attr.Value
		}
	}
	return ""
}

// MediaFile is a user-supplied media payload
type MediaFile struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// MintReceipt summarizes a confirmed mint transaction
type MintReceipt struct {
	TokenID      TokenID     `json:"token_id"`
	Owner        string      `json:"owner"`
	ImageHash    ContentHash `json:"image_hash"`
	MetadataHash ContentHash `json:"metadata_hash"`
	TxHash       string      `json:"tx_hash"`
	BlockNumber  uint64      `json:"block_number"`
	GasUsed      uint64      `json:"gas_used"`
}

// Token is the rendered view of a single token
type Token struct {
	TokenID      TokenID     `json:"token_id"`
	Owner        string      `json:"owner,omitempty"`
	MetadataHash ContentHash `json:"metadata_hash,omitempty"`
	Name         string      `json:"name,omitempty"`
	Description  string      `json:"description,omitempty"`
	Artist       string      `json:"artist,omitempty"`
	ImageURL     string      `json:"image_url"`
	IsImage      *bool       `json:"is_image,omitempty"`
}

// MintedEvent is published after a mint is confirmed
type MintedEvent struct {
	ID              string      `json:"id"`
	Chain           Chain       `json:"chain"`
	ContractAddress string      `json:"contract_address"`
	TokenID         TokenID     `json:"token_id"`
	Owner           string      `json:"owner"`
	MetadataHash    ContentHash `json:"metadata_hash"`
	TxHash          string      `json:"tx_hash"`
	BlockNumber     uint64      `json:"block_number"`
	Timestamp       time.Time   `json:"timestamp"`
}

// NormalizeAddress returns the checksummed form of an Ethereum address
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid ethereum address: %s", address)
	}
	return common.HexToAddress(address).Hex(), nil
}

// ShortenAddress renders an address as its first four and last six characters
func ShortenAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:4] + "..." + address[len(address)-6:]
}
