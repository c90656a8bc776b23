package domain

const (
	// Gateway constants
	DEFAULT_IPFS_GATEWAY = "https://ipfs.io/ipfs/"

	// Pinning collection used when none is configured
	DEFAULT_PIN_NAME = "nftmarketplace"

	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// Metadata attribute trait carrying the artist name
	TRAIT_TYPE_ARTIST = "artist"

	// First token id handed out by the contract
	FIRST_TOKEN_ID TokenID = 1
)
