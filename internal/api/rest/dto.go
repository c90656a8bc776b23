package rest

import (
	"github.com/feral-file/ff-marketplace/internal/domain"
)

// TokenListResponse is returned by the owned-token listing and every watch event
type TokenListResponse struct {
	Address string         `json:"address"`
	Tokens  []domain.Token `json:"tokens"`
	Count   int            `json:"count"`
}

// SupplyResponse is returned by GET /api/v1/supply
type SupplyResponse struct {
	TotalSupply uint64 `json:"total_supply"`
}

func newTokenListResponse(address string, tokens []domain.Token) TokenListResponse {
	if tokens == nil {
		tokens = []domain.Token{}
	}
	return TokenListResponse{
		Address: address,
		Tokens:  tokens,
		Count:   len(tokens),
	}
}
