package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSignerRequired is returned when an operation needs a connected wallet
	ErrSignerRequired = errors.New("signer required: no wallet connected")

	// ErrUploadEndpointUnconfigured is returned when a storage endpoint is missing from config
	ErrUploadEndpointUnconfigured = errors.New("storage endpoint is not configured")

	// ErrTokenNotFound is returned when a token id is outside the minted range
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidAddress is returned for malformed wallet addresses
	ErrInvalidAddress = errors.New("invalid address")
)

// ValidationError reports missing or malformed mint input
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: missing %s", strings.Join(e.Fields, ", "))
}

// UploadError wraps a failure from the content storage service
type UploadError struct {
	Op  string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed (%s): %v", e.Op, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// MintError wraps a failed or reverted mint transaction
type MintError struct {
	TokenID TokenID
	TxHash  string
	Message string
	Err     error
}

func (e *MintError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.TxHash != "" {
		return fmt.Sprintf("mint of token %d failed (tx %s): %s", e.TokenID, e.TxHash, msg)
	}
	return fmt.Sprintf("mint of token %d failed: %s", e.TokenID, msg)
}

func (e *MintError) Unwrap() error {
	return e.Err
}

// OwnershipCheckError wraps a failed ownerOf read
type OwnershipCheckError struct {
	TokenID TokenID
	Err     error
}

func (e *OwnershipCheckError) Error() string {
	return fmt.Sprintf("ownership check for token %d failed: %v", e.TokenID, e.Err)
}

func (e *OwnershipCheckError) Unwrap() error {
	return e.Err
}
