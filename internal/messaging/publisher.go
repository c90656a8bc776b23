package messaging

import (
	"context"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

// Subjects events are published under
const (
	SubjectTokenMinted = "marketplace.token.minted"
)

// Publisher defines the interface for publishing marketplace events to a message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishMinted publishes a confirmed mint
	PublishMinted(ctx context.Context, event *domain.MintedEvent) error
	// Close closes the connection
	Close()
}

type noopPublisher struct{}

// NoopPublisher returns a publisher that discards every event
func NoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishMinted(context.Context, *domain.MintedEvent) error {
	return nil
}

func (noopPublisher) Close() {}
