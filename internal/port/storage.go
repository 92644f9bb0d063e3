package port

import (
	"context"
	"io"
	"time"
)

// ArtifactStore persists generated artifact bundles outside the process.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}
