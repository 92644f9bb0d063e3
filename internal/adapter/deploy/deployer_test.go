package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/strogmv/forge/internal/domain"
)

type fakeStore struct {
	keys []string
	data []byte
}

func (s *fakeStore) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	s.keys = append(s.keys, key)
	s.data, _ = io.ReadAll(reader)
	return key, nil
}

func (s *fakeStore) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	return "https://store.example.com/" + key, nil
}

func TestDeployToStoreUploadsZip(t *testing.T) {
	store := &fakeStore{}
	d := New(store, slog.New(slog.DiscardHandler))

	url, err := d.Deploy(context.Background(),
		domain.BusinessRequirement{Name: "crm"},
		domain.TargetS3,
		map[domain.ArtifactCategory]domain.ArtifactBundle{
			domain.CategoryComponents: {"App.tsx": "export {}\n"},
			domain.CategoryDatabase:   {"schema.sql": "CREATE TABLE t ();\n"},
		})
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	if url == "" {
		t.Fatal("expected deployment url")
	}
	if len(store.keys) != 1 {
		t.Fatalf("uploads = %d, want 1", len(store.keys))
	}

	zr, err := zip.NewReader(bytes.NewReader(store.data), int64(len(store.data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("archive files = %d, want 2", len(zr.File))
	}
	// Deterministic ordering: categories sorted, then filenames.
	if zr.File[0].Name != "components/App.tsx" {
		t.Fatalf("first entry = %s", zr.File[0].Name)
	}
}

func TestHostedTargetsNotYetSupported(t *testing.T) {
	d := New(nil, slog.New(slog.DiscardHandler))
	for _, target := range []domain.DeploymentTarget{domain.TargetVercel, domain.TargetNetlify} {
		url, err := d.Deploy(context.Background(),
			domain.BusinessRequirement{Name: "crm"}, target, nil)
		if err == nil {
			t.Fatalf("target %s: expected error, got url %q", target, url)
		}
	}
}

func TestDeployUnknownTargetFails(t *testing.T) {
	d := New(nil, slog.New(slog.DiscardHandler))
	_, err := d.Deploy(context.Background(), domain.BusinessRequirement{}, domain.TargetNone, nil)
	if err == nil {
		t.Fatal("expected error for unsupported target")
	}
}
