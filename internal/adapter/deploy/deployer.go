// Package deploy implements the deployment collaborator. The only supported
// target is an artifact-store upload; hosted targets fail until their
// provider integrations land.
package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"time"

	"github.com/strogmv/forge/internal/domain"
	"github.com/strogmv/forge/internal/port"
)

const presignTTL = 24 * time.Hour

// Deployer publishes the generated bundle. It is invoked exactly once per
// run, in the deploying stage.
type Deployer struct {
	store port.ArtifactStore
	log   *slog.Logger
}

func New(store port.ArtifactStore, log *slog.Logger) *Deployer {
	return &Deployer{store: store, log: log}
}

func (d *Deployer) Deploy(
	ctx context.Context,
	req domain.BusinessRequirement,
	target domain.DeploymentTarget,
	artifacts map[domain.ArtifactCategory]domain.ArtifactBundle,
) (string, error) {
	switch target {
	case domain.TargetS3:
		return d.deployToStore(ctx, req, artifacts)
	case domain.TargetVercel, domain.TargetNetlify:
		// TODO(deploy): wire provider APIs once accounts/config land.
		// Until then the target must fail rather than report a URL that
		// points at nothing.
		return "", fmt.Errorf("deployment target %q is not yet supported", target)
	default:
		return "", fmt.Errorf("unsupported deployment target %q", target)
	}
}

func (d *Deployer) deployToStore(
	ctx context.Context,
	req domain.BusinessRequirement,
	artifacts map[domain.ArtifactCategory]domain.ArtifactBundle,
) (string, error) {
	if d.store == nil {
		return "", fmt.Errorf("artifact store not configured")
	}

	archive, err := zipBundle(artifacts)
	if err != nil {
		return "", fmt.Errorf("archive bundle: %w", err)
	}

	key := fmt.Sprintf("bundles/%s/%d.zip", req.Name, time.Now().UTC().Unix())
	if _, err := d.store.Upload(ctx, key, bytes.NewReader(archive), "application/zip"); err != nil {
		return "", err
	}

	url, err := d.store.PresignGet(ctx, key, presignTTL)
	if err != nil {
		return "", err
	}
	d.log.Info("bundle deployed",
		slog.String("key", key),
		slog.Int("bytes", len(archive)))
	return url, nil
}

// zipBundle flattens the category bundles into one deterministic archive,
// files sorted by category and name.
func zipBundle(artifacts map[domain.ArtifactCategory]domain.ArtifactBundle) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	cats := make([]string, 0, len(artifacts))
	for cat := range artifacts {
		cats = append(cats, string(cat))
	}
	sort.Strings(cats)

	for _, cat := range cats {
		bundle := artifacts[domain.ArtifactCategory(cat)]
		names := make([]string, 0, len(bundle))
		for name := range bundle {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			w, err := zw.Create(path.Join(cat, name))
			if err != nil {
				return nil, err
			}
			if _, err := w.Write([]byte(bundle[name])); err != nil {
				return nil, err
			}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
