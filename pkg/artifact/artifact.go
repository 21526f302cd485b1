// Package artifact publishes exported figure files (SVG, PNG, PDF...) to
// object storage so they can be linked from notebooks and dashboards.
//
// Objects are stored under "<figure id>/figure.<format>". [S3Store] writes
// to any S3-compatible service through minio-go; [DirStore] writes to a
// local directory.
package artifact

import (
	"context"
	"strings"

	"github.com/tanaylab/mcbrowse/pkg/errors"
)

// Store is the interface for artifact storage backends.
type Store interface {
	// Put uploads one exported artifact.
	Put(ctx context.Context, figureID, format string, content []byte) error

	// Get downloads an artifact. A missing object fails with NOT_FOUND.
	Get(ctx context.Context, figureID, format string) ([]byte, error)

	// List returns the formats stored for a figure, sorted.
	List(ctx context.Context, figureID string) ([]string, error)

	// URL returns a link to the artifact.
	URL(ctx context.Context, figureID, format string) (string, error)
}

// ObjectKey returns the object name of an artifact.
func ObjectKey(figureID, format string) string {
	return strings.TrimSpace(figureID) + "/figure." + strings.TrimSpace(format)
}

func formatOf(name string) (string, bool) {
	return strings.CutPrefix(name, "figure.")
}

func checkArgs(figureID, format string) error {
	if err := errors.ValidateFigureID(figureID); err != nil {
		return err
	}
	if format == "" || strings.ContainsAny(format, "/\\.") {
		return errors.New(errors.ErrCodeInvalidInput, "invalid artifact format %q", format)
	}
	return nil
}

func notFound(figureID, format string) error {
	return errors.New(errors.ErrCodeNotFound, "no %s artifact for figure %q", format, figureID)
}
