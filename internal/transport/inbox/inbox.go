package inbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/utils"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

var sources = []model.StatementSource{
	model.SourceStocks,
	model.SourceMutualFunds,
	model.SourceUSStocks,
}

type IngestService interface {
	IngestStatement(ctx context.Context, source model.StatementSource, filename string, r io.Reader) (model.IngestResult, error)
}

// Watcher picks up statement files dropped into per-source inbox
// subdirectories and feeds them through the ingestion pipeline. Handled files
// move to processed/ or failed/ next to their source directory.
type Watcher struct {
	cfg     *config.Config
	service IngestService
}

func NewWatcher(cfg *config.Config, service IngestService) *Watcher {
	return &Watcher{cfg: cfg, service: service}
}

// EnsureDirs creates the inbox layout so a fresh deployment has drop targets.
func (w *Watcher) EnsureDirs() error {
	for _, source := range sources {
		for _, dir := range []string{
			filepath.Join(w.cfg.Ingest.InboxDir, string(source)),
			filepath.Join(w.cfg.Ingest.InboxDir, string(source), processedDir),
			filepath.Join(w.cfg.Ingest.InboxDir, string(source), failedDir),
		} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create inbox dir %s: %w", dir, err)
			}
		}
	}
	return nil
}

// Scan runs one pass over every source directory. Errors on a single file do
// not stop the pass, the file just lands in failed/.
func (w *Watcher) Scan(ctx context.Context) error {
	for _, source := range sources {
		dir := filepath.Join(w.cfg.Ingest.InboxDir, string(source))

		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read inbox dir %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !isSpreadsheet(entry.Name()) {
				continue
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			w.handleFile(ctx, source, dir, entry.Name())
		}
	}

	return nil
}

func (w *Watcher) handleFile(ctx context.Context, source model.StatementSource, dir, name string) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	path := filepath.Join(dir, name)

	f, err := os.Open(path)
	if err != nil {
		slog.Error("failed to open inbox file", slog.String("rqID", rqID), slog.String("path", path), slog.String("err", err.Error()))
		return
	}

	_, ingestErr := w.service.IngestStatement(ctx, source, name, f)
	if closeErr := f.Close(); closeErr != nil {
		slog.Error("failed to close inbox file", slog.String("rqID", rqID), slog.String("path", path), slog.String("err", closeErr.Error()))
	}

	targetDir := processedDir
	if ingestErr != nil {
		targetDir = failedDir
	}

	// timestamp prefix keeps repeated uploads of the same filename apart
	target := filepath.Join(dir, targetDir, fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), name))
	if err := os.Rename(path, target); err != nil {
		slog.Error("failed to move inbox file", slog.String("rqID", rqID), slog.String("path", path), slog.String("target", target), slog.String("err", err.Error()))
	}
}

func isSpreadsheet(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".xlsx" || ext == ".xlsm"
}
