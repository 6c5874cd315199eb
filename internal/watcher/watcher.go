package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"roverstatus/internal/config"
	"roverstatus/internal/pipeline"
	"roverstatus/internal/storage"
)

const exportFileName = "rover-status.csv"

type Service struct {
	db        *storage.DB
	cfg       config.Config
	fs        afero.Fs
	logger    *log.Logger
	processor *pipeline.ProcessingService
}

func NewService(db *storage.DB, cfg config.Config, fsys afero.Fs, logger *log.Logger) *Service {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		fs:        fsys,
		logger:    logger,
		processor: pipeline.NewProcessingService(db, cfg, fsys, logger),
	}
}

type CycleResult struct {
	Seen      int
	Processed int
	Failed    int
	Records   int
}

// Run polls the input directory until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	for {
		res, err := s.RunCycle(ctx)
		if err != nil {
			s.logger.Printf("watch cycle error: %v", err)
		} else if res.Processed > 0 || res.Failed > 0 {
			s.logger.Printf("watch cycle done dir=%s seen=%d processed=%d failed=%d records=%d", s.cfg.InputDir, res.Seen, res.Processed, res.Failed, res.Records)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	if err := s.fs.MkdirAll(s.cfg.InputDir, 0o755); err != nil {
		return res, err
	}

	entries, err := afero.ReadDir(s.fs, s.cfg.InputDir)
	if err != nil {
		return res, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !isDocument(entry) {
			continue
		}
		res.Seen++

		path := filepath.Join(s.cfg.InputDir, entry.Name())
		n, processed, err := s.processFile(ctx, path)
		if err != nil {
			res.Failed++
			s.logger.Printf("warn: watch file failed path=%s err=%v", path, err)
			continue
		}
		if processed {
			res.Processed++
			res.Records += n
		}
	}

	if res.Processed > 0 && s.cfg.WatchAutoExport {
		if err := s.exportAll(); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (s *Service) processFile(ctx context.Context, path string) (int, bool, error) {
	blob, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return 0, false, err
	}
	sum := sha256.Sum256(blob)
	hash := hex.EncodeToString(sum[:])

	done, err := s.db.IsFileProcessed(hash)
	if err != nil {
		return 0, false, err
	}
	if done {
		return 0, false, nil
	}

	result, err := s.processor.ProcessContent(ctx, path, pipeline.DetectKind(path), blob)
	if err != nil {
		return 0, false, err
	}
	if err := s.db.MarkFileProcessed(hash, path, result.RunID); err != nil {
		return 0, false, err
	}
	return len(result.Records), true, nil
}

func (s *Service) exportAll() error {
	stored, err := s.db.ListRecords(0, 0)
	if err != nil {
		return err
	}
	opts := pipeline.CSVOptions{Delimiter: s.cfg.CSVDelimiter, Newline: s.cfg.CSVNewline}
	out := filepath.Join(s.cfg.OutputDir, exportFileName)
	if err := pipeline.ExportRecords(s.fs, pipeline.FormatCSV, storage.Records(stored), out, opts); err != nil {
		return err
	}
	return s.db.SetMetadata("watch.last_export", time.Now().UTC().Format(time.RFC3339))
}

func isDocument(entry os.FileInfo) bool {
	if entry.IsDir() {
		return false
	}
	name := entry.Name()
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, "~")
}
