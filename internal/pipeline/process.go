package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"roverstatus/internal"
	"roverstatus/internal/config"
	"roverstatus/internal/storage"
)

type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	fs     afero.Fs
	logger *log.Logger
}

// NewProcessingService accepts a nil db for extraction without persistence.
func NewProcessingService(db *storage.DB, cfg config.Config, fsys afero.Fs, logger *log.Logger) *ProcessingService {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ProcessingService{db: db, cfg: cfg, fs: fsys, logger: logger}
}

type ProcessResult struct {
	RunID   string
	Source  string
	Records []internal.StatusRecord
	Counts  internal.RunCounts
	Timings map[string]float64
}

func (s *ProcessingService) ExtractFile(ctx context.Context, path string, kind internal.SourceKind) (ProcessResult, error) {
	blob, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("read input: %w", err)
	}
	if kind == "" || kind == internal.SourceAuto {
		kind = DetectKind(path)
	}
	return s.ExtractContent(ctx, path, kind, blob)
}

func (s *ProcessingService) ExtractContent(ctx context.Context, source string, kind internal.SourceKind, content []byte) (ProcessResult, error) {
	start := time.Now()
	res := ProcessResult{RunID: newRunID(), Source: source}

	blocks, err := BlocksFromBytes(kind, content)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("read blocks from %s: %w", source, err)
	}
	blocksMs := msSince(start)

	skipped := 0
	onSkip := func(index int, err error) {
		skipped++
		s.logger.Printf("warn: dropped status block source=%s block=%d err=%v", source, index, err)
	}

	extractStart := time.Now()
	results, err := extractBlocks(ctx, blocks, s.cfg.ExtractWorkers)
	if err != nil {
		return ProcessResult{}, err
	}
	records := collectRecords(results, onSkip)

	candidates := 0
	for i, block := range blocks {
		detect := DetectStatusReport(block)
		if !detect.IsCandidate {
			continue
		}
		candidates++
		if results[i].record == nil && results[i].err == nil {
			s.logger.Printf("warn: status-like block did not match source=%s block=%d missing=%s", source, i, strings.Join(detect.Missing, "|"))
		}
	}

	res.Records = records
	res.Counts = internal.RunCounts{
		Blocks:     len(blocks),
		Candidates: candidates,
		Matched:    len(records),
		Skipped:    skipped,
	}
	res.Timings = map[string]float64{
		"blocksMs":  blocksMs,
		"extractMs": msSince(extractStart),
		"totalMs":   msSince(start),
	}
	return res, nil
}

// ProcessFile extracts path and persists the records together with a run row.
func (s *ProcessingService) ProcessFile(ctx context.Context, path string, kind internal.SourceKind) (ProcessResult, error) {
	res, err := s.ExtractFile(ctx, path, kind)
	if err != nil {
		return ProcessResult{}, err
	}
	return res, s.Store(res)
}

func (s *ProcessingService) ProcessContent(ctx context.Context, source string, kind internal.SourceKind, content []byte) (ProcessResult, error) {
	res, err := s.ExtractContent(ctx, source, kind, content)
	if err != nil {
		return ProcessResult{}, err
	}
	return res, s.Store(res)
}

// Store writes the run and its records together; on error neither is kept.
func (s *ProcessingService) Store(res ProcessResult) error {
	if s.db == nil {
		return fmt.Errorf("store %s: no database configured", res.Source)
	}
	run := internal.RunRow{ID: res.RunID, Source: res.Source, Counts: res.Counts, Timings: res.Timings}
	if err := s.db.SaveRun(run, res.Records); err != nil {
		return fmt.Errorf("store run: %w", err)
	}
	return nil
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func newRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
