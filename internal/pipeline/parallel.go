package pipeline

import (
	"context"
	"sync"

	"roverstatus/internal"
)

type extractResult struct {
	record *internal.StatusRecord
	err    error
}

// ExtractRecordsParallel returns the same slice ExtractRecords would, spreading
// blocks over workers. onSkip is called from the calling goroutine, in block order.
func ExtractRecordsParallel(ctx context.Context, blocks []string, workers int, onSkip SkipFunc) ([]internal.StatusRecord, error) {
	results, err := extractBlocks(ctx, blocks, workers)
	if err != nil {
		return nil, err
	}
	return collectRecords(results, onSkip), nil
}

// extractBlocks returns one result per block, indexed like blocks.
func extractBlocks(ctx context.Context, blocks []string, workers int) ([]extractResult, error) {
	results := make([]extractResult, len(blocks))

	if workers <= 1 || len(blocks) < 2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, block := range blocks {
			record, err := ExtractRecord(block)
			results[i] = extractResult{record: record, err: err}
		}
		return results, nil
	}
	if workers > len(blocks) {
		workers = len(blocks)
	}

	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				record, err := ExtractRecord(blocks[i])
				results[i] = extractResult{record: record, err: err}
			}
		}()
	}

feed:
	for i := range blocks {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func collectRecords(results []extractResult, onSkip SkipFunc) []internal.StatusRecord {
	out := make([]internal.StatusRecord, 0)
	for i, res := range results {
		if res.err != nil {
			if onSkip != nil {
				onSkip(i, res.err)
			}
			continue
		}
		if res.record != nil {
			out = append(out, *res.record)
		}
	}
	return out
}
