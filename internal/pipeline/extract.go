package pipeline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"roverstatus/internal"
	"roverstatus/internal/util"
)

// statusPattern is the whole grammar of a status report sentence. The anchor
// phrases and digit counts only cover reports from 2009 onwards; other eras are
// phrased differently and must not match.
//
// Groups: 1 sol, 3 date fragment, 4 energy (Wh), 5 tau, 6 dust factor.
var statusPattern = regexp.MustCompile(`(?i)As of Sol\s(\d{4})(\s\((.*)\)){0,1}.*\s(\d{1,4})\swatt-hours.*\(Tau\)\sof (\d{1}\.\d{1,3}).*dust factor of (\d{1}\.\d{1,4})\.`)

const (
	groupSol  = 1
	groupDate = 3
	groupWh   = 4
	groupTau  = 5
	groupDust = 6
)

// ErrInconsistentCapture means a group the pattern constrained to digits failed
// numeric parsing.
var ErrInconsistentCapture = errors.New("captured field failed numeric parse")

// SkipFunc receives the index of a block that matched but was dropped.
type SkipFunc func(index int, err error)

// ExtractRecord returns nil, nil when block is not a status report. Unicode
// spaces in block count as whitespace.
func ExtractRecord(block string) (*internal.StatusRecord, error) {
	block = util.FoldSpaces(block)
	loc := statusPattern.FindStringSubmatchIndex(block)
	if loc == nil {
		return nil, nil
	}

	captures := make([]*string, len(loc)/2)
	for n := range captures {
		start, end := loc[2*n], loc[2*n+1]
		if start < 0 {
			continue
		}
		v := block[start:end]
		captures[n] = &v
	}

	record, err := buildRecord(captures)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func buildRecord(captures []*string) (internal.StatusRecord, error) {
	sol, err := parseIntCapture(captures, groupSol, "sol")
	if err != nil {
		return internal.StatusRecord{}, err
	}
	wh, err := parseIntCapture(captures, groupWh, "wh")
	if err != nil {
		return internal.StatusRecord{}, err
	}
	tau, err := parseFloatCapture(captures, groupTau, "tau")
	if err != nil {
		return internal.StatusRecord{}, err
	}
	dust, err := parseFloatCapture(captures, groupDust, "dust")
	if err != nil {
		return internal.StatusRecord{}, err
	}

	return internal.StatusRecord{
		Sol:        sol,
		Date:       NormalizeDate(captureAt(captures, groupDate)),
		EnergyWh:   wh,
		TauFactor:  tau,
		DustFactor: dust,
	}, nil
}

func captureAt(captures []*string, n int) *string {
	if n < len(captures) {
		return captures[n]
	}
	return nil
}

func parseIntCapture(captures []*string, n int, field string) (int, error) {
	raw := captureAt(captures, n)
	if raw == nil {
		return 0, fmt.Errorf("%w: %s missing", ErrInconsistentCapture, field)
	}
	v, err := strconv.Atoi(*raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInconsistentCapture, field, *raw, err)
	}
	return v, nil
}

func parseFloatCapture(captures []*string, n int, field string) (float64, error) {
	raw := captureAt(captures, n)
	if raw == nil {
		return 0, fmt.Errorf("%w: %s missing", ErrInconsistentCapture, field)
	}
	v, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInconsistentCapture, field, *raw, err)
	}
	return v, nil
}

// ExtractRecords keeps input order. Blocks that match but fail to convert are
// reported to onSkip and left out; onSkip may be nil.
func ExtractRecords(blocks []string, onSkip SkipFunc) []internal.StatusRecord {
	out := make([]internal.StatusRecord, 0)
	for i, block := range blocks {
		record, err := ExtractRecord(block)
		if err != nil {
			if onSkip != nil {
				onSkip(i, err)
			}
			continue
		}
		if record == nil {
			continue
		}
		out = append(out, *record)
	}
	return out
}
