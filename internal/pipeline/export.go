package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"roverstatus/internal"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatYAML = "yaml"
)

var recordHeaders = []string{"Sol", "Date", "Wh", "TauFactor", "SADustFactor"}

type CSVOptions struct {
	Delimiter rune
	Newline   string
}

func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: ',', Newline: "\r"}
}

func ParseFormat(value string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(value)); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// WriteCSV writes a header row and one row per record. Rows are separated by
// opts.Newline; no terminator follows the last row.
func WriteCSV(w io.Writer, records []internal.StatusRecord, opts CSVOptions) error {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.Newline == "" {
		opts.Newline = "\r"
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.Comma = opts.Delimiter

	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, recordHeaders)
	for _, r := range records {
		rows = append(rows, recordRow(r))
	}

	for i, row := range rows {
		buf.Reset()
		if err := cw.Write(row); err != nil {
			return err
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		line := strings.TrimSuffix(buf.String(), "\n")
		if i > 0 {
			line = opts.Newline + line
		}
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}

func recordRow(r internal.StatusRecord) []string {
	return []string{
		strconv.Itoa(r.Sol),
		r.Date,
		strconv.Itoa(r.EnergyWh),
		formatFloat(r.TauFactor),
		formatFloat(r.DustFactor),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func WriteYAML(w io.Writer, records []internal.StatusRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if records == nil {
		records = []internal.StatusRecord{}
	}
	if err := enc.Encode(records); err != nil {
		return err
	}
	return enc.Close()
}

func WriteXLSX(w io.Writer, records []internal.StatusRecord) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for i, h := range recordHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range records {
		row := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, value)
		}
		set(1, r.Sol)
		set(2, r.Date)
		set(3, r.EnergyWh)
		set(4, r.TauFactor)
		set(5, r.DustFactor)
	}

	_, err := f.WriteTo(w)
	return err
}

// ExportRecords writes records to outputPath on fsys in the given format,
// creating parent directories as needed.
func ExportRecords(fsys afero.Fs, format string, records []internal.StatusRecord, outputPath string, opts CSVOptions) error {
	if err := fsys.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := fsys.Create(outputPath)
	if err != nil {
		return err
	}

	if err := WriteRecords(f, format, records, opts); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func WriteRecords(w io.Writer, format string, records []internal.StatusRecord, opts CSVOptions) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, records, opts)
	case FormatXLSX:
		return WriteXLSX(w, records)
	case FormatYAML:
		return WriteYAML(w, records)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
