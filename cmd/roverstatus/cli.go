package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"roverstatus/internal/config"
	"roverstatus/internal/pipeline"
	"roverstatus/internal/storage"
	"roverstatus/internal/watcher"
)

func newCLIApp(cfg config.Config, fsys afero.Fs, logger *log.Logger) *cli.App {
	app := &cli.App{
		Name:    "roverstatus",
		Usage:   "Extract rover status telemetry from mission update pages",
		Version: Version,
		Commands: []*cli.Command{
			extractCmd(cfg, fsys, logger),
			exportCmd(cfg, fsys),
			runsCmd(cfg),
			watchCmd(cfg, fsys, logger),
		},
	}
	// main reports errors itself.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func csvOptions(cfg config.Config) pipeline.CSVOptions {
	return pipeline.CSVOptions{Delimiter: cfg.CSVDelimiter, Newline: cfg.CSVNewline}
}

func extractCmd(cfg config.Config, fsys afero.Fs, logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Extract status records from a saved page (html, text, markdown or pdf)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Required: true, Usage: "Input document path"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: "auto", Usage: "auto|html|text|markdown|pdf"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: pipeline.FormatCSV, Usage: "csv|xlsx|yaml"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (stdout when omitted)"},
			&cli.BoolFlag{Name: "store", Usage: "Also persist records in the database"},
		},
		Action: func(c *cli.Context) error {
			kind, err := pipeline.ParseSourceKind(c.String("type"))
			if err != nil {
				return err
			}
			format, err := pipeline.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			out := strings.TrimSpace(c.String("out"))
			if format == pipeline.FormatXLSX && out == "" {
				return fmt.Errorf("--out is required for xlsx output")
			}

			var db *storage.DB
			if c.Bool("store") {
				db, err = storage.Open(cfg.DBPath)
				if err != nil {
					return err
				}
				defer db.Close()
			}

			svc := pipeline.NewProcessingService(db, cfg, fsys, logger)
			res, err := svc.ExtractFile(c.Context, c.String("input"), kind)
			if err != nil {
				return err
			}
			if db != nil {
				if err := svc.Store(res); err != nil {
					return err
				}
			}
			logger.Printf("extract done run=%s blocks=%d candidates=%d matched=%d skipped=%d", res.RunID, res.Counts.Blocks, res.Counts.Candidates, res.Counts.Matched, res.Counts.Skipped)

			if out == "" {
				return pipeline.WriteRecords(c.App.Writer, format, res.Records, csvOptions(cfg))
			}
			if err := pipeline.ExportRecords(fsys, format, res.Records, out, csvOptions(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "extracted %d records to %s\n", len(res.Records), out)
			return nil
		},
	}
}

func exportCmd(cfg config.Config, fsys afero.Fs) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored records ordered by sol",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: pipeline.FormatCSV, Usage: "csv|xlsx|yaml"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (stdout when omitted)"},
			&cli.IntFlag{Name: "from-sol", Usage: "Lowest sol to include"},
			&cli.IntFlag{Name: "to-sol", Usage: "Highest sol to include"},
		},
		Action: func(c *cli.Context) error {
			format, err := pipeline.ParseFormat(c.String("format"))
			if err != nil {
				return err
			}
			out := strings.TrimSpace(c.String("out"))
			if format == pipeline.FormatXLSX && out == "" {
				return fmt.Errorf("--out is required for xlsx output")
			}
			fromSol, toSol := c.Int("from-sol"), c.Int("to-sol")
			if fromSol < 0 || toSol < 0 || (toSol > 0 && fromSol > toSol) {
				return fmt.Errorf("invalid sol range %d..%d", fromSol, toSol)
			}

			db, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stored, err := db.ListRecords(fromSol, toSol)
			if err != nil {
				return err
			}
			records := storage.Records(stored)

			if out == "" {
				return pipeline.WriteRecords(c.App.Writer, format, records, csvOptions(cfg))
			}
			if err := pipeline.ExportRecords(fsys, format, records, out, csvOptions(cfg)); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "exported %d records to %s\n", len(records), out)
			return nil
		},
	}
}

func runsCmd(cfg config.Config) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recent extraction runs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum runs to show"},
		},
		Action: func(c *cli.Context) error {
			db, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := db.ListRuns(c.Int("limit"))
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(c.App.Writer, "%s source=%s blocks=%d candidates=%d matched=%d skipped=%d at=%s\n",
					r.ID, r.Source, r.Counts.Blocks, r.Counts.Candidates, r.Counts.Matched, r.Counts.Skipped, r.CreatedAt)
			}
			return nil
		},
	}
}

func watchCmd(cfg config.Config, fsys afero.Fs, logger *log.Logger) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Process new documents dropped into INPUT_DIR until interrupted",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run a single cycle and exit"},
		},
		Action: func(c *cli.Context) error {
			db, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := watcher.NewService(db, cfg, fsys, logger)
			if !c.Bool("once") {
				return svc.Run(c.Context)
			}
			res, err := svc.RunCycle(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "watch cycle done seen=%d processed=%d failed=%d records=%d\n", res.Seen, res.Processed, res.Failed, res.Records)
			return nil
		},
	}
}
