package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/form990-extractor/internal/app"
	"github.com/a3tai/form990-extractor/internal/config"
	"github.com/a3tai/form990-extractor/internal/export"
	"github.com/a3tai/form990-extractor/internal/extractor"
	"github.com/a3tai/form990-extractor/internal/form990"
	"github.com/a3tai/form990-extractor/internal/logging"
	"github.com/a3tai/form990-extractor/internal/session"
	"github.com/a3tai/form990-extractor/internal/upload"
)

var version = "dev" // This will be set by build flags

var (
	sectionFlag = pflag.String("section", string(form990.Page1Summary), "Section to print: page1, part_viii, part_ix")
	exportFlag  = pflag.StringSlice("export", []string{string(export.FormatJSON), string(export.FormatCSV)}, "Export formats to write (json, csv, xlsx); empty to skip")
	helpFlag    = pflag.BoolP("help", "h", false, "Show help message")
)

// options are the per-run choices parsed from the command line
type options struct {
	path    string
	section form990.Section
	formats []export.Format
}

func main() {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		fmt.Println("form990-extract", version)
		return
	}
	if *helpFlag {
		printHelp(os.Stdout)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts, err := parseOptions(pflag.Args(), *sectionFlag, *exportFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, a.Session, opts, os.Stdout); err != nil {
		logger.Debug("extract.cli.failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func parseOptions(args []string, section string, formats []string) (options, error) {
	if len(args) != 1 {
		return options{}, errors.New("exactly one PDF file path is required")
	}

	sec, err := form990.ParseSection(section)
	if err != nil {
		return options{}, err
	}

	opts := options{path: args[0], section: sec}
	for _, name := range formats {
		if name == "" {
			continue
		}
		f, err := export.ParseFormat(name)
		if err != nil {
			return options{}, err
		}
		opts.formats = append(opts.formats, f)
	}
	return opts, nil
}

// run drives one select, extract, review and export cycle
func run(ctx context.Context, sess *session.Session, opts options, out io.Writer) error {
	abs, err := filepath.Abs(opts.path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	candidate, err := upload.Probe(abs)
	if err != nil {
		return err
	}

	snap := sess.SelectFile(candidate)
	if !snap.Upload.HasFile() {
		return fmt.Errorf("not a PDF: %s (%s)", candidate.Name, candidate.MediaType)
	}
	if snap.Notice != "" {
		fmt.Fprintf(out, "Warning: %s\n", snap.Notice)
	}

	snap, err = sess.Extract(ctx)
	if err != nil {
		return err
	}
	if snap.Request.Phase == extractor.Failed {
		return errors.New(snap.Request.Message)
	}

	if _, err := sess.SetSection(opts.section); err != nil {
		return err
	}
	view, err := sess.View()
	if err != nil {
		return err
	}
	printView(out, view)

	for _, format := range opts.formats {
		path, err := sess.Export(format, "")
		if err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	return nil
}

func printView(out io.Writer, view form990.View) {
	if name := view.Result().Filename; name != "" {
		fmt.Fprintf(out, "File: %s\n", name)
	}
	fmt.Fprintf(out, "Section: %s\n", view.Active().Title())
	if banner := view.WarningBanner(); banner != "" {
		fmt.Fprintf(out, "Warning: %s\n", banner)
	}
	fmt.Fprintln(out)

	width := 0
	rows := view.Rows()
	for _, row := range rows {
		if len(row.Label) > width {
			width = len(row.Label)
		}
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  %-*s  %s\n", width, row.Label, row.Value)
	}
	fmt.Fprintln(out)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Form 990 Extract - submit one IRS Form 990 PDF and export the extracted fields")
	fmt.Fprintln(w)
	printUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, pflag.CommandLine.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  form990-extract --api-url=http://localhost:8000 return.pdf")
	fmt.Fprintln(w, "  form990-extract --section=part_ix --export=xlsx return.pdf")
	fmt.Fprintln(w, "  FORM990_API_URL=http://ocr:8000 form990-extract --export= return.pdf")
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  form990-extract [OPTIONS] <pdf_file>")
}
