// Command xblk-report extracts XBLK NCO data from a packet capture and
// prints one comma-separated line per record.
//
// The input is either a Wireshark export (File > Export Packet
// Dissections > As Plain Text, with "Packet Bytes" only selected) or a
// PCAP/PCAPNG capture file.
//
// Usage:
//
//	xblk-report [flags] <filename> <SIR>
//
// SIR is the sample interval in milliseconds.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/xblk-report/internal/config"
	"github.com/banshee-data/xblk-report/internal/fsutil"
	"github.com/banshee-data/xblk-report/internal/ingest"
	"github.com/banshee-data/xblk-report/internal/report"
	"github.com/banshee-data/xblk-report/internal/version"
	"github.com/banshee-data/xblk-report/internal/xblk"
)

// Exit codes
const (
	exitOK     = 0
	exitUsage  = 1 // bad flags, arguments, config or sample interval
	exitIO     = 2 // input missing or unreadable, output not writable
	exitDecode = 3 // malformed input under the fail policy
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, fsutil.OSFileSystem{}))
}

// options holds the parsed command line.
type options struct {
	configPath   string
	format       string
	strictLegacy bool
	legacyMask   bool
	policy       string
	summaryPath  string
	chartPath    string
	plotPath     string
	quiet        bool
	showVersion  bool

	filename string
	sir      string
	set      map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("xblk-report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "JSON decoder config file")
	fs.StringVar(&o.format, "format", "auto", "Input format: auto, text or pcap")
	fs.BoolVar(&o.strictLegacy, "strict-legacy", true, "Fixed type-0 level offset and legacy NCO column order")
	fs.BoolVar(&o.legacyMask, "legacy-scale-mask", true, "Use the legacy type-3 scale mask (data&0x0c)>>6")
	fs.StringVar(&o.policy, "policy", "", "Malformed record policy: skip or fail (default skip)")
	fs.StringVar(&o.summaryPath, "summary", "", "Write a JSON run summary to this path")
	fs.StringVar(&o.chartPath, "chart", "", "Write an HTML chart of the NCO differences to this path")
	fs.StringVar(&o.plotPath, "plot", "", "Write a PNG plot of the NCO differences to this path")
	fs.BoolVar(&o.quiet, "quiet", false, "Suppress log output")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: xblk-report [flags] <filename> <SIR>\n\n")
		fmt.Fprintf(stderr, "Parse a Wireshark text export or capture file for XBLK contents.\n")
		fmt.Fprintf(stderr, "SIR is the sample interval in milliseconds.\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.filename = fs.Arg(0)
	o.sir = fs.Arg(1)
	if fs.NArg() > 2 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args()[2:])
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer, fsys fsutil.FileSystem) int {
	o, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "xblk-report: %v\n", err)
		return exitUsage
	}

	if o.showVersion {
		fmt.Fprintf(stdout, "xblk-report %s\n", version.String())
		return exitOK
	}

	logOut := stderr
	if o.quiet {
		logOut = io.Discard
	}
	logger := log.New(logOut, "", log.LstdFlags)

	cfg, err := loadConfig(o, fsys)
	if err != nil {
		fmt.Fprintf(stderr, "xblk-report: %v\n", err)
		return exitUsage
	}

	if o.filename == "" {
		fmt.Fprintln(stderr, "xblk-report: input filename is required")
		return exitUsage
	}

	sir, err := sampleInterval(o, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "xblk-report: %v\n", err)
		return exitUsage
	}

	format, err := ingest.ParseFormat(o.format)
	if err != nil {
		fmt.Fprintf(stderr, "xblk-report: %v\n", err)
		return exitUsage
	}

	in, err := fsys.Open(o.filename)
	if err != nil {
		fmt.Fprintf(stderr, "xblk-report: failed to open input: %v\n", err)
		return exitIO
	}
	defer in.Close()
	logger.Printf("Input file selected: %s", o.filename)

	decoder := xblk.NewDecoder(cfg.DecoderOptions())
	out := report.NewWriter(stdout)
	summary := report.NewSummary(o.filename, decoder)
	p := &processor{
		decoder: decoder,
		sir:     sir,
		policy:  cfg.GetShortRecordPolicy(),
		out:     out,
		summary: summary,
		logger:  logger,
	}

	if err := out.WriteHeader(); err != nil {
		fmt.Fprintf(stderr, "xblk-report: failed to write report: %v\n", err)
		return exitIO
	}
	used, readErr := ingest.Read(in, format, p.handle)
	summary.Format = used.String()
	summary.Finish()
	if err := out.Flush(); err != nil && readErr == nil {
		readErr = &outputError{err: err}
	}
	if readErr != nil {
		fmt.Fprintf(stderr, "xblk-report: %v\n", readErr)
		return exitCode(readErr)
	}

	logger.Printf("Decoded %d records (%d tracking, %d fader, %d unsupported), skipped %d, unparsed %d in %v",
		summary.Records(), summary.Tracking, summary.Fader, summary.Unsupported, summary.Skipped, summary.Unparsed,
		summary.Duration().Round(time.Millisecond))

	if err := writeArtefacts(o, fsys, summary, logger); err != nil {
		fmt.Fprintf(stderr, "xblk-report: %v\n", err)
		return exitIO
	}
	return exitOK
}

func loadConfig(o *options, fsys fsutil.FileSystem) (*config.DecoderConfig, error) {
	cfg := config.DefaultDecoderConfig()
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadDecoderConfig(fsys, o.configPath); err != nil {
			return nil, err
		}
	}
	if o.set["strict-legacy"] {
		cfg.SetStrictLegacyMode(o.strictLegacy)
	}
	if o.set["legacy-scale-mask"] {
		cfg.SetLegacyScaleMask(o.legacyMask)
	}
	if o.set["policy"] {
		cfg.SetShortRecordPolicy(o.policy)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func sampleInterval(o *options, cfg *config.DecoderConfig) (float64, error) {
	if o.sir != "" {
		return xblk.ParseSampleInterval(o.sir)
	}
	if v, ok := cfg.GetSampleIntervalMs(); ok {
		return v, nil
	}
	return 0, fmt.Errorf("%w: SIR argument is required", xblk.ErrConversion)
}

func writeArtefacts(o *options, fsys fsutil.FileSystem, summary *report.Summary, logger *log.Logger) error {
	title := fmt.Sprintf("XBLK NCO differences: %s", filepath.Base(o.filename))
	artefacts := []struct {
		path    string
		charted bool
		render  func(io.Writer) error
	}{
		{o.summaryPath, false, summary.WriteJSON},
		{o.chartPath, true, func(w io.Writer) error { return report.WriteChart(w, summary.Series(), title) }},
		{o.plotPath, true, func(w io.Writer) error { return report.WritePlot(w, summary.Series(), title) }},
	}

	for _, a := range artefacts {
		if a.path == "" {
			continue
		}
		if a.charted && summary.Series().Len() == 0 {
			logger.Printf("Not writing %s: %v", a.path, report.ErrNoSamples)
			continue
		}
		if err := writeArtefact(fsys, a.path, a.render); err != nil {
			return fmt.Errorf("failed to write %s: %w", a.path, err)
		}
		logger.Printf("Wrote %s", a.path)
	}
	return nil
}

func writeArtefact(fsys fsutil.FileSystem, path string, render func(io.Writer) error) error {
	w, err := fsutil.CreateWithDirs(fsys, path)
	if err != nil {
		return err
	}
	if err := render(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
