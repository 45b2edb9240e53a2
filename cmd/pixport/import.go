package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/pixport/internal/errreport"
	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/formats"
	"github.com/vmunix/pixport/internal/importer"
	"github.com/vmunix/pixport/internal/metastore"
	"github.com/vmunix/pixport/internal/model"
	"github.com/vmunix/pixport/internal/pixelstore"
)

var importCmd = &cobra.Command{
	Use:   "import [flags] FILE...",
	Short: "Import image files",
	Long: `Import one or more image files in the order given. Each file is
detected by the format registry unless --format forces a reader.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImportCmd,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("format", "", "Force a reader format instead of detecting")
	importCmd.Flags().Bool("archive", false, "Archive every used file in the store")
	importCmd.Flags().String("name", "", "Image name override")
	importCmd.Flags().String("description", "", "Image description")
	importCmd.Flags().String("target", "", "Container as kind:name or kind:id (dataset, screen)")
	importCmd.Flags().String("pixel-size", "", "Physical pixel size override as x,y[,z]")
	importCmd.Flags().Bool("continue-on-error", false, "Keep importing after a failed file")
	importCmd.Flags().Bool("stop-on-error", false, "Stop at the first failed file")
	importCmd.MarkFlagsMutuallyExclusive("continue-on-error", "stop-on-error")
}

// parseTarget parses "kind:name" or "kind:id". A purely numeric value is
// taken as an ID.
func parseTarget(s string) (model.Target, error) {
	if s == "" {
		return model.Target{}, nil
	}
	kind, value, ok := strings.Cut(s, ":")
	if !ok || value == "" {
		return model.Target{}, fmt.Errorf("invalid target %q: want kind:name or kind:id", s)
	}
	t := model.Target{Kind: model.TargetKind(strings.ToLower(kind))}
	switch t.Kind {
	case model.TargetDataset, model.TargetScreen:
	default:
		return model.Target{}, fmt.Errorf("invalid target kind %q: want dataset or screen", kind)
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		if id <= 0 {
			return model.Target{}, fmt.Errorf("invalid target id %d", id)
		}
		t.ID = id
		return t, nil
	}
	t.Name = value
	return t, nil
}

// parsePixelSize parses "x,y" or "x,y,z" in micrometres.
func parsePixelSize(s string) (*model.PhysicalSizes, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid pixel size %q: want x,y or x,y,z", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid pixel size %q: %q is not a positive number", s, p)
		}
		vals[i] = v
	}
	return &model.PhysicalSizes{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// candidatePaths checks that every argument names a regular file and drops
// repeats, keeping the order given.
func candidatePaths(args []string) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory; name the image files to import", arg)
		}
		if !seen[arg] {
			seen[arg] = true
			paths = append(paths, arg)
		}
	}
	return paths, nil
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	cfg := a.cfg

	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = cfg.Import.Format
	}
	archive, _ := cmd.Flags().GetBool("archive")
	archive = archive || cfg.Import.Archive
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")

	continueOnError := cfg.Import.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		continueOnError = true
	}
	if cmd.Flags().Changed("stop-on-error") {
		continueOnError = false
	}

	targetFlag, _ := cmd.Flags().GetString("target")
	target := cfg.Import.Target.Target()
	if targetFlag != "" {
		if target, err = parseTarget(targetFlag); err != nil {
			return err
		}
	}
	sizeFlag, _ := cmd.Flags().GetString("pixel-size")
	pixelSizes, err := parsePixelSize(sizeFlag)
	if err != nil {
		return err
	}

	paths, err := candidatePaths(args)
	if err != nil {
		return err
	}

	bucket, err := a.openBucket(ctx)
	if err != nil {
		return err
	}
	pixels, err := pixelstore.New(bucket, cfg.Storage.EncoderLevel(), a.log)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pixels)
	store := metastore.New(a.db, bucket, pixels, metastore.Options{
		ThumbnailSize:  cfg.Processing.ThumbnailSize,
		Workers:        cfg.Processing.Workers,
		MetadataDir:    cfg.Import.MetadataDir,
		Digest:         cfg.Import.Hash(),
		CompanionExts:  cfg.Import.CompanionExts,
		SkipProcessing: !cfg.Processing.Enabled,
	}, a.log)
	reader, err := formats.NewImageReader(formats.DefaultRegistry(), format, a.log)
	if err != nil {
		return err
	}

	a.bus.Subscribe(events.NewLogObserver(a.log))
	if cfg.Events.Persist {
		a.bus.Subscribe(events.NewEventLog(a.db, a.log))
	}
	collector := errreport.NewCollector(version, a.log)
	a.bus.Subscribe(collector)

	reporters := importer.MultiReporter{importer.NewHistoryReporter(importer.NewHistoryStore(a.db))}
	if !jsonOutput {
		reporters = append(reporters, importer.NewWriterReporter(cmd.OutOrStdout()))
	}
	coord := importer.New(reader, store, pixels, a.bus, importer.Config{
		Digest:   cfg.Import.Hash(),
		Reporter: reporters,
	}, a.log)

	candidates := make([]model.ImportTarget, len(paths))
	for i, p := range paths {
		candidates[i] = model.ImportTarget{
			Path:        p,
			Name:        name,
			Description: description,
			PixelSizes:  pixelSizes,
			Archive:     archive,
			Target:      target,
		}
	}

	batch := coord.ImportCandidates(ctx, continueOnError, candidates)

	if err := store.Processor().Wait(); err != nil {
		a.log.Warn("post-import processing", "error", err)
	}

	if cfg.Report.Enabled && collector.Len() > 0 {
		sender := errreport.NewSender(cfg.Report.URL, collector, a.bus,
			errreport.WithHTTPClient(&http.Client{Timeout: cfg.Report.Timeout}),
			errreport.WithLogger(a.log))
		if err := sender.Send(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("send error reports", "error", err)
		}
	}

	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), batchSummary(batch)); err != nil {
			return err
		}
	} else {
		printBatch(cmd, batch)
	}

	if n := batch.Failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(batch.Results))
	}
	if batch.Cancelled {
		return context.Canceled
	}
	return nil
}

type batchSummaryJSON struct {
	ID        string       `json:"id"`
	Imported  int          `json:"imported"`
	Failed    int          `json:"failed"`
	Aborted   bool         `json:"aborted,omitempty"`
	Cancelled bool         `json:"cancelled,omitempty"`
	Bytes     int64        `json:"bytes"`
	Files     []resultJSON `json:"files"`
}

type resultJSON struct {
	Path   string                `json:"path"`
	Format string                `json:"format,omitempty"`
	Pixels []*model.PixelsRecord `json:"pixels,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func batchSummary(b *importer.BatchResult) batchSummaryJSON {
	out := batchSummaryJSON{
		ID:        b.ID,
		Imported:  b.Imported,
		Failed:    b.Failed(),
		Aborted:   b.Aborted,
		Cancelled: b.Cancelled,
		Files:     make([]resultJSON, 0, len(b.Results)),
	}
	for _, r := range b.Results {
		res := resultJSON{Path: r.Candidate.Path, Format: r.Format, Pixels: r.Pixels}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		for _, p := range r.Pixels {
			out.Bytes += p.SizeBytes()
		}
		out.Files = append(out.Files, res)
	}
	return out
}

func printBatch(cmd *cobra.Command, b *importer.BatchResult) {
	w := cmd.OutOrStdout()
	sum := batchSummary(b)
	elapsed := b.Finished.Sub(b.Started).Round(10 * time.Millisecond)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Batch %s\n", b.ID)
	fmt.Fprintf(w, "  Imported: %d  Failed: %d  Pixels: %s  Elapsed: %s\n",
		sum.Imported, sum.Failed, humanize.Bytes(uint64(sum.Bytes)), elapsed)
	switch {
	case b.Cancelled:
		fmt.Fprintln(w, "  Stopped: interrupted")
	case b.Aborted:
		fmt.Fprintln(w, "  Stopped: first failure (use --continue-on-error to keep going)")
	}
}
