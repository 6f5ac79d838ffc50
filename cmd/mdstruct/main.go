package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/mdstruct/internal/config"
	"git.home.luguber.info/inful/mdstruct/internal/delta"
	"git.home.luguber.info/inful/mdstruct/internal/docmodel"
	"git.home.luguber.info/inful/mdstruct/internal/gitload"
	"git.home.luguber.info/inful/mdstruct/internal/logfields"
	"git.home.luguber.info/inful/mdstruct/internal/metrics"
	"git.home.luguber.info/inful/mdstruct/internal/notify"
	"git.home.luguber.info/inful/mdstruct/internal/snapshot"
	"git.home.luguber.info/inful/mdstruct/internal/structure"
	"git.home.luguber.info/inful/mdstruct/internal/toc"
	"git.home.luguber.info/inful/mdstruct/internal/track"
	"git.home.luguber.info/inful/mdstruct/internal/watch"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"mdstruct.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Toc struct {
		File   string `arg:"" help:"Markdown file to analyze"`
		Format string `help:"Output format" enum:"tree,json,yaml" default:"tree"`
	} `cmd:"" help:"Extract and print the document's heading structure"`

	Validate struct {
		File   string `arg:"" help:"Markdown file to validate"`
		Strict bool   `help:"Exit non-zero when issues are found"`
	} `cmd:"" help:"Check heading hierarchy for structural issues"`

	Relevel struct {
		File   string `arg:"" help:"Markdown file to adjust"`
		Target int    `short:"t" help:"Desired level for the first heading" default:"1"`
		Strict bool   `help:"Refuse documents with hierarchy violations"`
		Write  bool   `short:"w" help:"Rewrite the file in place instead of printing"`
	} `cmd:"" help:"Shift all heading levels so the first heading lands on the target level"`

	Fingerprint struct {
		File string `arg:"" help:"Markdown file to fingerprint"`
	} `cmd:"" help:"Print the content fingerprint of a document"`

	Delta struct {
		Old string `arg:"" help:"Old file, or the file itself when --git is used"`
		New string `arg:"" optional:"" help:"New file to compare against"`
		Git string `help:"Compare the file against this Git revision instead of a second file"`
	} `cmd:"" help:"Compute the structural delta between two document versions"`

	Track struct {
		File string `arg:"" help:"Markdown file to track"`
		DB   string `help:"Snapshot database path" default:"mdstruct.db"`
	} `cmd:"" help:"Snapshot a document and report changes since the last snapshot"`

	Watch struct{} `cmd:"" help:"Watch configured documents and record structural changes continuously"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var err error
	switch ctx.Command() {
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	case "toc <file>":
		err = runToc(CLI.Toc.File, CLI.Toc.Format)
	case "validate <file>":
		err = runValidate(CLI.Validate.File, CLI.Validate.Strict)
	case "relevel <file>":
		err = runRelevel(CLI.Relevel.File, CLI.Relevel.Target, CLI.Relevel.Strict, CLI.Relevel.Write)
	case "fingerprint <file>":
		err = runFingerprint(CLI.Fingerprint.File)
	case "delta <old> <new>", "delta <old>":
		err = runDelta(CLI.Delta.Old, CLI.Delta.New, CLI.Delta.Git)
	case "track <file>":
		err = runTrack(CLI.Track.File, CLI.Track.DB)
	case "watch":
		err = runWatch(CLI.Config)
	default:
		err = fmt.Errorf("unknown command: %s", ctx.Command())
	}
	if err != nil {
		slog.Error("Command failed", logfields.Error(err))
		os.Exit(1)
	}
}

func runInit(configPath string, force bool) error {
	slog.Info("Initializing configuration", slog.String("path", configPath), slog.Bool("force", force))
	return config.Init(configPath, force)
}

func runToc(path, format string) error {
	doc, err := docmodel.ParseFile(path, docmodel.Options{})
	if err != nil {
		return err
	}
	snap, err := doc.Snapshot()
	if err != nil {
		return err
	}

	switch format {
	case "json":
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	case "yaml":
		out, err := yaml.Marshal(snap)
		if err != nil {
			return err
		}
		fmt.Print(string(out))
		return nil
	}

	if snap.Title != "" {
		fmt.Printf("%s\n", snap.Title)
	}
	for _, root := range snap.Roots {
		printNode(root, 0)
	}
	fmt.Printf("\n%d headings, %d code blocks, %d internal links\n",
		snap.HeadingCount(), len(snap.CodeBlocks), len(snap.InternalLinks))
	return nil
}

func printNode(n *toc.Node, depth int) {
	fmt.Printf("%s%s %s  [%s]  lines %d-%d\n",
		strings.Repeat("  ", depth),
		strings.Repeat("#", n.Level),
		n.Title, n.Path, n.Lines.Start, n.Lines.End)
	for _, child := range n.Children {
		printNode(child, depth+1)
	}
}

func runValidate(path string, strict bool) error {
	doc, err := docmodel.ParseFile(path, docmodel.Options{})
	if err != nil {
		return err
	}
	report, err := doc.Validate()
	if err != nil {
		return err
	}

	if report.WellFormed {
		fmt.Printf("%s: well-formed (%d headings, root level %d)\n", path, report.HeadingCount, report.RootLevel)
		return nil
	}

	fmt.Printf("%s: %d issue(s)\n", path, len(report.Issues))
	for _, issue := range report.Issues {
		fmt.Printf("  heading %d (%q): %s\n", issue.Index+1, issue.Title, issue.Detail)
	}
	if strict {
		return fmt.Errorf("document has structural issues")
	}
	return nil
}

func runRelevel(path string, target int, strict, write bool) error {
	doc, err := docmodel.ParseFile(path, docmodel.Options{})
	if err != nil {
		return err
	}

	var adjusted *docmodel.Document
	var report structure.NormalizationReport
	if strict {
		adjusted, report, err = doc.Normalize(target)
	} else {
		adjusted, report, err = doc.Relevel(target)
	}
	if err != nil {
		var overflow *structure.LevelOverflowError
		if errors.As(err, &overflow) {
			return fmt.Errorf("cannot relevel %s: %d heading(s) would leave the valid range, deepest is %q", path, overflow.AffectedCount, overflow.DeepestTitle)
		}
		return err
	}

	for _, issue := range report.Issues {
		slog.Warn("Structural issue", logfields.Document(path), slog.String("detail", issue.Detail))
	}

	if write {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, adjusted.Bytes(), info.Mode().Perm()); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		slog.Info("Releveled", logfields.Document(path),
			slog.Int("adjustment", report.Adjustment),
			slog.Int("affected", len(report.AffectedHeadings)))
		return nil
	}

	_, err = os.Stdout.Write(adjusted.Bytes())
	return err
}

func runFingerprint(path string) error {
	doc, err := docmodel.ParseFile(path, docmodel.Options{})
	if err != nil {
		return err
	}
	fp, err := doc.Fingerprint()
	if err != nil {
		return err
	}
	fmt.Println(fp)
	return nil
}

func runDelta(oldPath, newPath, gitRev string) error {
	if (newPath == "") == (gitRev == "") {
		return fmt.Errorf("provide either a second file or --git REVISION")
	}

	var oldContent []byte
	var err error
	newFile := newPath
	if gitRev != "" {
		// With --git the single argument is the current file; the old
		// side comes out of the repository at the given revision.
		newFile = oldPath
		oldContent, err = gitload.FileAt(oldPath, gitRev)
	} else {
		oldContent, err = os.ReadFile(oldPath) // #nosec G304 - operator-supplied path
	}
	if err != nil {
		return err
	}
	newContent, err := os.ReadFile(newFile) // #nosec G304 - operator-supplied path
	if err != nil {
		return err
	}

	oldDoc, err := docmodel.Parse(oldContent, docmodel.Options{})
	if err != nil {
		return fmt.Errorf("parse old version: %w", err)
	}
	newDoc, err := docmodel.Parse(newContent, docmodel.Options{})
	if err != nil {
		return fmt.Errorf("parse new version: %w", err)
	}

	oldSnap, err := oldDoc.Snapshot()
	if err != nil {
		return err
	}
	newSnap, err := newDoc.Snapshot()
	if err != nil {
		return err
	}

	d := delta.Compute(oldSnap, newSnap, oldDoc.Fields(), newDoc.Fields())
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runTrack(path, dbPath string) error {
	store, err := snapshot.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	tracker, err := track.New(store, nil, nil, 0)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path) // #nosec G304 - operator-supplied path
	if err != nil {
		return err
	}

	res, err := tracker.Process(context.Background(), filepath.ToSlash(path), content)
	if err != nil {
		return err
	}
	if res.First {
		fmt.Printf("first snapshot saved: %s\n", res.SnapshotID)
		return nil
	}

	out, err := json.MarshalIndent(res.Delta, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runWatch(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.Watch.Enabled {
		return fmt.Errorf("watch is disabled in %s", configPath)
	}
	slog.SetDefault(slog.New(cfg.Logging.Handler(os.Stderr, CLI.Verbose)))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Watch.MetricsListen != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)
		srv := &http.Server{
			Addr:              cfg.Watch.MetricsListen,
			Handler:           metrics.HTTPHandler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("Serving metrics", slog.String("listen", cfg.Watch.MetricsListen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	store, err := snapshot.NewSQLiteStore(cfg.Snapshots.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var publisher track.Publisher
	if cfg.Publish.NATSURL != "" {
		p, err := notify.NewPublisher(cfg.Publish.NATSURL, cfg.Publish.Subject)
		if err != nil {
			return err
		}
		defer p.Close()
		publisher = p
	}

	tracker, err := track.New(store, publisher, recorder, cfg.Snapshots.Keep)
	if err != nil {
		return err
	}

	files, err := expandDocuments(cfg.Documents)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no documents matched the configured paths")
	}

	process := func(ctx context.Context, path string) {
		content, err := os.ReadFile(path) // #nosec G304 - path comes from the watcher
		if err != nil {
			slog.Error("Read failed", logfields.Document(path), logfields.Error(err))
			return
		}
		if _, err := tracker.Process(ctx, filepath.ToSlash(path), content); err != nil {
			slog.Error("Processing failed", logfields.Document(path), logfields.Error(err))
		}
	}

	watcher, err := watch.NewWatcher(process, time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, recorder)
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Stop() }()

	for _, f := range files {
		if err := watcher.Add(f); err != nil {
			return err
		}
	}

	// Baseline pass so the store has a snapshot for every tracked file.
	for _, f := range files {
		process(ctx, f)
	}

	watcher.Start(ctx)

	if cfg.Watch.Schedule != "" {
		scheduler, err := watch.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.ScheduleRescan(cfg.Watch.Schedule, func() {
			for _, f := range files {
				process(ctx, f)
			}
		}); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { _ = scheduler.Stop() }()
	}

	slog.Info("Watching documents", slog.Int("count", len(files)))
	<-ctx.Done()
	slog.Info("Shutdown signal received")
	return nil
}

func expandDocuments(docs []config.Document) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, doc := range docs {
		matches, err := filepath.Glob(doc.Path)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", doc.Path, err)
		}
		if matches == nil && !strings.ContainsAny(doc.Path, "*?[") {
			// A literal path that does not exist yet is still worth watching.
			matches = []string{doc.Path}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}
