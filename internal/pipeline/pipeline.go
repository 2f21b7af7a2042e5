// Package pipeline runs the two dynamic topic batch jobs: merging window
// partitions into a dynamic partition, and tracking which window topics
// make up each dynamic topic. A run reads every model before producing
// output and writes nothing when any step fails.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/hurttlocker/dyntopics/internal/align"
	"github.com/hurttlocker/dyntopics/internal/bundle"
	"github.com/hurttlocker/dyntopics/internal/logging"
	"github.com/hurttlocker/dyntopics/internal/render"
	"github.com/hurttlocker/dyntopics/internal/selector"
)

// ErrNoWindows means no window model files were given or selected.
var ErrNoWindows = errors.New("no window model files")

// Runner executes merge and track runs.
type Runner struct {
	Logger *logging.Logger
	Loader bundle.Loader
	Saver  bundle.Saver
}

// NewRunner returns a Runner backed by the filesystem.
func NewRunner(logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Runner{Logger: logger, Loader: bundle.Files{}, Saver: bundle.Files{}}
}

// WindowFiles picks the window model paths for a run: the manifest
// selection when a manifest is given, otherwise the explicit paths.
func WindowFiles(manifest string, sel selector.Config, paths []string) ([]string, error) {
	if strings.TrimSpace(manifest) != "" {
		files, err := selector.SelectFile(manifest, sel)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%w: manifest %s selected nothing with pattern %q", ErrNoWindows, manifest, sel.Pattern)
		}
		return files, nil
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: give window files or a selection manifest", ErrNoWindows)
	}
	return paths, nil
}

// MergeOptions configures Merge.
type MergeOptions struct {
	DynamicModel string
	WindowFiles  []string
	Output       string
	Format       bundle.Format
}

// MergeSummary describes a completed merge.
type MergeSummary struct {
	RunID         string `json:"run_id"`
	Output        string `json:"output"`
	DynamicTopics int    `json:"dynamic_topics"`
	Windows       int    `json:"windows"`
	Documents     int    `json:"documents"`
}

// Merge builds the document partition over dynamic topics and saves it,
// together with the dynamic model's terms, rankings and labels, to
// opts.Output.
func (r *Runner) Merge(ctx context.Context, opts MergeOptions) (*MergeSummary, error) {
	if opts.DynamicModel == "" {
		return nil, fmt.Errorf("dynamic model path is required")
	}
	if opts.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	runID := uuid.NewString()
	log := r.Logger.With("run_id", runID)

	dm, wm, err := r.loadDynamic(ctx, log, opts.DynamicModel)
	if err != nil {
		return nil, err
	}
	windows, err := r.loadWindows(ctx, log.Info, opts.WindowFiles, "Reading window topics for window %d from %s ...")
	if err != nil {
		return nil, err
	}

	merged, err := align.MergePartitions(wm, windows)
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Created overall partition covering %d documents", merged.Len()))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := merged.Bundle(dm)
	if err := r.Saver.Save(opts.Output, out.Record(), opts.Format); err != nil {
		return nil, fmt.Errorf("saving merged partition: %w", err)
	}
	log.Info(fmt.Sprintf("Wrote merged model to %s", opts.Output), "format", string(opts.Format))

	return &MergeSummary{
		RunID:         runID,
		Output:        opts.Output,
		DynamicTopics: dm.TopicCount(),
		Windows:       len(windows),
		Documents:     merged.Len(),
	}, nil
}

// TrackOptions configures Track.
type TrackOptions struct {
	DynamicModel string
	WindowFiles  []string
	Top          int
	Long         bool
	Topics       render.Filter
}

// TrackSummary describes a completed tracking run.
type TrackSummary struct {
	RunID         string `json:"run_id"`
	DynamicTopics int    `json:"dynamic_topics"`
	Windows       int    `json:"windows"`
	WindowTopics  int    `json:"window_topics"`
}

// Track reports, per dynamic topic, the top terms of the dynamic topic and
// of every window topic aligned to it. The report is written to w only
// once the whole run has succeeded.
func (r *Runner) Track(ctx context.Context, opts TrackOptions, w io.Writer) (*TrackSummary, error) {
	if opts.DynamicModel == "" {
		return nil, fmt.Errorf("dynamic model path is required")
	}
	runID := uuid.NewString()
	log := r.Logger.With("run_id", runID)

	dm, wm, err := r.loadDynamic(ctx, log, opts.DynamicModel)
	if err != nil {
		return nil, err
	}
	windows, err := r.loadWindows(ctx, log.Debug, opts.WindowFiles, "Loading window topics for window %d from %s ...")
	if err != nil {
		return nil, err
	}
	for _, win := range windows {
		log.Info(fmt.Sprintf("Loaded model with %d window topics from %s", win.Bundle.TopicCount(), win.Source))
	}

	history, err := align.TrackHistory(wm, dm.TermRankings, windows, opts.Top)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := render.Report(&buf, history, render.ReportOptions{
		Labels: dm.TopicLabels,
		Top:    opts.Top,
		Long:   opts.Long,
		Topics: opts.Topics,
	}); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return nil, fmt.Errorf("writing report: %w", err)
	}

	return &TrackSummary{
		RunID:         runID,
		DynamicTopics: dm.TopicCount(),
		Windows:       len(windows),
		WindowTopics:  history.EntryCount(),
	}, nil
}

func (r *Runner) loadDynamic(ctx context.Context, log *logging.Logger, path string) (*bundle.DynamicModel, *align.WindowMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	rec, err := r.Loader.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading dynamic model: %w", err)
	}
	dm := rec.AsDynamic()
	if err := dm.Validate(); err != nil {
		return nil, nil, fmt.Errorf("dynamic model %s: %w", path, err)
	}
	log.Info(fmt.Sprintf("Loaded model with %d dynamic topics from %s", dm.TopicCount(), path))

	wm, err := align.BuildWindowMap(dm)
	if err != nil {
		return nil, nil, fmt.Errorf("dynamic model %s: %w", path, err)
	}
	for _, label := range wm.Duplicates() {
		log.Warn("window topic label listed more than once in dynamic model; keeping last assignment", "label", label, "path", path)
	}
	return dm, wm, nil
}

func (r *Runner) loadWindows(ctx context.Context, logf func(string, ...interface{}), paths []string, msg string) ([]align.Window, error) {
	if len(paths) == 0 {
		return nil, ErrNoWindows
	}
	results := make([]*bundle.Result, 0, len(paths))
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		logf(fmt.Sprintf(msg, i+1, path))
		rec, err := r.Loader.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading window %d: %w", i+1, err)
		}
		res := rec.AsResult()
		if err := res.Validate(); err != nil {
			return nil, fmt.Errorf("window %d (%s): %w", i+1, path, err)
		}
		results = append(results, res)
	}
	return align.NumberWindows(results, paths), nil
}
