package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/internal/app"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/parse"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// defaultDebounce coalesces the burst of events editors emit per save.
const defaultDebounce = 150 * time.Millisecond

// watchOpts holds the flags of the watch command.
type watchOpts struct {
	source   sourceOpts
	style    styleOpts
	output   string
	debounce time.Duration
}

func (c *CLI) watchCommand() *cobra.Command {
	opts := watchOpts{debounce: defaultDebounce}

	cmd := &cobra.Command{
		Use:   "watch <input>",
		Short: "Regenerate a diagram whenever its input changes",
		Long: `Watch regenerates the output every time the input file is saved. Only the
newest edit is written: a generation still running when the file changes
again is cancelled and its result discarded.`,
		Example: `  figura watch --kind mind ideas.txt -o ideas.svg`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return fmt.Errorf("--output is required")
			}
			if args[0] == "-" {
				return fmt.Errorf("watch needs a file, not stdin")
			}
			return c.runWatch(cmd, args[0], &opts)
		},
	}

	opts.source.register(cmd)
	opts.style.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.json, .svg, .png, .jpg, .pdf)")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", opts.debounce, "quiet period before regenerating")

	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, path string, opts *watchOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)

	a, err := c.newApp(ctx, app.Options{NoCache: opts.source.noCache, Mode: opts.source.mode})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	base, tone, err := opts.source.request(a.Tools, "")
	if err != nil {
		return err
	}
	if base.Config, err = opts.style.config(cmd, c.config.Render.RenderConfig); err != nil {
		return err
	}
	base.Parse = parse.Options{Live: true}
	style, err := opts.style.style(base.Config, tone)
	if err != nil {
		return err
	}

	w := &watcher{
		cli:    c,
		live:   generate.NewLive(a.Runner),
		base:   base,
		style:  style,
		input:  path,
		output: opts.output,
	}
	defer w.live.Cancel()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()
	// Watch the directory so editors that replace the file on save are seen.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return err
	}

	printInfo("Watching %s", StyleHighlight.Render(path))
	w.trigger(ctx)

	var timer *time.Timer
	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			w.wait()
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(opts.debounce, func() { w.trigger(ctx) })
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "err", err)
		}
	}
}

// watcher regenerates one input file into one output file.
type watcher struct {
	cli    *CLI
	live   *generate.Live
	base   generate.Request
	style  styles.Style
	input  string
	output string
	wg     sync.WaitGroup
	mu     sync.Mutex // serializes output writes
}

// trigger reads the input and submits it. Earlier submissions still
// running are superseded.
func (w *watcher) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	input, err := readInput(w.input, nil)
	if err != nil {
		printWarning("%v", err)
		return
	}
	req := w.base
	req.Input = input

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.apply(ctx, req)
	}()
}

func (w *watcher) apply(ctx context.Context, req generate.Request) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)
	resp, err := w.live.Submit(ctx, req)
	switch {
	case stderrors.Is(err, generate.ErrStale), errors.IsAborted(err):
		logger.Debug("generation superseded", "err", err)
		return
	case err != nil:
		printWarning("%v", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if resp.RequestID != w.live.Seq() {
		logger.Debug("generation superseded before write", "request", resp.RequestID)
		return
	}
	if err := w.cli.writeDocument(ctx, resp.Document, w.style, w.output); err != nil {
		printWarning("write %s: %v", w.output, err)
		return
	}
	prog.done(fmt.Sprintf("Updated %s", w.output))
	printStats(docStats{Nodes: resp.Document.NodeCount(), Edges: resp.Document.EdgeCount(), Source: resp.Source, Cached: resp.CacheHit})
}

func (w *watcher) wait() { w.wg.Wait() }
