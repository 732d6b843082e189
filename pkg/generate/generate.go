// Package generate turns source text into a positioned Document.
//
// A [Runner] runs parse and layout with caching, optionally asking a remote
// [Generator] first and falling back to the local pipeline when the remote
// fails. [Live] sits in front of a Runner for interactive editors: each
// submission supersedes the previous one, so only the newest request ever
// produces a visible Document.
//
// Cancellation is not a failure. A request whose context is cancelled
// returns an error matching both [ErrAborted] and the context error:
//
//	resp, err := runner.Generate(ctx, req)
//	if errors.Is(err, generate.ErrAborted) {
//	    return // superseded or closed, nothing to show
//	}
package generate

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/matzehuels/figura/pkg/cache"
	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/fallback"
	"github.com/matzehuels/figura/pkg/fonts"
	"github.com/matzehuels/figura/pkg/layout"
	"github.com/matzehuels/figura/pkg/observability"
	"github.com/matzehuels/figura/pkg/parse"
)

var (
	// ErrAborted matches every error caused by cancelling a request.
	ErrAborted = errors.ErrAborted

	// ErrStale is returned by Live when a newer submission replaced the
	// request before it completed.
	ErrStale = stderrors.New("superseded by a newer request")
)

// MaxInputBytes bounds the source text of one request.
const MaxInputBytes = 1 << 20

// =============================================================================
// Request / Response
// =============================================================================

// Mode selects where a document is generated.
type Mode string

// Modes.
const (
	ModeLocal  Mode = "local"  // never contact the remote generator
	ModeRemote Mode = "remote" // remote first, local on failure; requires a generator
	ModeAuto   Mode = "auto"   // remote when configured and input is given
)

// ParseMode converts a string to a Mode. Empty selects ModeLocal.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case "":
		return ModeLocal, nil
	case ModeLocal, ModeRemote, ModeAuto:
		return m, nil
	}
	return "", errors.New(errors.ErrCodeInvalidConfig, "invalid generate mode: %q (must be local, remote or auto)", s)
}

// Request asks for one Document.
type Request struct {
	ID     uint64               `json:"requestId,omitempty"`
	Kind   diagram.Kind         `json:"parserKind"`
	Input  string               `json:"inputText"`
	Title  string               `json:"title,omitempty"`
	Config diagram.RenderConfig `json:"renderConfig"`
	Layout layout.Options       `json:"layoutOptions"`
	Parse  parse.Options        `json:"parseOptions"`
	Mode   Mode                 `json:"mode,omitempty"`

	// Refresh bypasses the cache lookup. The result is still stored.
	Refresh bool `json:"refresh,omitempty"`
}

// Validate checks the request after defaults are applied.
func (r Request) Validate() error {
	r = r.withDefaults()
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Kind, validation.Required, validation.In(toAny(diagram.ValidKinds)...)),
		validation.Field(&r.Mode, validation.In(ModeLocal, ModeRemote, ModeAuto)),
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid generate request")
	}
	if len(r.Input) > MaxInputBytes {
		return errors.New(errors.ErrCodeInvalidInput, "input is %d bytes, limit is %d", len(r.Input), MaxInputBytes)
	}
	if err := r.Config.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid render config")
	}
	if err := r.Layout.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid layout options")
	}
	return nil
}

func (r Request) withDefaults() Request {
	if r.Mode == "" {
		r.Mode = ModeLocal
	}
	r.Config = r.Config.WithDefaults()
	r.Layout = r.Layout.WithDefaults()
	return r
}

func toAny[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// Response carries the generated Document and the path that produced it.
type Response struct {
	RequestID uint64           `json:"requestId,omitempty"`
	Source    fallback.Source  `json:"source"`
	Document  diagram.Document `json:"document"`
	Message   string           `json:"message,omitempty"`
	CacheHit  bool             `json:"cacheHit,omitempty"`
}

// SampleNotice is the message attached when empty input was replaced by
// the built-in sample.
const SampleNotice = "input is empty; showing the built-in sample"

// =============================================================================
// Runner
// =============================================================================

// Runner executes generate requests. It holds no per-request state and is
// safe for concurrent use.
type Runner struct {
	Cache    cache.Cache
	Keyer    cache.Keyer
	Remote   Generator // nil disables remote generation
	Mode     Mode      // used when a request names no mode; empty means ModeLocal
	Measurer fonts.Measurer
	Logger   *log.Logger
	Now      func() time.Time
}

// NewRunner creates a runner. A nil cache disables caching and a nil
// logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, remote Generator, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Keyer:    keyer,
		Remote:   remote,
		Measurer: fonts.Default(),
		Logger:   logger,
		Now:      time.Now,
	}
}

// Generate produces the Document for req. A panic inside one generation is
// recovered and reported as an internal error for that request only.
func (r *Runner) Generate(ctx context.Context, req Request) (resp Response, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger().Error("generate panicked", "kind", req.Kind, "request", req.ID, "panic", p)
			resp, err = Response{}, errors.New(errors.ErrCodeInternal, "generate %s: internal error: %v", req.Kind, p)
		}
	}()

	if err := aborted(ctx); err != nil {
		return Response{}, err
	}
	if req.Mode == "" {
		req.Mode = r.Mode
	}
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	req = req.withDefaults()

	var remote fallback.Func[diagram.Document]
	if r.useRemote(req) {
		remote = func(ctx context.Context) (diagram.Document, error) {
			return r.generateRemote(ctx, req)
		}
	} else if req.Mode == ModeRemote {
		return Response{}, errors.New(errors.ErrCodeInvalidConfig, "remote mode requested but no remote generator is configured")
	}

	var hit, sample bool
	local := func(ctx context.Context) (diagram.Document, error) {
		doc, info, err := r.generateLocal(ctx, req)
		hit, sample = info.hit, info.sample
		return doc, err
	}

	out, err := fallback.Run(ctx, "generate", remote, local, remoteNotice)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return Response{}, errors.Aborted(cerr, "generate %s aborted", req.Kind)
		}
		return Response{}, err
	}
	if out.Fallback() {
		r.logger().Warn("remote generate failed, used local pipeline", "kind", req.Kind, "err", out.Err)
	}

	resp = Response{
		RequestID: req.ID,
		Source:    out.Source,
		Document:  out.Value,
		Message:   out.Message,
		CacheHit:  hit,
	}
	if sample && resp.Message == "" {
		resp.Message = SampleNotice
	}
	return resp, nil
}

func remoteNotice(err error) string {
	return fmt.Sprintf("remote generator unavailable (%v); generated locally", err)
}

func (r *Runner) useRemote(req Request) bool {
	if r.Remote == nil {
		return false
	}
	switch req.Mode {
	case ModeRemote:
		return true
	case ModeAuto:
		return req.Input != ""
	}
	return false
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// =============================================================================
// Local pipeline
// =============================================================================

type localInfo struct {
	hit, sample bool
}

// generateLocal parses and lays out req, consulting the cache first.
func (r *Runner) generateLocal(ctx context.Context, req Request) (diagram.Document, localInfo, error) {
	c := r.Cache
	if c == nil {
		c = cache.NewNullCache()
	}
	keyer := r.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	key := keyer.DocumentKey(string(req.Kind), req.Input, documentKeyOpts(req))

	var cached cachedDocument
	if !req.Refresh && cache.GetJSON(ctx, c, "document", key, &cached) {
		r.logger().Debug("document cache hit", "kind", req.Kind, "nodes", cached.Document.NodeCount())
		return cached.Document, localInfo{hit: true, sample: cached.Sample}, nil
	}

	res, err := r.parse(ctx, req)
	if err != nil {
		return diagram.Document{}, localInfo{}, err
	}
	if err := aborted(ctx); err != nil {
		return diagram.Document{}, localInfo{}, err
	}

	doc := r.layout(ctx, req, res)
	doc.GeneratedAt = r.now().UTC()

	if err := cache.SetJSON(ctx, c, "document", key, cachedDocument{Document: doc, Sample: res.Sample}, cache.DocumentTTL); err != nil {
		r.logger().Debug("document cache write failed", "err", err)
	}
	return doc, localInfo{sample: res.Sample}, nil
}

type cachedDocument struct {
	Document diagram.Document `json:"document"`
	Sample   bool             `json:"sample,omitempty"`
}

// geometryKey is the part of a RenderConfig that changes layout output.
type geometryKey struct {
	NodeGapX    float64 `json:"nodeGapX"`
	NodeGapY    float64 `json:"nodeGapY"`
	FontSize    float64 `json:"fontSize"`
	CompactRows bool    `json:"compactRows"`
}

func documentKeyOpts(req Request) cache.DocumentKeyOpts {
	return cache.DocumentKeyOpts{
		Title: req.Title,
		Config: geometryKey{
			NodeGapX:    req.Config.NodeGapX,
			NodeGapY:    req.Config.NodeGapY,
			FontSize:    req.Config.FontSize,
			CompactRows: req.Config.CompactRows,
		},
		Layout: req.Layout,
		Parse:  req.Parse,
	}
}

func (r *Runner) parse(ctx context.Context, req Request) (parse.Result, error) {
	hooks := observability.Pipeline()
	hooks.OnParseStart(ctx, string(req.Kind))
	start := time.Now()

	run := func() (parse.Result, error) { return parse.Parse(req.Kind, req.Input, req.Parse) }
	var (
		res parse.Result
		err error
	)
	if shouldOffload(req) {
		res, err = offload(ctx, run)
	} else {
		res, err = run()
	}

	hooks.OnParseComplete(ctx, string(req.Kind), len(res.Items), time.Since(start), err)
	if err != nil {
		return parse.Result{}, err
	}
	if req.Title != "" {
		res.Title = req.Title
	}
	r.logger().Debug("parsed input", "kind", req.Kind, "items", len(res.Items), "links", len(res.Links), "sample", res.Sample, "duration", time.Since(start))
	return res, nil
}

func (r *Runner) layout(ctx context.Context, req Request, res parse.Result) diagram.Document {
	hooks := observability.Pipeline()
	hooks.OnLayoutStart(ctx, string(req.Kind), len(res.Items))
	start := time.Now()

	doc := layout.Build(res, req.Config, req.Layout, r.Measurer)

	hooks.OnLayoutComplete(ctx, string(req.Kind), doc.NodeCount(), time.Since(start), nil)
	r.logger().Debug("computed layout", "kind", req.Kind, "nodes", doc.NodeCount(), "edges", doc.EdgeCount(), "duration", time.Since(start))
	return doc
}

// aborted returns an abort error once ctx is done.
func aborted(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.Aborted(err, "generate aborted")
	}
	return nil
}
