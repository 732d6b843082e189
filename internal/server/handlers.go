package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/matzehuels/figura/pkg/buildinfo"
	"github.com/matzehuels/figura/pkg/cache"
	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/drafts"
	"github.com/matzehuels/figura/pkg/errors"
	"github.com/matzehuels/figura/pkg/export"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/render/raster"
	"github.com/matzehuels/figura/pkg/render/styles"
)

// =============================================================================
// Health and tools
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

func (s *Server) listTools(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"tools": s.Tools.All()})
}

func (s *Server) getTool(w http.ResponseWriter, r *http.Request) {
	tool, err := s.Tools.Lookup(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tool)
}

// =============================================================================
// Generate
// =============================================================================

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generate.Request
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.generateShared(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// generateShared de-duplicates identical concurrent requests. The shared
// work runs detached from any single client; each caller stops waiting
// when its own context ends.
func (s *Server) generateShared(ctx context.Context, req generate.Request) (generate.Response, error) {
	id := req.ID
	req.ID = 0
	body, err := json.Marshal(req)
	if err != nil {
		return generate.Response{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request")
	}

	ch := s.group.DoChan(cache.Hash(body), func() (any, error) {
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.workTimeout())
		defer cancel()
		return s.Runner.Generate(work, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return generate.Response{}, res.Err
		}
		resp := res.Val.(generate.Response)
		resp.RequestID = id
		return resp, nil
	case <-ctx.Done():
		return generate.Response{}, errors.Aborted(ctx.Err(), "generate aborted by client")
	}
}

func (s *Server) workTimeout() time.Duration {
	if s.WorkTimeout <= 0 {
		return DefaultWorkTimeout
	}
	return s.WorkTimeout
}

// =============================================================================
// Export
// =============================================================================

// ExportRequest is the body of POST /api/export. Exactly one of Document
// and Generate is required.
type ExportRequest struct {
	Document *diagram.Document    `json:"document,omitempty"`
	Generate *generate.Request    `json:"generate,omitempty"`
	Config   diagram.RenderConfig `json:"renderConfig"`
	Tone     styles.Tone          `json:"tone,omitempty"`
	Viewport *diagram.Viewport    `json:"viewport,omitempty"`
	Width    int                  `json:"width,omitempty"`
	Height   int                  `json:"height,omitempty"`
	Options  export.Options       `json:"options"`
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	var body ExportRequest
	if err := s.decode(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	art, err := s.exportArtifact(r.Context(), body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("X-Image-Width", strconv.Itoa(art.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(art.Height))
	w.WriteHeader(http.StatusOK)
	if _, err := art.WriteTo(w); err != nil {
		s.Logger.Debug("write artifact", "err", err)
	}
}

// cachedArtifact is the cache form of an export.Artifact; the filename is
// rebuilt on every hit because it carries a timestamp.
type cachedArtifact struct {
	ContentType string `json:"contentType"`
	Data        []byte `json:"data"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// Validate bounds the requested logical size to the raster side limit.
func (body ExportRequest) Validate() error {
	return validation.ValidateStruct(&body,
		validation.Field(&body.Width, validation.Min(0), validation.Max(raster.MaxSide)),
		validation.Field(&body.Height, validation.Min(0), validation.Max(raster.MaxSide)),
	)
}

func (s *Server) exportArtifact(ctx context.Context, body ExportRequest) (export.Artifact, error) {
	if err := body.Validate(); err != nil {
		return export.Artifact{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid export size")
	}
	doc, err := s.exportDocument(ctx, body)
	if err != nil {
		return export.Artifact{}, err
	}
	tone := styles.DefaultTone
	if body.Tone != "" {
		if tone, err = styles.ParseTone(string(body.Tone)); err != nil {
			return export.Artifact{}, errors.Wrap(errors.ErrCodeInvalidTone, err, "invalid tone")
		}
	}
	cfg := body.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return export.Artifact{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid render config")
	}
	opts := body.Options.WithDefaults()
	if err := opts.Validate(); err != nil {
		return export.Artifact{}, err
	}

	req := export.Request{
		Document: doc,
		Viewport: body.Viewport,
		Style:    styles.New(cfg, tone),
		Measurer: s.Measurer,
		Width:    body.Width,
		Height:   body.Height,
		Options:  opts,
		Now:      s.now(),
	}

	key := s.artifactKey(req)
	var hit cachedArtifact
	if s.Cache != nil && key != "" && cache.GetJSON(ctx, s.Cache, "artifact", key, &hit) {
		return export.Artifact{
			Filename:    export.Filename(doc.Title, opts.Format.Ext(), req.Now),
			ContentType: hit.ContentType,
			Data:        hit.Data,
			Width:       hit.Width,
			Height:      hit.Height,
		}, nil
	}

	art, err := export.Export(ctx, req)
	if err != nil {
		return export.Artifact{}, err
	}
	if s.Cache != nil && key != "" {
		entry := cachedArtifact{ContentType: art.ContentType, Data: art.Data, Width: art.Width, Height: art.Height}
		if err := cache.SetJSON(ctx, s.Cache, "artifact", key, entry, cache.ArtifactTTL); err != nil {
			s.Logger.Debug("artifact cache write failed", "err", err)
		}
	}
	return art, nil
}

func (s *Server) exportDocument(ctx context.Context, body ExportRequest) (diagram.Document, error) {
	switch {
	case body.Document != nil && body.Generate != nil:
		return diagram.Document{}, errors.New(errors.ErrCodeInvalidInput, "send either document or generate, not both")
	case body.Document != nil:
		doc := *body.Document
		if err := doc.Validate(); err != nil {
			return diagram.Document{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid document")
		}
		return doc, nil
	case body.Generate != nil:
		resp, err := s.generateShared(ctx, *body.Generate)
		if err != nil {
			return diagram.Document{}, err
		}
		return resp.Document, nil
	}
	return diagram.Document{}, errors.New(errors.ErrCodeInvalidInput, "document or generate is required")
}

func (s *Server) artifactKey(req export.Request) string {
	data, err := diagram.Marshal(req.Document)
	if err != nil {
		return ""
	}
	keyer := s.Keyer
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	o := req.Options
	return keyer.ArtifactKey(cache.Hash(data), cache.ArtifactKeyOpts{
		Format:     string(o.Format),
		Scale:      o.Scale,
		PixelRatio: o.PixelRatio,
		Monochrome: o.Monochrome,
		Caption:    o.Caption.Text(),
		Style:      req.Style,
		Viewport:   req.Viewport,
		Width:      req.Width,
		Height:     req.Height,
	})
}

// =============================================================================
// Drafts
// =============================================================================

func (s *Server) syncDraft(w http.ResponseWriter, r *http.Request) {
	var req drafts.Request
	if err := s.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := s.Syncer.Sync(r.Context(), req)
	if r.Context().Err() != nil {
		s.writeError(w, r, errors.Aborted(r.Context().Err(), "sync aborted by client"))
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}
