package export

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ExportAll exports req once per format in parallel. Artifacts are
// returned in the order of formats. The first failure cancels the rest.
func ExportAll(ctx context.Context, req Request, formats []Format) ([]Artifact, error) {
	out := make([]Artifact, len(formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range formats {
		i := i
		r := req
		r.Options.Format = f
		g.Go(func() error {
			art, err := Export(ctx, r)
			if err != nil {
				return err
			}
			out[i] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
