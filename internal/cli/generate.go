package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/figura/internal/app"
	"github.com/matzehuels/figura/pkg/diagram"
	"github.com/matzehuels/figura/pkg/export"
	"github.com/matzehuels/figura/pkg/generate"
	"github.com/matzehuels/figura/pkg/render/styles"
	"github.com/matzehuels/figura/pkg/render/svg"
)

// generateOpts holds the flags of the generate command.
type generateOpts struct {
	source sourceOpts
	style  styleOpts
	output string // .json, .svg, .png, .jpg or .pdf; empty prints JSON
}

func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate [input]",
		Short: "Generate a diagram document from text",
		Long: `Generate parses the input text with the selected parser kind and lays it
out as a document. Input is read from a file, or from stdin when the path
is "-". Without input the tool's default text or a built-in sample is used.

The output format follows the -o extension: .json writes the document,
.svg, .png, .jpg and .pdf render it.`,
		Example: `  figura generate --kind flow steps.txt -o steps.svg
  echo "A -> B -> C" | figura generate -k flow - -o chain.png
  figura generate --tool org-chart -o org.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return c.runGenerate(cmd, path, &opts)
		},
	}

	opts.source.register(cmd)
	opts.style.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (.json, .svg, .png, .jpg, .pdf)")

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, path string, opts *generateOpts) error {
	ctx := withLogger(cmd.Context(), c.Logger)
	input, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := c.newApp(ctx, app.Options{NoCache: opts.source.noCache, Mode: opts.source.mode})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	req, tone, err := opts.source.request(a.Tools, input)
	if err != nil {
		return err
	}
	if req.Config, err = opts.style.config(cmd, c.config.Render.RenderConfig); err != nil {
		return err
	}
	style, err := opts.style.style(req.Config, tone)
	if err != nil {
		return err
	}

	resp, err := c.generate(ctx, a.Runner, req)
	if err != nil {
		return err
	}

	if opts.output == "" {
		data, err := diagram.Marshal(resp.Document)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	if err := c.writeDocument(ctx, resp.Document, style, opts.output); err != nil {
		return err
	}
	printSuccess("Generated %s", StyleHighlight.Render(titleOf(resp.Document)))
	printStats(docStats{Nodes: resp.Document.NodeCount(), Edges: resp.Document.EdgeCount(), Source: resp.Source, Cached: resp.CacheHit})
	if resp.Message != "" {
		printWarning("%s", resp.Message)
	}
	printFile(opts.output)
	return nil
}

// generate runs req behind a spinner and logs the elapsed time.
func (c *CLI) generate(ctx context.Context, r *generate.Runner, req generate.Request) (generate.Response, error) {
	prog := newProgress(loggerFromContext(ctx))
	spin := newSpinner(ctx, os.Stderr, fmt.Sprintf("Generating %s diagram...", req.Kind))
	resp, err := r.Generate(ctx, req)
	spin.Stop()
	if err != nil {
		return resp, err
	}
	prog.done(fmt.Sprintf("Generated %d nodes", resp.Document.NodeCount()))
	return resp, nil
}

// writeDocument writes doc to path in the format named by its extension.
func (c *CLI) writeDocument(ctx context.Context, doc diagram.Document, style styles.Style, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	var data []byte
	var err error
	switch ext {
	case ".json":
		data, err = diagram.Marshal(doc)
	case ".svg":
		data, err = svg.Bytes(doc, svg.Options{Style: style})
	default:
		format, ferr := export.ParseFormat(ext)
		if ferr != nil {
			return ferr
		}
		opts := c.config.Render.ExportOptions(format)
		var art export.Artifact
		art, err = export.Export(ctx, export.Request{Document: doc, Style: style, Options: opts})
		data = art.Data
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func titleOf(doc diagram.Document) string {
	if doc.Title != "" {
		return doc.Title
	}
	return string(doc.Kind) + " diagram"
}
