package export

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/matzehuels/figura/pkg/errors"
)

// rsvgConvert is the external converter used for PDF output.
const rsvgConvert = "rsvg-convert"

// ToPDF converts SVG markup to PDF with rsvg-convert.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	if _, err := exec.LookPath(rsvgConvert); err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported,
			"pdf export requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin")
	}

	cmd := exec.CommandContext(ctx, rsvgConvert, "-f", "pdf")
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "rsvg-convert: %s", errBuf.String())
	}
	return out.Bytes(), nil
}
