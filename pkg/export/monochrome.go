package export

import (
	"image"

	"github.com/disintegration/imaging"
)

// Monochrome thresholds on 8-bit channels.
const (
	TransparentBelow = 16  // alpha below this becomes white
	WhiteFrom        = 235 // all of R, G, B at or above this become white
)

// Monochrome returns a new opaque black-and-white copy of img: transparent
// and near-white pixels become white, everything else black. Applying it to
// its own output changes nothing.
func Monochrome(img image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	pix := out.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		v := uint8(0)
		if pix[i+3] < TransparentBelow || (pix[i] >= WhiteFrom && pix[i+1] >= WhiteFrom && pix[i+2] >= WhiteFrom) {
			v = 0xff
		}
		pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 0xff
	}
	return out
}
