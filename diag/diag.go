// Package diag renders apply progress and a target-digest QR code for
// devices with a small attached display, the way engrave.Rasterizer
// turns a Command stream into pixels and backup.go turns seed bytes into
// a scannable code — here aimed at a screen instead of an engraved
// plate, so the operator can see an apply is progressing and confirm
// (by scanning) which target image a patch just produced.
package diag

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/kortschak/qr"
	"github.com/srwiley/rasterx"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/fixed"
)

// ProgressBar rasterizes a horizontal bar filled in proportion to pct
// (0..1), the way engrave.Rasterizer strokes a Command stream: a
// rasterx.Dasher draws one filled line the width of the bar times pct.
func ProgressBar(width, height int, pct float64) image.Image {
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	dasher.SetStroke(fixed.I(height), 0, rasterx.ButtCap, rasterx.ButtCap, rasterx.ButtGap, rasterx.ArcClip, nil, 0)
	dasher.SetColor(color.RGBA{R: 0x20, G: 0xA0, B: 0x40, A: 0xFF})

	y := float64(height) / 2
	x1 := float64(width) * pct
	dasher.Start(rasterx.ToFixedP(0, y))
	dasher.Line(rasterx.ToFixedP(x1, y))
	dasher.Stop(false)
	dasher.Draw()
	return img
}

// TargetDigestQR renders the patch header's target_chk (§6.3) as a
// scannable QR code at scale pixels per module, so a field technician
// can confirm which target image a just-completed apply produced
// without reading it off a debug console.
func TargetDigestQR(targetChk [32]byte, scale int) (image.Image, error) {
	content := fmt.Sprintf("%x", targetChk)
	code, err := qr.Encode(content, qr.M)
	if err != nil {
		return nil, fmt.Errorf("diag: encoding target digest QR: %w", err)
	}
	dim := code.Size
	small := image.NewGray(image.Rect(0, 0, dim, dim))
	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			c := color.Gray{Y: 0xFF}
			if code.Black(x, y) {
				c = color.Gray{Y: 0x00}
			}
			small.SetGray(x, y, c)
		}
	}
	if scale < 1 {
		scale = 1
	}
	out := image.NewGray(image.Rect(0, 0, dim*scale, dim*scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), small, small.Bounds(), xdraw.Src, nil)
	return out, nil
}
