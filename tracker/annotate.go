package tracker

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
)

// BoxColor is the outline color of detection boxes.
var BoxColor = color.RGBA{0, 255, 0, 255}

const boxLineWidth = 2

// Annotate returns a copy of img with a box and a "label score" caption drawn for each
// detection. img is not modified.
func Annotate(img image.Image, detections []Detection) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetColor(BoxColor)
	dc.SetLineWidth(boxLineWidth)

	for _, d := range detections {
		r := d.Box.Canon()
		if r.Empty() {
			continue
		}
		x, y := float64(r.Min.X), float64(r.Min.Y)
		dc.DrawRectangle(x, y, float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		// Place the caption above the box, or inside it at the top edge of the frame.
		caption := fmt.Sprintf("%s %.2f", d.Label, d.Score)
		_, h := dc.MeasureString(caption)
		ty := y - 3
		if ty-h < 0 {
			ty = y + h + 1
		}
		dc.DrawString(caption, x+2, ty)
	}

	return dc.Image()
}
