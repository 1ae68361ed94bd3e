package onnx

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// padColor is the letterbox border, the gray YOLO models are trained with.
var padColor = color.NRGBA{114, 114, 114, 255}

// letterbox maps between source image coordinates and the square model input.
type letterbox struct {
	scale      float64
	padX, padY int
}

// toSource maps a box from model input coordinates back to the source image, clipped to bounds.
func (l letterbox) toSource(x1, y1, x2, y2 float64, bounds image.Rectangle) image.Rectangle {
	f := func(v float64, pad int) int {
		return int(math.Round((v - float64(pad)) / l.scale))
	}
	r := image.Rect(f(x1, l.padX), f(y1, l.padY), f(x2, l.padX), f(y2, l.padY))
	return r.Add(bounds.Min).Intersect(bounds)
}

// letterboxImage resizes img to fit a size x size square, keeping the aspect ratio, and pads the
// remaining area.
func letterboxImage(img image.Image, size int) (*image.NRGBA, letterbox) {
	b := img.Bounds()
	scale := math.Min(float64(size)/float64(b.Dx()), float64(size)/float64(b.Dy()))
	w := int(math.Round(float64(b.Dx()) * scale))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	l := letterbox{scale: scale, padX: (size - w) / 2, padY: (size - h) / 2}
	resized := imaging.Resize(img, w, h, imaging.Linear)
	canvas := imaging.New(size, size, padColor)
	return imaging.Paste(canvas, resized, image.Pt(l.padX, l.padY)), l
}

// fillTensor writes img into dst in planar RGB order (CHW), scaled to [0, 1].
func fillTensor(dst []float32, img *image.NRGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	plane := w * h
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			dst[i] = float32(row[4*x]) / 255
			dst[plane+i] = float32(row[4*x+1]) / 255
			dst[2*plane+i] = float32(row[4*x+2]) / 255
		}
	}
}

// candidate is a decoded box in model input coordinates.
type candidate struct {
	x1, y1, x2, y2 float64
	score          float64
	class          int
}

// decodeOutput decodes a YOLO detection head of shape [1, 4+numClasses, numAnchors], where each
// anchor holds cx, cy, w, h followed by the class scores. Anchors whose best class score is below
// minScore are dropped.
func decodeOutput(out []float32, numClasses, numAnchors int, minScore float64) []candidate {
	var cands []candidate
	for a := 0; a < numAnchors; a++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := out[(4+c)*numAnchors+a]; best < 0 || s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || float64(bestScore) < minScore {
			continue
		}

		cx := float64(out[a])
		cy := float64(out[numAnchors+a])
		w := float64(out[2*numAnchors+a])
		h := float64(out[3*numAnchors+a])
		cands = append(cands, candidate{
			x1: cx - w/2, y1: cy - h/2, x2: cx + w/2, y2: cy + h/2,
			score: float64(bestScore),
			class: best,
		})
	}
	return cands
}

// iou returns the intersection over union of two candidates.
func iou(a, b candidate) float64 {
	ix := math.Min(a.x2, b.x2) - math.Max(a.x1, b.x1)
	iy := math.Min(a.y2, b.y2) - math.Max(a.y1, b.y1)
	if ix <= 0 || iy <= 0 {
		return 0
	}
	inter := ix * iy
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// nms keeps the highest scoring candidates, dropping any candidate of the same class that overlaps
// an already kept one by more than maxIOU. The result is sorted by descending score.
func nms(cands []candidate, maxIOU float64) []candidate {
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	kept := make([]candidate, 0, len(sorted))
outer:
	for _, c := range sorted {
		for _, k := range kept {
			if k.class == c.class && iou(k, c) > maxIOU {
				continue outer
			}
		}
		kept = append(kept, c)
	}
	return kept
}
