// Package visualize renders probability matrices as annotated heatmaps.
package visualize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/MeKo-Tech/ctcbeam/internal/ctc"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Mark highlights the cell of one emitted label.
type Mark struct {
	Timestep int
	Label    int
}

// Options controls heatmap rendering.
type Options struct {
	CellWidth  int
	CellHeight int
	// ShowLabels draws the alphabet symbols in a left margin.
	ShowLabels bool
	Marks      []Mark
	Low        color.NRGBA
	High       color.NRGBA
	MarkColor  color.NRGBA
}

// DefaultOptions returns a white-to-blue ramp with red path marks.
func DefaultOptions() Options {
	return Options{
		CellWidth:  8,
		CellHeight: 14,
		ShowLabels: true,
		Low:        color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		High:       color.NRGBA{R: 8, G: 48, B: 107, A: 255},
		MarkColor:  color.NRGBA{R: 220, G: 20, B: 60, A: 255},
	}
}

// MarksFromSequence pairs the labels of a decoded sequence with the
// timesteps they were emitted at.
func MarksFromSequence(labels, timesteps []int) []Mark {
	n := min(len(labels), len(timesteps))
	marks := make([]Mark, n)
	for i := range n {
		marks[i] = Mark{Timestep: timesteps[i], Label: labels[i]}
	}
	return marks
}

var face = basicfont.Face7x13

// Heatmap renders m with timesteps along x and alphabet symbols along y.
// Values outside [0, 1] are min-max scaled over the whole matrix. NaN cells
// are drawn magenta.
func Heatmap(m ctc.Matrix, alphabet ctc.Alphabet, opts Options) (*image.NRGBA, error) {
	if m.Rows == 0 || m.Cols == 0 {
		return nil, errors.New("cannot render an empty matrix")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if alphabet != nil && alphabet.Len() != m.Cols {
		return nil, fmt.Errorf("matrix has %d columns but alphabet has %d symbols", m.Cols, alphabet.Len())
	}
	if opts.CellWidth < 1 || opts.CellHeight < 1 {
		return nil, fmt.Errorf("cell size must be positive, got %dx%d", opts.CellWidth, opts.CellHeight)
	}

	lo, hi := valueRange(m)
	small := image.NewNRGBA(image.Rect(0, 0, m.Rows, m.Cols))
	for t := range m.Rows {
		row := m.Row(t)
		for k, v := range row {
			small.SetNRGBA(t, k, cellColor(v, lo, hi, opts))
		}
	}
	width, height := m.Rows*opts.CellWidth, m.Cols*opts.CellHeight
	scaled := imaging.Resize(small, width, height, imaging.NearestNeighbor)

	margin := 0
	if opts.ShowLabels && alphabet != nil {
		margin = labelMargin(alphabet)
	}
	canvas := imaging.New(margin+width, height, opts.Low)
	canvas = imaging.Paste(canvas, scaled, image.Pt(margin, 0))

	if margin > 0 {
		drawer := &font.Drawer{Dst: canvas, Src: image.NewUniform(color.Black), Face: face}
		ascent := face.Metrics().Ascent.Ceil()
		for k := range alphabet.Len() {
			y := k*opts.CellHeight + (opts.CellHeight+ascent)/2 - 1
			drawer.Dot = fixed.P(2, y)
			drawer.DrawString(alphabet.Symbol(k))
		}
	}

	for _, mk := range opts.Marks {
		if mk.Timestep < 0 || mk.Timestep >= m.Rows || mk.Label < 0 || mk.Label >= m.Cols {
			continue
		}
		x0 := margin + mk.Timestep*opts.CellWidth
		y0 := mk.Label * opts.CellHeight
		outline(canvas, image.Rect(x0, y0, x0+opts.CellWidth, y0+opts.CellHeight), opts.MarkColor)
	}
	return canvas, nil
}

func valueRange(m ctc.Matrix) (lo, hi float32) {
	lo, hi = 0, 1
	for _, v := range m.Data {
		if v != v {
			continue
		}
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

func cellColor(v, lo, hi float32, opts Options) color.NRGBA {
	if v != v {
		return color.NRGBA{R: 255, B: 255, A: 255}
	}
	f := float64(v-lo) / float64(hi-lo)
	if math.IsNaN(f) {
		f = 0
	}
	f = math.Max(0, math.Min(1, f))
	lerp := func(a, b uint8) uint8 { return uint8(float64(a) + (float64(b)-float64(a))*f + 0.5) }
	return color.NRGBA{
		R: lerp(opts.Low.R, opts.High.R),
		G: lerp(opts.Low.G, opts.High.G),
		B: lerp(opts.Low.B, opts.High.B),
		A: 255,
	}
}

func labelMargin(alphabet ctc.Alphabet) int {
	widest := 1
	for k := range alphabet.Len() {
		widest = max(widest, utf8.RuneCountInString(alphabet.Symbol(k)))
	}
	return widest*face.Advance + 6
}

func outline(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetNRGBA(x, r.Min.Y, c)
		img.SetNRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetNRGBA(r.Min.X, y, c)
		img.SetNRGBA(r.Max.X-1, y, c)
	}
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(img image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path) //nolint:gosec // G304: output path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode heatmap: %w", err)
	}
	return f.Close()
}
