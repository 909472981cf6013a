package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WritePlot renders carrier and code differences against elapsed time as
// a PNG with one line per column.
func WritePlot(w io.Writer, s *Series, title string) error {
	if s.Len() == 0 {
		return ErrNoSamples
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Elapsed (s)"
	p.Y.Label.Text = "NCO difference"

	names, cols := s.Columns()
	colors := generateColors(len(cols))
	for i, col := range cols {
		pts := make(plotter.XYs, len(col))
		for j, v := range col {
			pts[j] = plotter.XY{X: s.Elapsed[j], Y: v}
		}
		l, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("failed to build line %q: %w", names[i], err)
		}
		l.Color = colors[i]
		l.Width = vg.Points(1)
		if i >= len(cols)/2 {
			l.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		}
		p.Add(l)
		p.Legend.Add(names[i], l)
	}
	p.Legend.Top = true

	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to render plot: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// generateColors creates a palette of distinct colors, one per column.
// Carrier and code columns for the same pair share a hue.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}
	half := (n + 1) / 2

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i%half) / float64(half)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t += 1
	}
	if t > 1 {
		t -= 1
	}
	if t < 1.0/6.0 {
		return p + (q-p)*6*t
	}
	if t < 1.0/2.0 {
		return q
	}
	if t < 2.0/3.0 {
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
