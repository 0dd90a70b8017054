// Package render rasterizes feature collections into preview images.
package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"

	"geofix/internal/geo"

	"github.com/chai2010/webp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	xdraw "golang.org/x/image/draw"
)

// ErrNoGeometry is returned when nothing in the collection can be drawn.
var ErrNoGeometry = errors.New("render: no drawable geometry")

const (
	// Render at 2x and scale down for cheap antialiasing.
	supersample = 2
	// Fraction of the canvas kept clear around the data extent.
	margin = 0.05
)

var (
	background = color.RGBA{R: 0x1b, G: 0x1e, B: 0x23, A: 0xff}
	ink        = color.RGBA{R: 0x6f, G: 0xc3, B: 0xff, A: 0xff}
)

// canvas maps unit-square Mercator coordinates onto pixels.
type canvas struct {
	img    *image.RGBA
	x0, y0 float64
	sx, sy float64
	side   int
}

// Preview renders the collection into a square WebP image of the given
// side length.
func Preview(fc *geojson.FeatureCollection, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}

	bound, ok := collectionBound(fc)
	if !ok {
		return nil, ErrNoGeometry
	}

	c := newCanvas(bound, size*supersample)

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		c.drawGeometry(f.Geometry)
	}

	// Scale down to the requested size. CatmullRom keeps thin lines
	// readable at small preview sizes.
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), c.img, c.img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, dst, &webp.Options{Lossless: false, Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func collectionBound(fc *geojson.FeatureCollection) (orb.Bound, bool) {
	var bound orb.Bound
	found := false

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if !found {
			bound = f.Geometry.Bound()
			found = true
			continue
		}
		bound = bound.Union(f.Geometry.Bound())
	}

	return bound, found
}

func newCanvas(bound orb.Bound, side int) *canvas {
	img := image.NewRGBA(image.Rect(0, 0, side, side))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	// Project the extent corners; y flips because Mercator unit space
	// grows downward from the max latitude.
	x0, y1 := geo.LonLatToUnit(bound.Min[0], bound.Min[1])
	x1, y0 := geo.LonLatToUnit(bound.Max[0], bound.Max[1])

	w := x1 - x0
	h := y1 - y0
	if w <= 0 {
		w = 1e-9
	}
	if h <= 0 {
		h = 1e-9
	}

	// Pad and keep aspect by scaling both axes by the larger extent.
	ext := math.Max(w, h) * (1 + 2*margin)
	cx := (x0 + x1) / 2
	cy := (y0 + y1) / 2

	return &canvas{
		img:  img,
		x0:   cx - ext/2,
		y0:   cy - ext/2,
		sx:   float64(side) / ext,
		sy:   float64(side) / ext,
		side: side,
	}
}

func (c *canvas) pixel(p orb.Point) (int, int) {
	ux, uy := geo.LonLatToUnit(p[0], p[1])
	return int((ux - c.x0) * c.sx), int((uy - c.y0) * c.sy)
}

func (c *canvas) drawGeometry(g orb.Geometry) {
	switch v := g.(type) {
	case orb.Point:
		c.drawPoint(v)
	case orb.MultiPoint:
		for _, p := range v {
			c.drawPoint(p)
		}
	case orb.LineString:
		c.drawLine(v)
	case orb.MultiLineString:
		for _, ls := range v {
			c.drawLine(ls)
		}
	case orb.Polygon:
		for _, ring := range v {
			c.drawLine(orb.LineString(ring))
		}
	case orb.MultiPolygon:
		for _, poly := range v {
			for _, ring := range poly {
				c.drawLine(orb.LineString(ring))
			}
		}
	case orb.Collection:
		for _, sub := range v {
			c.drawGeometry(sub)
		}
	}
}

func (c *canvas) drawPoint(p orb.Point) {
	x, y := c.pixel(p)
	r := supersample + 1
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			c.set(x+dx, y+dy)
		}
	}
}

func (c *canvas) drawLine(ls orb.LineString) {
	for i := 1; i < len(ls); i++ {
		x0, y0 := c.pixel(ls[i-1])
		x1, y1 := c.pixel(ls[i])
		c.drawSegment(x0, y0, x1, y1)
	}
}

// drawSegment plots a line with simple DDA stepping.
func (c *canvas) drawSegment(x0, y0, x1, y1 int) {
	dx := x1 - x0
	dy := y1 - y0
	steps := max(abs(dx), abs(dy))
	if steps == 0 {
		c.set(x0, y0)
		return
	}

	fx := float64(x0)
	fy := float64(y0)
	stepX := float64(dx) / float64(steps)
	stepY := float64(dy) / float64(steps)

	for i := 0; i <= steps; i++ {
		c.set(int(math.Round(fx)), int(math.Round(fy)))
		fx += stepX
		fy += stepY
	}
}

func (c *canvas) set(x, y int) {
	if x < 0 || y < 0 || x >= c.side || y >= c.side {
		return
	}
	c.img.SetRGBA(x, y, ink)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
