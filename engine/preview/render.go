package preview

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	m "math"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/spaghettifunk/autorig/engine/math"
	"github.com/spaghettifunk/autorig/engine/rig"
)

var (
	BackgroundColor = color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff}
	WeightedColor   = color.RGBA{R: 0x6f, G: 0xa8, B: 0xdc, A: 0xff}
	RingColor       = color.RGBA{R: 0xf0, G: 0x9a, B: 0x3e, A: 0xff}
	JointColor      = color.RGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}
	LabelColor      = color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
)

type Options struct {
	Width  int
	Height int
	// Margin is kept free on every side, in pixels.
	Margin int
	View   View
	// Yaw turns the view camera around its up axis, in degrees.
	Yaw    float64
	Labels bool
}

func DefaultOptions() Options {
	return Options{
		Width:  512,
		Height: 512,
		Margin: 24,
		View:   ViewFront,
		Labels: true,
	}
}

// Render draws the bones of s as an orthographic preview. Each bone is a
// diamond widest near its tail, coloured by shape, with a dot on each joint.
func Render(s *rig.Skeleton, opts Options) (*image.RGBA, error) {
	if opts.Width <= 2*opts.Margin || opts.Height <= 2*opts.Margin {
		return nil, fmt.Errorf("preview %dx%d too small for margin %d", opts.Width, opts.Height, opts.Margin)
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(BackgroundColor), image.Point{}, draw.Src)
	if len(s.Bones) == 0 {
		return img, nil
	}

	camera := NewViewCamera(opts.View)
	if opts.Yaw != 0 {
		camera.Yaw(math.DegToRad(opts.Yaw))
	}
	toScreen := fitScreen(camera, s.Bones, opts)

	z := vector.NewRasterizer(opts.Width, opts.Height)
	for _, b := range s.Bones {
		fill := WeightedColor
		if b.Shape == rig.ShapeRing {
			fill = RingColor
		}
		head, tail := toScreen(b.Head), toScreen(b.Tail)
		z.Reset(opts.Width, opts.Height)
		boneOutline(z, head, tail)
		z.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{})

		z.Reset(opts.Width, opts.Height)
		disc(z, head, 3)
		disc(z, tail, 2)
		z.Draw(img, img.Bounds(), image.NewUniform(JointColor), image.Point{})
	}

	if opts.Labels {
		d := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(LabelColor),
			Face: basicfont.Face7x13,
		}
		for _, b := range s.Bones {
			mid := toScreen(b.Head.Add(b.Tail).MulScalar(0.5))
			d.Dot = fixed.P(int(mid[0])+6, int(mid[1])+4)
			d.DrawString(b.Name)
		}
	}
	return img, nil
}

// fitScreen maps world points to pixels so every joint fits inside the margin.
func fitScreen(camera *Camera, bones []rig.Bone, opts Options) func(math.Vec3) [2]float32 {
	minX, minY := m.Inf(1), m.Inf(1)
	maxX, maxY := m.Inf(-1), m.Inf(-1)
	for _, b := range bones {
		for _, p := range []math.Vec3{b.Head, b.Tail} {
			c := camera.Project(p)
			minX, maxX = m.Min(minX, c.X), m.Max(maxX, c.X)
			minY, maxY = m.Min(minY, c.Y), m.Max(maxY, c.Y)
		}
	}

	innerW := float64(opts.Width - 2*opts.Margin)
	innerH := float64(opts.Height - 2*opts.Margin)
	spanX, spanY := maxX-minX, maxY-minY
	scale := m.Min(innerW/m.Max(spanX, 1e-9), innerH/m.Max(spanY, 1e-9))
	if spanX < 1e-9 && spanY < 1e-9 {
		scale = 1
	}
	offX := float64(opts.Margin) + (innerW-spanX*scale)/2
	offY := float64(opts.Margin) + (innerH-spanY*scale)/2

	return func(p math.Vec3) [2]float32 {
		c := camera.Project(p)
		x := offX + (c.X-minX)*scale
		// image rows grow downwards
		y := float64(opts.Height) - (offY + (c.Y-minY)*scale)
		return [2]float32{float32(x), float32(y)}
	}
}

func boneOutline(z *vector.Rasterizer, head, tail [2]float32) {
	dx, dy := head[0]-tail[0], head[1]-tail[1]
	length := float32(m.Hypot(float64(dx), float64(dy)))
	if length < 1 {
		disc(z, head, 4)
		return
	}
	width := length * 0.1
	if width < 2 {
		width = 2
	}
	nx, ny := -dy/length*width, dx/length*width
	waistX, waistY := tail[0]+dx*0.15, tail[1]+dy*0.15

	z.MoveTo(tail[0], tail[1])
	z.LineTo(waistX+nx, waistY+ny)
	z.LineTo(head[0], head[1])
	z.LineTo(waistX-nx, waistY-ny)
	z.ClosePath()
}

// disc adds an octagon of radius r around c.
func disc(z *vector.Rasterizer, c [2]float32, r float32) {
	for i := 0; i < 8; i++ {
		a := float64(i) * m.Pi / 4
		x := c[0] + r*float32(m.Cos(a))
		y := c[1] + r*float32(m.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
		} else {
			z.LineTo(x, y)
		}
	}
	z.ClosePath()
}

func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// SavePNG renders s and writes it to path.
func SavePNG(path string, s *rig.Skeleton, opts Options) error {
	img, err := Render(s, opts)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
