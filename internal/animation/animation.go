// Package animation renders the decorative roulette strip shown while a spin
// is revealed.
package animation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"roulette-bot/internal/model"
)

// MaxSize is the largest animation Telegram accepts as an upload.
const MaxSize = 50 * 1024 * 1024

var (
	background = color.NRGBA{R: 18, G: 18, B: 24, A: 255}
	stripColor = color.NRGBA{R: 32, G: 32, B: 40, A: 255}
	frameColor = color.NRGBA{R: 255, G: 215, B: 0, A: 255}
)

// Options controls the frame geometry and timing.
type Options struct {
	Width        int
	Height       int
	TileSize     int
	Gap          int
	VisibleTiles int
	FPS          int
	Seconds      int
	// Speed is the strip scroll speed in pixels per second.
	Speed float64
}

// DefaultOptions returns the geometry used by the bot.
func DefaultOptions(seconds int) Options {
	return Options{
		Width:        640,
		Height:       240,
		TileSize:     112,
		Gap:          8,
		VisibleTiles: 5,
		FPS:          10,
		Seconds:      seconds,
		Speed:        182,
	}
}

// Animation is an encoded GIF ready to upload.
type Animation struct {
	Data     []byte
	FileName string
	Width    int
	Height   int
	Seconds  int
	Frames   int
}

// Render draws the strip sequence scrolling past a highlighted center slot.
// Every item in sequence must have a readable ImagePath.
func Render(sequence []model.CatalogItem, opts Options) (*Animation, error) {
	if len(sequence) == 0 {
		return nil, fmt.Errorf("cannot render roulette animation: no items")
	}
	if opts.FPS <= 0 || opts.Seconds <= 0 || opts.TileSize <= 0 || opts.VisibleTiles <= 0 {
		return nil, fmt.Errorf("invalid animation options: %+v", opts)
	}

	tiles, err := loadTiles(sequence, opts.TileSize)
	if err != nil {
		return nil, err
	}

	pitch := opts.TileSize + opts.Gap
	viewW := pitch*opts.VisibleTiles - opts.Gap
	if viewW > opts.Width || opts.TileSize > opts.Height {
		return nil, fmt.Errorf("viewport %dx%d does not fit in %dx%d", viewW, opts.TileSize, opts.Width, opts.Height)
	}
	stripW := pitch * len(sequence)

	x0 := (opts.Width - viewW) / 2
	y0 := (opts.Height - opts.TileSize) / 2
	centerX := x0 + (viewW-opts.TileSize)/2

	frameCount := opts.Seconds * opts.FPS
	delay := 100 / opts.FPS
	out := &gif.GIF{
		Image: make([]*image.Paletted, 0, frameCount),
		Delay: make([]int, 0, frameCount),
	}

	for i := 0; i < frameCount; i++ {
		offset := int(float64(i)/float64(opts.FPS)*opts.Speed) % stripW
		first, shift := offset/pitch, offset%pitch

		dc := gg.NewContext(opts.Width, opts.Height)
		dc.SetColor(background)
		dc.Clear()

		dc.DrawRectangle(float64(x0), float64(y0), float64(viewW), float64(opts.TileSize))
		dc.Clip()
		dc.SetColor(stripColor)
		dc.DrawRectangle(float64(x0), float64(y0), float64(viewW), float64(opts.TileSize))
		dc.Fill()
		for k := 0; x0-shift+k*pitch < x0+viewW; k++ {
			item := sequence[(first+k)%len(sequence)]
			dc.DrawImage(tiles[item.ID], x0-shift+k*pitch, y0)
		}
		dc.ResetClip()

		dc.SetColor(frameColor)
		dc.SetLineWidth(4)
		dc.DrawRectangle(float64(centerX)+2, float64(y0)+2, float64(opts.TileSize)-4, float64(opts.TileSize)-4)
		dc.Stroke()

		out.Image = append(out.Image, quantize(dc.Image()))
		out.Delay = append(out.Delay, delay)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, out); err != nil {
		return nil, fmt.Errorf("encode roulette animation: %w", err)
	}
	if buf.Len() > MaxSize {
		return nil, fmt.Errorf("roulette animation is too large: %d bytes", buf.Len())
	}

	return &Animation{
		Data:     buf.Bytes(),
		FileName: "roulette.gif",
		Width:    opts.Width,
		Height:   opts.Height,
		Seconds:  opts.Seconds,
		Frames:   frameCount,
	}, nil
}

func loadTiles(sequence []model.CatalogItem, size int) (map[int64]image.Image, error) {
	tiles := make(map[int64]image.Image)
	for _, item := range sequence {
		if _, ok := tiles[item.ID]; ok {
			continue
		}
		src, err := gg.LoadImage(item.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("load image for item %d: %w", item.ID, err)
		}
		dst := image.NewRGBA(image.Rect(0, 0, size, size))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		tiles[item.ID] = dst
	}
	return tiles, nil
}

func quantize(img image.Image) *image.Paletted {
	p := image.NewPaletted(img.Bounds(), palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, image.Point{})
	return p
}
