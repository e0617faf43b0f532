// Command passview shows two images through the comparison pass in a
// window. Drag the divider to move the split; double-click it to swap the
// sides. Without -right the left image is compared with its blur.
//
// Keys: A toggles the drag arrows, L toggles the labels, Escape quits.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/graph"
	"github.com/gogpu/renderpass/integration/present"
	"github.com/gogpu/renderpass/passes/blur"
	"github.com/gogpu/renderpass/passes/compare"
	"github.com/gogpu/renderpass/resource"
	"github.com/gogpu/renderpass/software"
)

var (
	leftPath  = flag.String("left", "", "Left image (required)")
	rightPath = flag.String("right", "", "Right image (default: the blurred left image)")
	maxWidth  = flag.Int("width", 960, "Downscale wider images to this width")
	kernel    = flag.Uint("kernel", 9, "Blur kernel width when -right is empty")
	sigma     = flag.Float64("sigma", 3, "Blur sigma when -right is empty")
	verbose   = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Parse()
	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	renderpass.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil && !errors.Is(err, ebiten.Termination) {
		fmt.Fprintf(os.Stderr, "passview: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if *leftPath == "" {
		return errors.New("-left is required")
	}
	left, err := openImage(*leftPath)
	if err != nil {
		return err
	}
	b := left.Bounds()

	ctx := software.New(software.WithWorkers(0))
	defer ctx.Close()
	v := &viewer{ctx: ctx, width: b.Dx(), height: b.Dy(), start: time.Now(), dirty: true}
	defer v.close()
	if err := v.build(left); err != nil {
		return err
	}

	ebiten.SetWindowTitle("passview: " + *leftPath)
	ebiten.SetWindowSize(v.width, v.height)
	ebiten.SetTPS(60)
	return ebiten.RunGame(v)
}

func openImage(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if *maxWidth > 0 && img.Bounds().Dx() > *maxWidth {
		img = imaging.Resize(img, *maxWidth, 0, imaging.Lanczos)
	}
	return img, nil
}

// viewer is the ebiten game driving the graph.
type viewer struct {
	ctx           *software.Context
	g             *graph.Graph
	cmp           *compare.Pass
	width, height int
	start         time.Time

	frame   uint64
	lastX   int
	lastY   int
	dirty   bool
	arrows  bool
	labels  bool
	pix     []byte
	fbImg   *ebiten.Image
	sources []*resource.Texture
}

func (v *viewer) build(left image.Image) error {
	v.g = graph.New(graph.WithSize(v.width, v.height))
	lt, err := v.ctx.FromImage("left", left, resource.ShaderResource)
	if err != nil {
		return err
	}
	v.sources = append(v.sources, lt)

	if err := v.g.CreatePass(v.ctx, "cmp", compare.Name, nil); err != nil {
		return err
	}
	if err := v.g.Bind("cmp.leftInput", resource.FromTexture(lt)); err != nil {
		return err
	}

	if *rightPath != "" {
		right, err := openImage(*rightPath)
		if err != nil {
			return err
		}
		right = imaging.Resize(right, v.width, v.height, imaging.Lanczos)
		rt, err := v.ctx.FromImage("right", right, resource.ShaderResource)
		if err != nil {
			return err
		}
		v.sources = append(v.sources, rt)
		if err := v.g.Bind("cmp.rightInput", resource.FromTexture(rt)); err != nil {
			return err
		}
	} else {
		dict := renderpass.NewDictionary().Set("kernelWidth", *kernel).Set("sigma", *sigma)
		steps := []error{
			v.g.CreatePass(v.ctx, "blur", blur.Name, dict),
			v.g.Bind("blur.src", resource.FromTexture(lt)),
			v.g.Connect("blur.dst", "cmp.rightInput"),
		}
		if err := errors.Join(steps...); err != nil {
			return err
		}
	}
	if err := v.g.MarkOutput("cmp.outputColor"); err != nil {
		return err
	}
	if err := v.g.Compile(v.ctx); err != nil {
		return err
	}
	v.cmp = v.g.Pass("cmp").(*compare.Pass)
	v.cmp.SetShowLabels(true, true)
	v.labels = true
	return nil
}

func (v *viewer) close() {
	if v.g != nil {
		v.g.Release()
	}
	for _, tex := range v.sources {
		tex.Release()
	}
	if v.fbImg != nil {
		v.fbImg.Deallocate()
	}
}

func (v *viewer) mouse(typ renderpass.MouseEventType, x, y int) {
	v.g.OnMouseEvent(renderpass.MouseEvent{
		Type:   typ,
		Button: renderpass.MouseLeft,
		X:      float32(x),
		Y:      float32(y),
		Width:  v.width,
		Height: v.height,
		Time:   time.Since(v.start),
	})
	v.dirty = true
}

func (v *viewer) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyA) {
		v.arrows = !v.arrows
		v.cmp.SetDrawArrows(v.arrows)
		v.dirty = true
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyL) {
		v.labels = !v.labels
		v.cmp.SetShowLabels(v.labels, true)
		v.dirty = true
	}

	x, y := ebiten.CursorPosition()
	if x != v.lastX || y != v.lastY {
		v.lastX, v.lastY = x, y
		v.mouse(renderpass.MouseMove, x, y)
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		v.mouse(renderpass.MouseButtonDown, x, y)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		v.mouse(renderpass.MouseButtonUp, x, y)
	}

	if !v.dirty {
		return nil
	}
	v.frame++
	if err := v.g.Execute(v.ctx, &renderpass.RenderData{Frame: v.frame, Time: time.Since(v.start)}); err != nil {
		return err
	}
	img, err := v.ctx.Image(v.g.Texture("cmp.outputColor"))
	if err != nil {
		return err
	}
	// ebiten images hold premultiplied alpha.
	v.pix = present.Pack(v.pix[:0], img, present.Options{Premultiply: true})
	if v.fbImg == nil {
		v.fbImg = ebiten.NewImage(v.width, v.height)
	}
	v.fbImg.WritePixels(v.pix)
	v.dirty = false
	return nil
}

func (v *viewer) Draw(screen *ebiten.Image) {
	if v.fbImg != nil {
		screen.DrawImage(v.fbImg, nil)
	}
}

func (v *viewer) Layout(int, int) (int, int) {
	return v.width, v.height
}
