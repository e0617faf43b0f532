// Command passdemo runs a render-pass graph over an image on the CPU and
// writes the result as a PNG.
//
// By default the input is blurred and compared side by side with the
// original:
//
//	passdemo -in photo.jpg -out cmp.png -kernel 9 -sigma 3 -labels
//
// A graph saved with -save-graph can be edited and run again with -graph.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/term"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/graph"
	"github.com/gogpu/renderpass/passes/blur"
	"github.com/gogpu/renderpass/passes/compare"
	"github.com/gogpu/renderpass/resource"
	"github.com/gogpu/renderpass/software"

	_ "github.com/gogpu/renderpass/passes/raster"
	_ "github.com/gogpu/renderpass/passes/sss"
)

// pipeName is the file name that selects stdin or stdout.
const pipeName = "-"

var (
	source    = flag.String("in", pipeName, "Source image")
	dest      = flag.String("out", "passdemo.png", "Destination PNG")
	width     = flag.Int("width", 0, "Resize the source to this width, keeping the aspect ratio")
	mode      = flag.String("mode", "compare", "Built-in graph: blur or compare")
	graphFile = flag.String("graph", "", "Run a graph file (.toml, .yaml) instead of a built-in graph")
	bindRefs  = flag.String("bind", "blur.src,cmp.leftInput", "Comma separated fields fed with the source image when -graph is set")
	outRef    = flag.String("output", "", "Field written to -out (default: the first graph output)")
	saveGraph = flag.String("save-graph", "", "Write the graph to this file before running it")
	kernel    = flag.Uint("kernel", blur.DefaultKernelWidth, "Blur kernel width")
	sigma     = flag.Float64("sigma", blur.DefaultSigma, "Blur sigma")
	split     = flag.Float64("split", compare.DefaultSplitLoc, "Comparison split location in [0, 1]")
	labels    = flag.Bool("labels", false, "Draw comparison labels")
	list      = flag.Bool("list", false, "List the registered pass types and exit")
	verbose   = flag.Bool("v", false, "Verbose logging")
)

func main() {
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	renderpass.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *list {
		listPasses(os.Stdout)
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "passdemo: %v\n", err)
		os.Exit(1)
	}
}

func listPasses(w io.Writer) {
	reg := renderpass.DefaultRegistry()
	for _, name := range reg.Names() {
		d, _ := reg.Lookup(name)
		fmt.Fprintf(w, "%-22s %s\n", name, d.Summary)
	}
}

func run() error {
	start := time.Now()
	img, err := loadImage(*source)
	if err != nil {
		return err
	}
	if *width > 0 {
		img = imaging.Resize(img, *width, 0, imaging.Lanczos)
	}
	b := img.Bounds()

	ctx := software.New(software.WithWorkers(0))
	defer ctx.Close()
	src, err := ctx.FromImage("source", img, resource.ShaderResource|resource.RenderTarget)
	if err != nil {
		return fmt.Errorf("upload source: %w", err)
	}
	defer src.Release()

	g, binds, err := buildGraph(ctx, b.Dx(), b.Dy())
	if err != nil {
		return err
	}
	defer g.Release()
	for _, ref := range binds {
		if err := g.Bind(ref, resource.FromTexture(src)); err != nil {
			return err
		}
	}
	if *saveGraph != "" {
		if err := g.SaveFile(*saveGraph); err != nil {
			return err
		}
	}

	if err := g.Compile(ctx); err != nil {
		return err
	}
	if err := g.Execute(ctx, &renderpass.RenderData{Frame: 1}); err != nil {
		return err
	}
	if skipped := g.Skipped(); len(skipped) > 0 {
		return fmt.Errorf("passes skipped as invalid: %s (run with -v for details)", strings.Join(skipped, ", "))
	}

	ref := *outRef
	if ref == "" {
		outs := g.Outputs()
		if len(outs) == 0 {
			return errors.New("graph has no marked output; set -output")
		}
		ref = outs[0].String()
	}
	tex := g.Texture(ref)
	if tex == nil {
		return fmt.Errorf("no texture bound to %s", ref)
	}
	out, err := ctx.Image(tex)
	if err != nil {
		return err
	}
	if err := saveImage(*dest, out); err != nil {
		return err
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		st := ctx.Stats()
		fmt.Fprintf(os.Stderr, "%s: %dx%d, %d passes, %d draws in %s\n",
			*dest, b.Dx(), b.Dy(), len(g.Order()), st.Draws, time.Since(start).Round(time.Millisecond))
	}
	return nil
}

// buildGraph returns the graph to run and the fields fed with the source.
func buildGraph(ctx *software.Context, w, h int) (*graph.Graph, []string, error) {
	if *graphFile != "" {
		g, err := graph.LoadFile(ctx, *graphFile, graph.WithSize(w, h))
		if err != nil {
			return nil, nil, err
		}
		var binds []string
		for _, ref := range strings.Split(*bindRefs, ",") {
			if ref = strings.TrimSpace(ref); ref != "" {
				binds = append(binds, ref)
			}
		}
		return g, binds, nil
	}

	g := graph.New(graph.WithSize(w, h))
	blurDict := renderpass.NewDictionary().
		Set("kernelWidth", *kernel).
		Set("sigma", *sigma)
	if err := g.CreatePass(ctx, "blur", blur.Name, blurDict); err != nil {
		return nil, nil, err
	}
	switch *mode {
	case "blur":
		if err := g.MarkOutput("blur.dst"); err != nil {
			return nil, nil, err
		}
		return g, []string{"blur.src"}, nil
	case "compare":
		cmpDict := renderpass.NewDictionary().
			Set("splitLoc", *split).
			Set("showLabels", *labels).
			Set("leftLabel", "Original").
			Set("rightLabel", fmt.Sprintf("Blur %d", *kernel))
		steps := []error{
			g.CreatePass(ctx, "cmp", compare.Name, cmpDict),
			g.Connect("blur.dst", "cmp.rightInput"),
			g.MarkOutput("cmp.outputColor"),
		}
		if err := errors.Join(steps...); err != nil {
			return nil, nil, err
		}
		return g, []string{"blur.src", "cmp.leftInput"}, nil
	default:
		return nil, nil, fmt.Errorf("unknown mode %q", *mode)
	}
}

func loadImage(path string) (image.Image, error) {
	if path == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return nil, errors.New("`-` should be used with a pipe for stdin")
		}
		img, err := imaging.Decode(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("decode stdin: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the source file: %w", err)
	}
	return img, nil
}

func saveImage(path string, img image.Image) error {
	if path == pipeName {
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.New("`-` should be used with a pipe for stdout")
		}
		return imaging.Encode(os.Stdout, img, imaging.PNG)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}
	return nil
}
