package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/renderpass"
	"github.com/gogpu/renderpass/gfx"
)

// Format is a graph file encoding.
type Format uint8

const (
	TOML Format = iota
	YAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case TOML:
		return "TOML"
	case YAML:
		return "YAML"
	default:
		return fmt.Sprintf("Format(%d)", f)
	}
}

// ErrUnknownFormat is returned for file extensions other than .toml,
// .yaml and .yml.
var ErrUnknownFormat = errors.New("graph: unknown file format")

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

type fileGraph struct {
	Width   int        `toml:"width,omitempty" yaml:"width,omitempty"`
	Height  int        `toml:"height,omitempty" yaml:"height,omitempty"`
	Outputs []string   `toml:"outputs,omitempty" yaml:"outputs,omitempty"`
	Passes  []filePass `toml:"pass" yaml:"passes"`
	Edges   []fileEdge `toml:"edge,omitempty" yaml:"edges,omitempty"`
}

type filePass struct {
	Name   string         `toml:"name" yaml:"name"`
	Type   string         `toml:"type" yaml:"type"`
	Params map[string]any `toml:"params,omitempty" yaml:"params,omitempty"`
}

type fileEdge struct {
	Src string `toml:"src" yaml:"src"`
	Dst string `toml:"dst" yaml:"dst"`
}

func (g *Graph) file() fileGraph {
	f := fileGraph{Width: g.data.DefaultWidth, Height: g.data.DefaultHeight}
	for _, r := range g.marks {
		f.Outputs = append(f.Outputs, r.String())
	}
	for _, name := range g.names {
		n := g.nodes[name]
		fp := filePass{Name: name, Type: n.typ}
		if d := n.pass.Dictionary(); len(d) > 0 {
			fp.Params = map[string]any(d)
		}
		f.Passes = append(f.Passes, fp)
	}
	for _, e := range g.edges {
		f.Edges = append(f.Edges, fileEdge{Src: e.Src.String(), Dst: e.Dst.String()})
	}
	return f
}

// Save writes the passes with their dictionaries, the edges and the marked
// outputs. Host bindings are not saved.
func (g *Graph) Save(w io.Writer, format Format) error {
	f := g.file()
	switch format {
	case TOML:
		if err := toml.NewEncoder(w).Encode(f); err != nil {
			return fmt.Errorf("graph: encode TOML: %w", err)
		}
		return nil
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("graph: encode YAML: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
}

// SaveFile saves to path in the format its extension names.
func (g *Graph) SaveFile(path string) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := g.Save(&buf, format); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads a graph written by Save and recreates its passes from the
// registry. Options given here override the saved size.
func Load(ctx gfx.Context, r io.Reader, format Format, opts ...Option) (*Graph, error) {
	var f fileGraph
	switch format {
	case TOML:
		if err := toml.NewDecoder(r).Decode(&f); err != nil {
			return nil, fmt.Errorf("graph: decode TOML: %w", err)
		}
	case YAML:
		if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("graph: decode YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}

	var base []Option
	if f.Width > 0 && f.Height > 0 {
		base = append(base, WithSize(f.Width, f.Height))
	}
	g := New(append(base, opts...)...)
	for _, p := range f.Passes {
		if err := g.CreatePass(ctx, p.Name, p.Type, renderpass.Dictionary(p.Params)); err != nil {
			g.Release()
			return nil, fmt.Errorf("graph: load pass %q: %w", p.Name, err)
		}
	}
	for _, e := range f.Edges {
		if err := g.Connect(e.Src, e.Dst); err != nil {
			g.Release()
			return nil, fmt.Errorf("graph: load edge %s -> %s: %w", e.Src, e.Dst, err)
		}
	}
	for _, o := range f.Outputs {
		if err := g.MarkOutput(o); err != nil {
			g.Release()
			return nil, fmt.Errorf("graph: load output %s: %w", o, err)
		}
	}
	renderpass.Logger().Debug("graph: loaded", "passes", len(f.Passes), "edges", len(f.Edges), "format", format)
	return g, nil
}

// LoadFile loads the graph at path in the format its extension names.
func LoadFile(ctx gfx.Context, path string, opts ...Option) (*Graph, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	defer file.Close()
	return Load(ctx, file, format, opts...)
}
