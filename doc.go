// Package renderpass defines the contract between render-graph hosts and
// the render passes they schedule.
//
// # Overview
//
// A pass declares what it reads and writes through a [Reflection], accepts
// externally owned resources through SetInput and SetOutput, reports
// problems through IsValid, and records its work into a [gfx.Context] in
// Execute. Passes keep their tunable parameters in a flat [Dictionary] that
// round-trips through the pass's factory and through TOML or YAML files.
//
// # Passes
//
// The passes sub-packages provide the concrete passes:
//
//   - passes/blur: separable Gaussian blur
//   - passes/sss: screen-space subsurface scattering
//   - passes/raster: scene rasterization with optional external depth
//   - passes/compare: interactive side-by-side comparison overlay
//
// Importing a pass package registers it in the default [Registry]:
//
//	import _ "github.com/gogpu/renderpass/passes/blur"
//
//	p := renderpass.Create(ctx, "GaussianBlurPass", renderpass.Dictionary{
//	    "kernelWidth": 7,
//	    "sigma":       3.0,
//	})
//
// # Hosting
//
// The graph package is a minimal host: it wires pass fields by name,
// allocates outputs, gates Execute on IsValid and forwards pointer events.
// The software package provides a CPU [gfx.Context] used for tests and
// headless rendering.
//
// # Logging
//
// Nothing is logged by default. Call [SetLogger] with a *slog.Logger to see
// binding errors, validation warnings and resource allocation.
package renderpass
