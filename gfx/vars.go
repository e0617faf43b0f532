package gfx

import (
	"fmt"

	"github.com/gogpu/renderpass/resource"
)

// Vars binds resources and constants to a program's declared variables.
type Vars struct {
	prog     *Program
	textures map[string]*resource.Texture
	buffers  map[string]*resource.Buffer
	floats   map[string][]float32
	samplers map[string]Sampler
}

// NewVars returns an empty variable set for p.
func NewVars(p *Program) *Vars {
	return &Vars{
		prog:     p,
		textures: make(map[string]*resource.Texture),
		buffers:  make(map[string]*resource.Buffer),
		floats:   make(map[string][]float32),
		samplers: make(map[string]Sampler),
	}
}

// Program returns the program the set was created for.
func (v *Vars) Program() *Program { return v.prog }

func (v *Vars) check(name string, kind VarKind) error {
	decl, ok := v.prog.Var(name)
	if !ok {
		return fmt.Errorf("%w: %s has no %q", ErrUnknownVar, v.prog.Name(), name)
	}
	if decl.Kind != kind {
		return fmt.Errorf("%w: %s.%s is a %v, not a %v", ErrVarKind, v.prog.Name(), name, decl.Kind, kind)
	}
	return nil
}

// SetTexture binds tex to the named texture variable. nil unbinds it.
func (v *Vars) SetTexture(name string, tex *resource.Texture) error {
	if err := v.check(name, VarTexture); err != nil {
		return err
	}
	if tex == nil {
		delete(v.textures, name)
		return nil
	}
	v.textures[name] = tex
	return nil
}

// SetBuffer binds buf to the named buffer variable. nil unbinds it.
func (v *Vars) SetBuffer(name string, buf *resource.Buffer) error {
	if err := v.check(name, VarBuffer); err != nil {
		return err
	}
	if buf == nil {
		delete(v.buffers, name)
		return nil
	}
	v.buffers[name] = buf
	return nil
}

// SetFloats copies vals into the named constant variable.
func (v *Vars) SetFloats(name string, vals ...float32) error {
	if err := v.check(name, VarFloats); err != nil {
		return err
	}
	v.floats[name] = append(v.floats[name][:0], vals...)
	return nil
}

// SetSampler sets the named sampler variable.
func (v *Vars) SetSampler(name string, s Sampler) error {
	if err := v.check(name, VarSampler); err != nil {
		return err
	}
	v.samplers[name] = s
	return nil
}

// Texture returns the texture bound to name, or nil.
func (v *Vars) Texture(name string) *resource.Texture { return v.textures[name] }

// Buffer returns the buffer bound to name, or nil.
func (v *Vars) Buffer(name string) *resource.Buffer { return v.buffers[name] }

// Floats returns the constants bound to name.
func (v *Vars) Floats(name string) []float32 { return v.floats[name] }

// Float returns the first constant bound to name, or def.
func (v *Vars) Float(name string, def float32) float32 {
	if f := v.floats[name]; len(f) > 0 {
		return f[0]
	}
	return def
}

// Sampler returns the sampler bound to name, or LinearClamp.
func (v *Vars) Sampler(name string) Sampler {
	if s, ok := v.samplers[name]; ok {
		return s
	}
	return LinearClamp
}

// Textures returns the bound textures keyed by variable name.
func (v *Vars) Textures() map[string]*resource.Texture { return v.textures }

// Buffers returns the bound buffers keyed by variable name.
func (v *Vars) Buffers() map[string]*resource.Buffer { return v.buffers }
