package tensorop

import (
	"fmt"

	"github.com/fhelipe-compiler/fhelipe-sub001/layout"
	"github.com/fhelipe-compiler/fhelipe-sub001/tensor"
)

// TBootstrapC refreshes every chunk of a ciphertext tensor to usableLevels,
// keeping its log-scale. Grounded on t_bootstrap_c.cc.
type TBootstrapC struct {
	layout        layout.TensorLayout
	usableLevels  tensor.Level
	isShortcut    *bool
}

// NewTBootstrapC constructs a TBootstrapC. isShortcut is nil when the
// source program left it unspecified.
func NewTBootstrapC(l layout.TensorLayout, usableLevels tensor.Level, isShortcut *bool) TBootstrapC {
	return TBootstrapC{layout: l, usableLevels: usableLevels, isShortcut: isShortcut}
}

func (t TBootstrapC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TBootstrapC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TBootstrapC) BackendMaskDepth() int             { return 0 }
func (t TBootstrapC) UsableLevels() tensor.Level        { return t.usableLevels }
func (t TBootstrapC) IsShortcut() *bool                 { return t.isShortcut }

func (t TBootstrapC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: c.Offset, Payload: b.BootstrapC(c.Payload, t.usableLevels)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TBootstrapC: %v", err))
	}
	return out
}

func (t TBootstrapC) Equal(other TOp) bool {
	o, ok := other.(TBootstrapC)
	sameShortcut := (t.isShortcut == nil && o.isShortcut == nil) ||
		(t.isShortcut != nil && o.isShortcut != nil && *t.isShortcut == *o.isShortcut)
	return ok && t.layout.Equal(o.layout) && t.usableLevels == o.usableLevels && sameShortcut
}

func (t TBootstrapC) String() string {
	return fmt.Sprintf("TBootstrapC(%s,usable=%d)", t.layout.Shape(), t.usableLevels)
}

// TRescaleC drops every chunk's Level by one and its LogScale by
// rescaleAmount. Grounded on t_rescale_c.cc.
type TRescaleC struct {
	layout        layout.TensorLayout
	rescaleAmount tensor.LogScale
}

func NewTRescaleC(l layout.TensorLayout, rescaleAmount tensor.LogScale) TRescaleC {
	return TRescaleC{layout: l, rescaleAmount: rescaleAmount}
}

func (t TRescaleC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TRescaleC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TRescaleC) BackendMaskDepth() int             { return 0 }
func (t TRescaleC) RescaleAmount() tensor.LogScale    { return t.rescaleAmount }

func (t TRescaleC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: c.Offset, Payload: b.RescaleC(c.Payload, t.rescaleAmount)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TRescaleC: %v", err))
	}
	return out
}

func (t TRescaleC) Equal(other TOp) bool {
	o, ok := other.(TRescaleC)
	return ok && t.layout.Equal(o.layout) && t.rescaleAmount == o.rescaleAmount
}

func (t TRescaleC) String() string {
	return fmt.Sprintf("TRescaleC(%s,by=%d)", t.layout.Shape(), t.rescaleAmount)
}

// TInputC is the program's input boundary: it has no ciphertext operands
// to amend against, so AmendCtProgram is a stub and CreateInputTensor is
// the real entry point, called once the input's starting Level is known
// (the program's top level, or wherever a later pass decides to seed it).
// Grounded on t_input_c.cc.
type TInputC struct {
	layout   layout.TensorLayout
	name     string
	logScale tensor.LogScale
}

func NewTInputC(l layout.TensorLayout, name string, logScale tensor.LogScale) TInputC {
	return TInputC{layout: l, name: name, logScale: logScale}
}

func (t TInputC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TInputC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TInputC) BackendMaskDepth() int             { return 0 }
func (t TInputC) Name() string                      { return t.name }
func (t TInputC) LogScale() tensor.LogScale         { return t.logScale }

// AmendCtProgram always panics: an input tensor is a source, not a rewrite
// of existing ciphertext inputs. Call CreateInputTensor instead.
func (t TInputC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	panic("internal invariant violation: TInputC: call CreateInputTensor instead of AmendCtProgram")
}

// CreateInputTensor emits one InputC node per chunk offset of the layout,
// each bound to (name, offset.Flat()), at (level, logScale).
func (t TInputC) CreateInputTensor(b Builder, level tensor.Level) LaidOutTensorCt {
	li := tensor.NewLevelInfo(level, t.logScale)
	offsets := t.layout.ChunkOffsets()
	chunks := make([]LaidOutChunk, 0, len(offsets))
	for _, off := range offsets {
		io := tensor.NewIoSpec(t.name, off.Flat())
		chunks = append(chunks, LaidOutChunk{Layout: t.layout, Offset: off, Payload: b.InputC(li, io)})
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TInputC.CreateInputTensor: %v", err))
	}
	return out
}

func (t TInputC) Equal(other TOp) bool {
	o, ok := other.(TInputC)
	return ok && t.layout.Equal(o.layout) && t.name == o.name && t.logScale == o.logScale
}

func (t TInputC) String() string { return fmt.Sprintf("TInputC(%s,%s)", t.name, t.layout.Shape()) }

// TOutputC is the program's output boundary: it binds every chunk of its
// input to a named output slot at the input's own level, emitting no
// arithmetic of its own. Grounded on t_output_c.cc.
type TOutputC struct {
	layout layout.TensorLayout
	name   string
}

func NewTOutputC(l layout.TensorLayout, name string) TOutputC {
	return TOutputC{layout: l, name: name}
}

func (t TOutputC) OutputLayout() layout.TensorLayout { return t.layout }
func (t TOutputC) AddedLogScale() tensor.LogScale    { return 0 }
func (t TOutputC) BackendMaskDepth() int             { return 0 }
func (t TOutputC) Name() string                      { return t.name }

func (t TOutputC) AmendCtProgram(b Builder, inputs []LaidOutTensorCt) LaidOutTensorCt {
	input := singleInput(inputs)
	chunks := make([]LaidOutChunk, len(input.Chunks))
	for i, c := range input.Chunks {
		io := tensor.NewIoSpec(t.name, c.Offset.Flat())
		chunks[i] = LaidOutChunk{Layout: t.layout, Offset: c.Offset, Payload: b.OutputC(c.Payload, io)}
	}
	out, err := layout.NewLaidOutTensor(t.layout, chunks)
	if err != nil {
		panic(fmt.Sprintf("internal invariant violation: TOutputC: %v", err))
	}
	return out
}

func (t TOutputC) Equal(other TOp) bool {
	o, ok := other.(TOutputC)
	return ok && t.layout.Equal(o.layout) && t.name == o.name
}

func (t TOutputC) String() string { return fmt.Sprintf("TOutputC(%s,%s)", t.name, t.layout.Shape()) }
