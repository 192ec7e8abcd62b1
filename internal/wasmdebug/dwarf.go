// Package wasmdebug turns a module's embedded DWARF debug sections into
// source-level answers for the debugger: the source line a program
// counter maps to, the chain of inlined subroutines enclosing it, and the
// declared locals of a function. Grounded in Go's own toolchain use of
// debug/dwarf and debug/elf, adapted here to WebAssembly's custom-section
// carriage of DWARF rather than ELF's section headers.
package wasmdebug

import (
	"debug/dwarf"
	"fmt"
	"sort"

	"github.com/nokotan/wasminspect/internal/wasm"
)

// SourceLocation is one frame of a (possibly inlined) source position.
type SourceLocation struct {
	File    string
	Line    int
	Col     int
	Inlined bool
}

func (l SourceLocation) String() string {
	if l.Inlined {
		return fmt.Sprintf("%s:%d:%d (inlined)", l.File, l.Line, l.Col)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Col)
}

// Subroutine names one entry in the inlined-call chain enclosing a
// program counter, outermost first.
type Subroutine struct {
	Name   string
	Inline bool
}

// Local is a function-local variable's static description: its name and
// the DWARF type name it was declared with. The debugger resolves its
// current value from the interpreter's live stack frame separately;
// wasmdebug only supplies the static shape.
type Local struct {
	Name string
	Type string
}

// Info is the queryable debug-information surface backing the debugger's
// "where am I" and "what are my locals" operations. A module with no
// DWARF custom sections still produces a valid, empty Info.
type Info struct {
	data    *dwarf.Data
	present bool
}

// sectionNames maps the wasm custom-section names, leading dot included,
// to the keys debug/dwarf.New expects.
var sectionNames = map[string]string{
	".debug_abbrev":   "abbrev",
	".debug_info":     "info",
	".debug_str":      "str",
	".debug_line":     "line",
	".debug_line_str": "line_str",
	".debug_ranges":   "ranges",
	".debug_rnglists": "rnglists",
	".debug_loc":      "loc",
	".debug_loclists": "loclists",
	".debug_addr":     "addr",
	".debug_str_offsets": "str_offsets",
}

// Load builds an Info from a module's debug custom sections. It never
// fails outright on malformed or absent DWARF data: a broken section is
// treated the same as a missing one, since a debugger should still be
// able to step through a module with corrupt symbols.
func Load(mod *wasm.Module) *Info {
	if mod == nil || len(mod.DebugSections) == 0 {
		return &Info{}
	}
	args := map[string][]byte{}
	for name, key := range sectionNames {
		if b, ok := mod.DebugSections[name]; ok {
			args[key] = b
		}
	}
	if len(args) == 0 {
		return &Info{}
	}
	d, err := dwarf.New(
		args["abbrev"], nil, nil, args["info"], args["line"], nil, args["ranges"], args["str"],
	)
	if err != nil {
		return &Info{}
	}
	return &Info{data: d, present: true}
}

// Present reports whether any usable DWARF data was found.
func (in *Info) Present() bool { return in.present }

// lineEntry is one row of a compile unit's decoded line table, kept
// sorted by address so PCToLine can binary-search it.
type lineEntry struct {
	addr uint64
	loc  SourceLocation
	end  bool // end_sequence row: the first address past a covered range
}

// PCToLine returns the source location(s) for a code-section-relative
// program counter, innermost (possibly inlined) frame first. An unknown
// offset — one outside every compile unit's covered range — returns nil.
func (in *Info) PCToLine(pc uint64) []SourceLocation {
	if !in.present {
		return nil
	}
	entries := in.decodeLineTable()
	if len(entries) == 0 {
		return nil
	}
	i := sort.Search(len(entries), func(i int) bool { return entries[i].addr > pc })
	if i == 0 {
		return nil
	}
	match := entries[i-1]
	if match.end {
		return nil
	}
	chain := in.inlineChain(pc)
	if len(chain) == 0 {
		return []SourceLocation{match.loc}
	}
	out := make([]SourceLocation, 0, len(chain)+1)
	out = append(out, match.loc)
	for j := len(chain) - 1; j >= 0; j-- {
		out = append(out, chain[j])
	}
	return out
}

// decodeLineTable walks every compile unit's line program once, caching
// nothing across calls: debugger queries are infrequent (a human stepping
// through code, not a hot loop), so simplicity wins over memoizing.
func (in *Info) decodeLineTable() []lineEntry {
	var out []lineEntry
	r := in.data.Reader()
	for {
		e, err := r.Next()
		if err != nil || e == nil {
			break
		}
		if e.Tag != dwarf.TagCompileUnit {
			continue
		}
		lr, err := in.data.LineReader(e)
		if err != nil || lr == nil {
			continue
		}
		var entry dwarf.LineEntry
		for {
			if err := lr.Next(&entry); err != nil {
				break
			}
			out = append(out, lineEntry{
				addr: entry.Address,
				loc:  SourceLocation{File: fileName(entry.File), Line: entry.Line, Col: entry.Column},
				end:  entry.EndSequence,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].addr < out[j].addr || (out[i].addr == out[j].addr && out[i].end && !out[j].end)
	})
	return out
}

func fileName(f *dwarf.LineFile) string {
	if f == nil {
		return "<unknown>"
	}
	return f.Name
}

// inlineChain returns the enclosing inlined-subroutine source locations
// for pc, outermost first, excluding the innermost concrete line (which
// PCToLine appends separately from the line table).
func (in *Info) inlineChain(pc uint64) []SourceLocation {
	var chain []SourceLocation
	r := in.data.Reader()
	for {
		e, err := r.Next()
		if err != nil || e == nil {
			break
		}
		if e.Tag != dwarf.TagInlinedSubroutine {
			continue
		}
		lowpc, ok1 := e.Val(dwarf.AttrLowpc).(uint64)
		highpc, ok2 := e.Val(dwarf.AttrHighpc).(uint64)
		if !ok1 || !ok2 || pc < lowpc || pc >= lowpc+highpc {
			continue
		}
		callFile, _ := e.Val(dwarf.AttrCallFile).(int64)
		callLine, _ := e.Val(dwarf.AttrCallLine).(int64)
		callCol, _ := e.Val(dwarf.AttrCallColumn).(int64)
		chain = append(chain, SourceLocation{
			File: fmt.Sprintf("file#%d", callFile), Line: int(callLine), Col: int(callCol), Inlined: true,
		})
	}
	return chain
}

// Subroutines returns the function-name chain enclosing pc, innermost
// last, used by the debugger's "subroutine_chain" frame inspector.
func (in *Info) Subroutines(pc uint64) []Subroutine {
	if !in.present {
		return nil
	}
	var out []Subroutine
	r := in.data.Reader()
	for {
		e, err := r.Next()
		if err != nil || e == nil {
			break
		}
		if e.Tag != dwarf.TagSubprogram && e.Tag != dwarf.TagInlinedSubroutine {
			continue
		}
		lowpc, ok1 := e.Val(dwarf.AttrLowpc).(uint64)
		highpc, ok2 := e.Val(dwarf.AttrHighpc).(uint64)
		if !ok1 || !ok2 || pc < lowpc || pc >= lowpc+highpc {
			continue
		}
		name, _ := e.Val(dwarf.AttrName).(string)
		out = append(out, Subroutine{Name: name, Inline: e.Tag == dwarf.TagInlinedSubroutine})
	}
	return out
}

// Locals returns the declared locals of the function enclosing pc.
func (in *Info) Locals(pc uint64) []Local {
	if !in.present {
		return nil
	}
	var out []Local
	r := in.data.Reader()
	for {
		e, err := r.Next()
		if err != nil || e == nil {
			break
		}
		if e.Tag != dwarf.TagSubprogram {
			continue
		}
		lowpc, ok1 := e.Val(dwarf.AttrLowpc).(uint64)
		highpc, ok2 := e.Val(dwarf.AttrHighpc).(uint64)
		if !ok1 || !ok2 || pc < lowpc || pc >= lowpc+highpc {
			continue
		}
		out = append(out, in.subtreeLocals(r)...)
	}
	return out
}

func (in *Info) subtreeLocals(r *dwarf.Reader) []Local {
	var out []Local
	for {
		e, err := r.Next()
		if err != nil || e == nil || e.Tag == 0 {
			break
		}
		if e.Tag != dwarf.TagFormalParameter && e.Tag != dwarf.TagVariable {
			continue
		}
		name, _ := e.Val(dwarf.AttrName).(string)
		typeName := "<unknown>"
		if off, ok := e.Val(dwarf.AttrType).(dwarf.Offset); ok {
			if t, err := in.data.Type(off); err == nil && t != nil {
				typeName = t.String()
			}
		}
		out = append(out, Local{Name: name, Type: typeName})
	}
	return out
}
