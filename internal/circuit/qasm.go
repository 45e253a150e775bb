package circuit

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrNotQASM is returned by LoadQASM for files that are not OpenQASM.
var ErrNotQASM = errors.New("not an OpenQASM file")

type qasmProgram struct {
	Version    string       `parser:"\"OPENQASM\" @(Float | Int) \";\""`
	Statements []*statement `parser:"@@*"`
}

type statement struct {
	Include *string   `parser:"  \"include\" @String \";\""`
	QReg    *regDecl  `parser:"| \"qreg\" @@ \";\""`
	CReg    *regDecl  `parser:"| \"creg\" @@ \";\""`
	Barrier *argList  `parser:"| \"barrier\" @@ \";\""`
	Measure *measure  `parser:"| \"measure\" @@ \";\""`
	Reset   *argument `parser:"| \"reset\" @@ \";\""`
	GateDef *gateDef  `parser:"| (\"gate\" | \"opaque\") @@"`
	Call    *gateCall `parser:"| @@ \";\""`
}

type regDecl struct {
	Name string `parser:"@Ident \"[\""`
	Size int    `parser:"@Int \"]\""`
}

type argument struct {
	Reg   string `parser:"@Ident"`
	Index *int   `parser:"(\"[\" @Int \"]\")?"`
}

type argList struct {
	Args []*argument `parser:"@@ (\",\" @@)*"`
}

type measure struct {
	Src *argument `parser:"@@ \"->\""`
	Dst *argument `parser:"@@"`
}

type gateDef struct {
	Name   string   `parser:"@Ident"`
	Params []string `parser:"(\"(\" (@Ident (\",\" @Ident)*)? \")\")?"`
	Args   []string `parser:"@Ident (\",\" @Ident)*"`
	Body   []string `parser:"( \"{\" @(~\"}\")* \"}\" | \";\" )"`
}

type gateCall struct {
	Name   string      `parser:"@Ident"`
	Params []*paramExp `parser:"(\"(\" (@@ (\",\" @@)*)? \")\")?"`
	Args   []*argument `parser:"@@ (\",\" @@)*"`
}

type paramExp struct {
	Terms []*paramTerm `parser:"@@+"`
}

type paramTerm struct {
	Group *paramExp `parser:"  \"(\" @@ \")\""`
	Atom  string    `parser:"| @(Ident | Float | Int | Op)"`
}

func (e *paramExp) String() string {
	var b strings.Builder
	for _, t := range e.Terms {
		if t.Group != nil {
			b.WriteString("(" + t.Group.String() + ")")
			continue
		}
		b.WriteString(t.Atom)
	}
	return b.String()
}

var qasmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Float", Pattern: `(\d+\.\d*|\.\d+)([eE][-+]?\d+)?`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Op", Pattern: `==|[-+*/^]`},
	{Name: "Punct", Pattern: `[;,\[\](){}]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

var qasmParser = participle.MustBuild[qasmProgram](
	participle.Lexer(qasmLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

type register struct {
	offset int
	size   int
}

// ParseQASM parses an OpenQASM 2 program into its gate list.
//
// Supported: qreg/creg declarations, gate applications with optional
// parameters and register broadcast, measure and reset (one operation per
// qubit). Gate definitions, barriers and includes are accepted and have no
// effect on the result. Qubits of all quantum registers are numbered
// consecutively in declaration order.
func ParseQASM(src string) ([]Gate, error) {
	prog, err := qasmParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse qasm: %w", err)
	}

	qregs := make(map[string]register)
	cregs := make(map[string]register)
	nq, nc := 0, 0
	var gates []Gate

	for _, st := range prog.Statements {
		switch {
		case st.QReg != nil:
			if _, dup := qregs[st.QReg.Name]; dup {
				return nil, fmt.Errorf("qreg %q declared twice", st.QReg.Name)
			}
			qregs[st.QReg.Name] = register{offset: nq, size: st.QReg.Size}
			nq += st.QReg.Size
		case st.CReg != nil:
			cregs[st.CReg.Name] = register{offset: nc, size: st.CReg.Size}
			nc += st.CReg.Size
		case st.Measure != nil:
			if err := checkClassical(cregs, st.Measure.Dst); err != nil {
				return nil, err
			}
			expanded, err := broadcast(qregs, []*argument{st.Measure.Src})
			if err != nil {
				return nil, err
			}
			for _, qs := range expanded {
				gates = append(gates, Gate{Name: "measure", Qubits: qs})
			}
		case st.Reset != nil:
			expanded, err := broadcast(qregs, []*argument{st.Reset})
			if err != nil {
				return nil, err
			}
			for _, qs := range expanded {
				gates = append(gates, Gate{Name: "reset", Qubits: qs})
			}
		case st.Call != nil:
			expanded, err := broadcast(qregs, st.Call.Args)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", st.Call.Name, err)
			}
			params := make([]string, len(st.Call.Params))
			for i, p := range st.Call.Params {
				params[i] = p.String()
			}
			for _, qs := range expanded {
				gates = append(gates, Gate{Name: st.Call.Name, Params: params, Qubits: qs})
			}
		}
	}
	return gates, nil
}

// broadcast expands register arguments into one operand list per index.
// Whole-register arguments must agree in size.
func broadcast(qregs map[string]register, args []*argument) ([][]int, error) {
	width := 1
	whole := false
	for _, a := range args {
		r, ok := qregs[a.Reg]
		if !ok {
			return nil, fmt.Errorf("unknown qreg %q", a.Reg)
		}
		if a.Index != nil {
			if *a.Index < 0 || *a.Index >= r.size {
				return nil, fmt.Errorf("index %s[%d] out of range", a.Reg, *a.Index)
			}
			continue
		}
		if whole && r.size != width {
			return nil, fmt.Errorf("register size mismatch in broadcast: %d vs %d", width, r.size)
		}
		width, whole = r.size, true
	}

	out := make([][]int, 0, width)
	for i := 0; i < width; i++ {
		qs := make([]int, len(args))
		seen := make(map[int]bool, len(args))
		for j, a := range args {
			r := qregs[a.Reg]
			q := r.offset + i
			if a.Index != nil {
				q = r.offset + *a.Index
			}
			if seen[q] {
				return nil, fmt.Errorf("qubit %d used twice in one operation", q)
			}
			seen[q] = true
			qs[j] = q
		}
		out = append(out, qs)
	}
	return out, nil
}

func checkClassical(cregs map[string]register, a *argument) error {
	r, ok := cregs[a.Reg]
	if !ok {
		return fmt.Errorf("unknown creg %q", a.Reg)
	}
	if a.Index != nil && (*a.Index < 0 || *a.Index >= r.size) {
		return fmt.Errorf("index %s[%d] out of range", a.Reg, *a.Index)
	}
	return nil
}

// LoadQASM reads an OpenQASM file and builds its dependency graph. The file
// must have a .qasm extension and declare OPENQASM on its first line.
func LoadQASM(path string) (*DAG, error) {
	if !strings.HasSuffix(path, ".qasm") {
		return nil, fmt.Errorf("%s: %w", path, ErrNotQASM)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}

	first, _, _ := strings.Cut(string(data), "\n")
	if !strings.Contains(first, "OPENQASM") {
		return nil, fmt.Errorf("%s: %w", path, ErrNotQASM)
	}

	gates, err := ParseQASM(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewDAG(gates), nil
}
