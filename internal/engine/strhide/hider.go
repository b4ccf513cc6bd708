// Package strhide moves string literals out of method bodies into an
// obfuscated per-module table and flags literals that look like secrets.
package strhide

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"obscura/internal/core/errors"
	"obscura/internal/engine/metadata"
	"obscura/internal/engine/rename"
)

// Hider rewrites every ldstr in the planned methods into an index lookup on
// a generated table type. One table is created per module.
type Hider struct {
	detector *Detector

	mu       sync.Mutex
	findings []Finding
}

func New(cfg Config) (*Hider, error) {
	d, err := NewDetector(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "invalid string pattern")
	}
	return &Hider{detector: d}, nil
}

// HideStrings rewrites the sites and returns the number of literal loads
// replaced.
func (h *Hider) HideStrings(ctx context.Context, sites []rename.StringSite) (int, error) {
	tables := make(map[*metadata.Module]*table)
	var order []*table
	hidden := 0

	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return hidden, err
		}
		m := site.Method
		if m == nil || m.DeclaringType == nil || m.DeclaringType.Module == nil {
			return hidden, errors.New(errors.CodeInternal, "string site without a declaring module")
		}
		mod := m.DeclaringType.Module
		t, ok := tables[mod]
		if !ok {
			t = newTable(mod)
			tables[mod] = t
			order = append(order, t)
		}

		body := make([]*metadata.Instruction, 0, len(m.Body)+site.Literals)
		for _, ins := range m.Body {
			lit, ok := ins.Operand.(metadata.StringLiteral)
			if !ok {
				body = append(body, ins)
				continue
			}
			h.inspect(m.Name, string(lit))
			body = append(body,
				&metadata.Instruction{OpCode: "ldc.i4", Operand: metadata.IntLiteral(t.add(string(lit)))},
				&metadata.Instruction{OpCode: "call", Operand: t.get},
			)
			hidden++
		}
		m.Body = body
	}

	for _, t := range order {
		t.install()
		slog.Debug("string table installed", "module", t.module.Name, "type", t.typ.Name, "strings", len(t.values))
	}
	return hidden, nil
}

// Findings lists suspicious literals seen so far.
func (h *Hider) Findings() []Finding {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Finding(nil), h.findings...)
}

func (h *Hider) inspect(method, literal string) {
	f, ok := h.detector.Classify(method, literal)
	if !ok {
		return
	}
	slog.Warn("literal looks like a secret; hidden strings remain recoverable",
		"method", method, "kind", f.Kind, "severity", f.Severity, "value", MaskValue(f.Value))
	h.mu.Lock()
	h.findings = append(h.findings, f)
	h.mu.Unlock()
}

type table struct {
	module *metadata.Module
	key    uuid.UUID
	typ    *metadata.TypeDef
	get    *metadata.MethodDef
	index  map[string]int
	values []string
}

func newTable(mod *metadata.Module) *table {
	key := uuid.New()
	typ := &metadata.TypeDef{
		Name:     "<StringTable>{" + key.String() + "}",
		Access:   metadata.AccessAssembly,
		Flags:    metadata.TypeSealed | metadata.TypeAbstract,
		BaseType: &metadata.TypeRef{Scope: objectScope(mod), FullName: "System.Object"},
		Module:   mod,
	}
	values := &metadata.FieldDef{
		Name:          "values",
		FieldType:     "System.String[]",
		Access:        metadata.AccessPrivate,
		Flags:         metadata.FieldStatic,
		DeclaringType: typ,
	}
	get := &metadata.MethodDef{
		Name:          "Get",
		Access:        metadata.AccessAssembly,
		Flags:         metadata.MethodStatic,
		ReturnType:    "System.String",
		Params:        []*metadata.ParamDef{{Name: "index", Type: "System.Int32"}},
		DeclaringType: typ,
		Body: []*metadata.Instruction{
			{OpCode: "ldsfld", Operand: values},
			{OpCode: "ldarg.0"},
			{OpCode: "ldelem.ref"},
			{OpCode: "ret"},
		},
	}
	cctor := &metadata.MethodDef{
		Name:          ".cctor",
		Access:        metadata.AccessPrivate,
		Flags:         metadata.MethodStatic | metadata.MethodSpecialName | metadata.MethodRTSpecialName,
		ReturnType:    "System.Void",
		DeclaringType: typ,
		Body: []*metadata.Instruction{
			{OpCode: "ldstr", Operand: metadata.StringLiteral(resourceName(key))},
			{OpCode: "stsfld", Operand: values},
			{OpCode: "ret"},
		},
	}
	typ.Fields = []*metadata.FieldDef{values}
	typ.Methods = []*metadata.MethodDef{get, cctor}
	return &table{module: mod, key: key, typ: typ, get: get, index: make(map[string]int)}
}

const defaultCorlib = "mscorlib"

// objectScope finds where the module already takes System.Object from, so
// the generated type adds no new framework reference.
func objectScope(mod *metadata.Module) string {
	for _, r := range mod.TypeRefs {
		if r.FullName == "System.Object" && r.Scope != "" {
			return r.Scope
		}
	}
	for _, t := range mod.AllTypes() {
		if r := t.BaseType; r != nil && r.FullName == "System.Object" && r.Scope != "" {
			return r.Scope
		}
	}
	return defaultCorlib
}

func (t *table) add(s string) int {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := len(t.values)
	t.index[s] = i
	t.values = append(t.values, s)
	return i
}

func (t *table) install() {
	t.module.Types = append(t.module.Types, t.typ)
	t.module.Resources = append(t.module.Resources, &metadata.Resource{
		Name: resourceName(t.key),
		Data: Encode(t.key, t.values),
	})
}

func resourceName(key uuid.UUID) string {
	return key.String() + ".strings"
}

// Encode packs values as uvarint-prefixed strings, XORed with key and
// prefixed by it.
func Encode(key uuid.UUID, values []string) []byte {
	payload := binary.AppendUvarint(nil, uint64(len(values)))
	for _, v := range values {
		payload = binary.AppendUvarint(payload, uint64(len(v)))
		payload = append(payload, v...)
	}
	out := make([]byte, 0, len(key)+len(payload))
	out = append(out, key[:]...)
	for i, b := range payload {
		out = append(out, b^key[i%len(key)])
	}
	return out
}

// Decode reverses Encode.
func Decode(data []byte) ([]string, error) {
	var key uuid.UUID
	if len(data) < len(key) {
		return nil, errors.New(errors.CodeIO, "string table too short")
	}
	copy(key[:], data)
	payload := make([]byte, len(data)-len(key))
	for i, b := range data[len(key):] {
		payload[i] = b ^ key[i%len(key)]
	}

	count, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, errors.New(errors.CodeIO, "malformed string table header")
	}
	payload = payload[n:]
	out := make([]string, 0, min(count, uint64(len(payload))))
	for i := uint64(0); i < count; i++ {
		size, n := binary.Uvarint(payload)
		if n <= 0 || uint64(len(payload)-n) < size {
			return nil, errors.Newf(errors.CodeIO, "malformed string table entry %d", i)
		}
		out = append(out, string(payload[n:n+int(size)]))
		payload = payload[n+int(size):]
	}
	return out, nil
}
