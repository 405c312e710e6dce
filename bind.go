package oracle

import "fmt"

// BindDirection classifies which way a bind value flows.
type BindDirection int

const (
	BindIn BindDirection = iota
	BindOut
	BindInOut
)

// BindInfo is the static metadata for one bind placeholder, resolved
// once per statement the first time it is parsed.
type BindInfo struct {
	Name      string // empty for positional binds
	Position  int
	Direction BindDirection
	Type      OracleDataType

	Precision   int8
	Scale       int8
	CharsetForm CharsetForm
	IsArray     bool
	ArrayCount  int
}

// Variable is one bind value's wire representation: the logical value
// paired with the buffer sizing metadata the EXECUTE message needs.
// MaxSize is only meaningful for variable-length types; it governs the
// buffer the server reserves for OUT binds across REEXECUTE calls
// within the same statement.
type Variable struct {
	Info    BindInfo
	Value   []byte // nil means SQL NULL
	MaxSize uint32
}

// newVariable sizes MaxSize from the type's default unless value already
// exceeds it, matching the "grows, never shrinks, across re-executions"
// invariant.
func newVariable(info BindInfo, value []byte) Variable {
	d := info.Type.Descriptor()
	maxSize := d.DefaultSize * d.BufferFactor
	if uint32(len(value)) > maxSize {
		maxSize = uint32(len(value))
	}
	return Variable{Info: info, Value: value, MaxSize: maxSize}
}

// growTo widens v.MaxSize to at least size, never shrinking it, per the
// same re-execution invariant.
func (v *Variable) growTo(size uint32) {
	if size > v.MaxSize {
		v.MaxSize = size
	}
}

// maxInlineBindSize is the largest bind value PL/SQL will accept inline;
// anything larger is upgraded to a temporary LOB before EXECUTE.
const maxInlineBindSize = 32767

// tempLOBLocatorSize is the byte length of a synthetic temporary LOB
// locator: actual LOB content I/O is out of scope, so this package only
// needs a stable handle to track through the Cleanup Context.
const tempLOBLocatorSize = 40

// bindShape captures the attributes whose change between two executions
// of the same Statement forces a full EXECUTE (re-PARSE and re-BIND)
// instead of a lighter re-execute against the already-parsed cursor.
type bindShape struct {
	Type        OracleDataType
	Size        uint32
	BufferSize  uint32
	Precision   int8
	Scale       int8
	IsArray     bool
	ArrayCount  int
	CharsetForm CharsetForm
}

func shapeOf(info BindInfo, v Variable) bindShape {
	return bindShape{
		Type:        info.Type,
		Size:        uint32(len(v.Value)),
		BufferSize:  v.MaxSize,
		Precision:   info.Precision,
		Scale:       info.Scale,
		IsArray:     info.IsArray,
		ArrayCount:  info.ArrayCount,
		CharsetForm: info.CharsetForm,
	}
}

// variableFor finds the Variable bound to info, matching by name when
// the placeholder was named and by position otherwise.
func (s *Statement) variableFor(info BindInfo) (Variable, bool) {
	for _, v := range s.Values {
		if info.Name != "" {
			if v.Info.Name == info.Name {
				return v, true
			}
			continue
		}
		if v.Info.Name == "" && v.Info.Position == info.Position {
			return v, true
		}
	}
	return Variable{}, false
}

func bindLabel(info BindInfo) string {
	if info.Name != "" {
		return ":" + info.Name
	}
	return fmt.Sprintf("position %d", info.Position)
}

// upgradeToTempLOB replaces an over-sized PL/SQL bind's inline value with
// a temporary LOB: the bind's declared type becomes one of the LOB
// types, and the locator is handed to cleanup for a deferred free.
func (s *Statement) upgradeToTempLOB(idx int, info BindInfo, v Variable, cleanup *CleanupContext) (Variable, error) {
	lobType := TypeClob
	switch {
	case info.Type == TypeRaw || info.Type == TypeLongRaw || info.Type == TypeBlob:
		lobType = TypeBlob
	case info.CharsetForm == CharsetFormNChar:
		lobType = TypeNClob
	}
	locator, err := randomNonce(tempLOBLocatorSize)
	if err != nil {
		return v, newError(KindConnection, "temporary lob locator: %v", err)
	}
	cleanup.AddTempLOB(locator)
	s.Binds[idx].Type = lobType
	v.Info.Type = lobType
	return v, nil
}

// preExecute validates that every parsed bind has a matching Variable
// (KindMissingBindValue otherwise), upgrades over-sized PL/SQL binds to
// temporary LOBs, and records whether any bind's shape changed since the
// last execution so the caller must re-PARSE rather than just re-BIND.
func (s *Statement) preExecute(cleanup *CleanupContext) error {
	requiresFull := s.priorBindShapes == nil
	shapes := make([]bindShape, len(s.Binds))
	for i, info := range s.Binds {
		v, ok := s.variableFor(info)
		if !ok {
			return newError(KindMissingBindValue, "no bound value for %s", bindLabel(info))
		}
		if s.Kind == StatementPLSQL && len(v.Value) > maxInlineBindSize {
			upgraded, err := s.upgradeToTempLOB(i, info, v, cleanup)
			if err != nil {
				return err
			}
			v = upgraded
			info = s.Binds[i]
		}
		shapes[i] = shapeOf(info, v)
		if !requiresFull && (i >= len(s.priorBindShapes) || shapes[i] != s.priorBindShapes[i]) {
			requiresFull = true
		}
	}
	s.priorBindShapes = shapes
	s.requiresFullExecute = requiresFull
	return nil
}
