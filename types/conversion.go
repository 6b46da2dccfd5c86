package types

import (
	"fmt"
	"sort"
	"strings"
)

type TimeSteppingScheme uint8

const (
	IMPLICIT_EULER TimeSteppingScheme = iota
	EXPLICIT_EULER
	CRANK_NICOLSON
	BDF2
	EXPLICIT_MIDPOINT
	LSTABLE_DIRK2
)

var TimeSteppingSchemeNameMap = map[string]TimeSteppingScheme{
	"IMPLICIT-EULER":    IMPLICIT_EULER,
	"IMPLICIT_EULER":    IMPLICIT_EULER,
	"EXPLICIT-EULER":    EXPLICIT_EULER,
	"EXPLICIT_EULER":    EXPLICIT_EULER,
	"CRANK-NICOLSON":    CRANK_NICOLSON,
	"CRANK_NICOLSON":    CRANK_NICOLSON,
	"BDF2":              BDF2,
	"EXPLICIT-MIDPOINT": EXPLICIT_MIDPOINT,
	"EXPLICIT_MIDPOINT": EXPLICIT_MIDPOINT,
	"DIRK":              LSTABLE_DIRK2,
	"LSTABLE_DIRK2":     LSTABLE_DIRK2,
}

func (ts TimeSteppingScheme) String() string {
	switch ts {
	case IMPLICIT_EULER:
		return "IMPLICIT_EULER"
	case EXPLICIT_EULER:
		return "EXPLICIT_EULER"
	case CRANK_NICOLSON:
		return "CRANK_NICOLSON"
	case BDF2:
		return "BDF2"
	case EXPLICIT_MIDPOINT:
		return "EXPLICIT_MIDPOINT"
	case LSTABLE_DIRK2:
		return "LSTABLE_DIRK2"
	}
	return fmt.Sprintf("TimeSteppingScheme(%d)", uint8(ts))
}

// ExecFlagType selects when an object is executed during a run
type ExecFlagType uint8

const (
	EXEC_NONE ExecFlagType = iota
	EXEC_INITIAL
	EXEC_LINEAR
	EXEC_NONLINEAR
	EXEC_TIMESTEP_BEGIN
	EXEC_TIMESTEP_END
	EXEC_FINAL
	EXEC_CUSTOM
)

var ExecFlagNameMap = map[string]ExecFlagType{
	"NONE":           EXEC_NONE,
	"INITIAL":        EXEC_INITIAL,
	"LINEAR":         EXEC_LINEAR,
	"NONLINEAR":      EXEC_NONLINEAR,
	"TIMESTEP_BEGIN": EXEC_TIMESTEP_BEGIN,
	"TIMESTEP_END":   EXEC_TIMESTEP_END,
	"FINAL":          EXEC_FINAL,
	"CUSTOM":         EXEC_CUSTOM,
}

func (ef ExecFlagType) String() string {
	for name, val := range ExecFlagNameMap {
		if val == ef {
			return name
		}
	}
	return fmt.Sprintf("ExecFlagType(%d)", uint8(ef))
}

type Enum interface {
	TimeSteppingScheme | ExecFlagType
}

// StringToEnum converts a case insensitive name to its enum value
func StringToEnum[T Enum](s string) (e T, err error) {
	var (
		key = strings.ToUpper(strings.TrimSpace(s))
		ok  bool
	)
	switch p := any(&e).(type) {
	case *TimeSteppingScheme:
		if *p, ok = TimeSteppingSchemeNameMap[key]; !ok {
			err = &LookupError{Kind: "time stepping scheme", Name: s,
				Context: "valid: " + strings.Join(enumNames(TimeSteppingSchemeNameMap), ", ")}
		}
	case *ExecFlagType:
		if *p, ok = ExecFlagNameMap[key]; !ok {
			err = &LookupError{Kind: "execute_on flag", Name: s,
				Context: "valid: " + strings.Join(enumNames(ExecFlagNameMap), ", ")}
		}
	}
	return
}

func enumNames[T Enum](m map[string]T) (names []string) {
	names = make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return
}

// Stringify renders any value with its default format
func Stringify(v any) string {
	return fmt.Sprint(v)
}
