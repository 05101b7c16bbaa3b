package rpal

import (
	"fmt"
	"strconv"
)

// builtinArities lists the primitives bound in the primitive environment
// and how many arguments each consumes. Conc is curried: its first
// application yields a partially-applied builtin carrying the first
// string.
var builtinArities = map[string]int{
	"Print":        1,
	"Isinteger":    1,
	"Istruthvalue": 1,
	"Isstring":     1,
	"Istuple":      1,
	"Isfunction":   1,
	"Isdummy":      1,
	"Stem":         1,
	"Stern":        1,
	"Conc":         2,
	"Order":        1,
	"Null":         1,
	"ItoS":         1,
}

// bindBuiltins populates the primitive environment (index 0).
func bindBuiltins(e0 *Env) {
	for name, arity := range builtinArities {
		e0.Bind(name, Value{Kind: VBuiltin, Name: name, Arity: arity})
	}
}

// applyBuiltin applies a builtin to one more argument per rule 3. An
// unsaturated builtin returns a copy with the argument accumulated; a
// saturated one computes.
func (m *Machine) applyBuiltin(b Value, arg Value) (Value, error) {
	args := make([]Value, 0, len(b.Args)+1)
	args = append(args, b.Args...)
	args = append(args, arg)
	if len(args) < b.Arity {
		return Value{Kind: VBuiltin, Name: b.Name, Arity: b.Arity, Args: args}, nil
	}

	switch b.Name {
	case "Print":
		if _, err := fmt.Fprintln(m.Out, args[0].Format()); err != nil {
			return Value{}, wrapf(err, "Print")
		}
		return Value{Kind: VDummy}, nil

	case "Isinteger":
		return boolValue(args[0].Kind == VInt), nil

	case "Istruthvalue":
		return boolValue(args[0].Kind == VBool), nil

	case "Isstring":
		return boolValue(args[0].Kind == VStr), nil

	case "Istuple":
		return boolValue(args[0].Kind == VTuple || args[0].Kind == VNil), nil

	case "Isfunction":
		switch args[0].Kind {
		case VClosure, VEta, VBuiltin:
			return boolValue(true), nil
		}
		return boolValue(false), nil

	case "Isdummy":
		return boolValue(args[0].Kind == VDummy), nil

	case "Stem":
		if args[0].Kind != VStr {
			return Value{}, runtimeErrorf(BuiltinError, "rule 3",
				"Stem expects a string, got %s", args[0].Kind)
		}
		if args[0].Str == "" {
			return strValue(""), nil
		}
		return strValue(args[0].Str[:1]), nil

	case "Stern":
		if args[0].Kind != VStr {
			return Value{}, runtimeErrorf(BuiltinError, "rule 3",
				"Stern expects a string, got %s", args[0].Kind)
		}
		if args[0].Str == "" {
			return strValue(""), nil
		}
		return strValue(args[0].Str[1:]), nil

	case "Conc":
		if args[0].Kind != VStr || args[1].Kind != VStr {
			return Value{}, runtimeErrorf(BuiltinError, "rule 3",
				"Conc expects two strings, got %s and %s", args[0].Kind, args[1].Kind)
		}
		return strValue(args[0].Str + args[1].Str), nil

	case "Order":
		switch args[0].Kind {
		case VTuple:
			return intValue(int64(len(args[0].Tuple))), nil
		case VNil:
			return intValue(0), nil
		}
		return Value{}, runtimeErrorf(BuiltinError, "rule 3",
			"Order expects a tuple, got %s", args[0].Kind)

	case "Null":
		switch args[0].Kind {
		case VTuple:
			return boolValue(len(args[0].Tuple) == 0), nil
		case VNil:
			return boolValue(true), nil
		}
		return Value{}, runtimeErrorf(BuiltinError, "rule 3",
			"Null expects a tuple, got %s", args[0].Kind)

	case "ItoS":
		if args[0].Kind != VInt {
			return Value{}, runtimeErrorf(BuiltinError, "rule 3",
				"ItoS expects an integer, got %s", args[0].Kind)
		}
		return strValue(strconv.FormatInt(args[0].Int, 10)), nil
	}
	return Value{}, runtimeErrorf(BuiltinError, "rule 3",
		"unknown builtin %q", b.Name)
}
