package tools

import (
	"fmt"
	"math"
	"reflect"
)

// ValidateArgs checks args against the descriptor: required parameters are
// present, runtime types match the declared semantic types, and enum and
// bounds constraints hold. The first failure is returned as a descriptive
// error; nil means the call may proceed.
func ValidateArgs(desc Descriptor, args map[string]any) error {
	for _, p := range desc.Params {
		value, present := args[p.Name]
		if !present {
			if p.Required {
				return fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}
		if err := checkType(p, value); err != nil {
			return err
		}
		if err := checkEnum(p, value); err != nil {
			return err
		}
		if err := checkBounds(p, value); err != nil {
			return err
		}
	}
	return nil
}

func checkType(p Param, value any) error {
	switch p.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return typeError(p, "string", value)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeError(p, "boolean", value)
		}
	case TypeInteger:
		// JSON numbers arrive as float64; accept them only when whole.
		// Booleans are not integers.
		f, ok := asNumber(value)
		if !ok || f != math.Trunc(f) {
			return typeError(p, "integer", value)
		}
	case TypeNumber:
		if _, ok := asNumber(value); !ok {
			return typeError(p, "number", value)
		}
	case TypeArray:
		kind := reflect.ValueOf(value).Kind()
		if kind != reflect.Slice && kind != reflect.Array {
			return typeError(p, "array", value)
		}
	case TypeObject:
		if reflect.ValueOf(value).Kind() != reflect.Map {
			return typeError(p, "object", value)
		}
	default:
		return fmt.Errorf("parameter %q: unknown type %q", p.Name, p.Type)
	}
	return nil
}

func checkEnum(p Param, value any) error {
	if len(p.Enum) == 0 {
		return nil
	}
	for _, allowed := range p.Enum {
		if looseEqual(allowed, value) {
			return nil
		}
	}
	return fmt.Errorf("parameter %q: value %v not in allowed set %v", p.Name, value, p.Enum)
}

func checkBounds(p Param, value any) error {
	if f, ok := asNumber(value); ok {
		if p.Minimum != nil && f < *p.Minimum {
			return fmt.Errorf("parameter %q: %v is below minimum %v", p.Name, value, *p.Minimum)
		}
		if p.Maximum != nil && f > *p.Maximum {
			return fmt.Errorf("parameter %q: %v exceeds maximum %v", p.Name, value, *p.Maximum)
		}
	}
	if s, ok := value.(string); ok {
		if p.MinLength != nil && len(s) < *p.MinLength {
			return fmt.Errorf("parameter %q: length %d is below minimum length %d", p.Name, len(s), *p.MinLength)
		}
		if p.MaxLength != nil && len(s) > *p.MaxLength {
			return fmt.Errorf("parameter %q: length %d exceeds maximum length %d", p.Name, len(s), *p.MaxLength)
		}
	}
	return nil
}

func typeError(p Param, want string, got any) error {
	return fmt.Errorf("parameter %q: expected %s, got %T", p.Name, want, got)
}

// asNumber normalizes the numeric types JSON decoding and direct Go callers
// produce. Booleans deliberately do not count.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func looseEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	fa, aok := asNumber(a)
	fb, bok := asNumber(b)
	return aok && bok && fa == fb
}
