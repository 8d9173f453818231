package repoql

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Function evaluates a call literal such as date("2020-01-01"). Arguments
// arrive bound, evaluated and unconverted.
type Function func(args []any) (any, error)

func builtinFunctions() map[string]Function {
	return map[string]Function{
		"date":     fnDate,
		"datetime": fnDateTime,
		"convert":  fnConvert,
		"lower":    fnLower,
		"upper":    fnUpper,
	}
}

func fnDate(args []any) (any, error) {
	s, err := stringArg("date", args)
	if err != nil {
		return nil, err
	}
	return time.Parse(time.DateOnly, s)
}

func fnDateTime(args []any) (any, error) {
	s, err := stringArg("datetime", args)
	if err != nil {
		return nil, err
	}
	return time.Parse(time.RFC3339, s)
}

func fnLower(args []any) (any, error) {
	s, err := stringArg("lower", args)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func fnUpper(args []any) (any, error) {
	s, err := stringArg("upper", args)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

// fnConvert coerces its first argument to the type named by the second:
// date, datetime, int, float, string or bool.
func fnConvert(args []any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("convert takes 2 arguments, got %d", len(args))
	}
	target, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("convert: target type must be a name, got %T", args[1])
	}
	v := args[0]
	if v == nil {
		return nil, nil
	}

	switch target {
	case "date", "datetime":
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			if target == "date" {
				return time.Parse(time.DateOnly, t)
			}
			return time.Parse(time.RFC3339, t)
		}
	case "string":
		return fmt.Sprint(v), nil
	case "int":
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case float64:
			return int64(n), nil
		case json.Number:
			return n.Int64()
		case string:
			return strconv.ParseInt(n, 10, 64)
		}
	case "float":
		switch n := v.(type) {
		case float64:
			return n, nil
		case int64:
			return float64(n), nil
		case int:
			return float64(n), nil
		case json.Number:
			return n.Float64()
		case string:
			return strconv.ParseFloat(n, 64)
		}
	case "bool":
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
	default:
		return nil, fmt.Errorf("convert: unknown target type %q", target)
	}
	return nil, fmt.Errorf("convert: cannot convert %T to %s", v, target)
}

func stringArg(name string, args []any) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s takes 1 argument, got %d", name, len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: argument must be a string, got %T", name, args[0])
	}
	return s, nil
}
