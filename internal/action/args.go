package action

import "fmt"

// args arrive as a decoded JSON object (map[string]any); these helpers
// extract typed fields with BAD_ARGS on mismatch, mirroring the
// per-verb schema validation called for in the design notes.

func argStr(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", Fail(ErrBadArgs, fmt.Sprintf("missing %q", key))
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", Fail(ErrBadArgs, fmt.Sprintf("%q must be a non-empty string", key))
	}
	return s, nil
}

func argStrOpt(args map[string]any, key, def string) string {
	v, ok := args[key]
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

func argNumber(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, Fail(ErrBadArgs, fmt.Sprintf("missing %q", key))
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, Fail(ErrBadArgs, fmt.Sprintf("%q must be a number", key))
	}
}

func argInt64(args map[string]any, key string) (int64, error) {
	n, err := argNumber(args, key)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

func argInt(args map[string]any, key string) (int, error) {
	n, err := argNumber(args, key)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func argBool(args map[string]any, key string) (bool, error) {
	v, ok := args[key]
	if !ok {
		return false, Fail(ErrBadArgs, fmt.Sprintf("missing %q", key))
	}
	b, ok := v.(bool)
	if !ok {
		return false, Fail(ErrBadArgs, fmt.Sprintf("%q must be a boolean", key))
	}
	return b, nil
}
