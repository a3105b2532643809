package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidLiteral is returned when a string is not a recognised literal
var ErrInvalidLiteral = errors.New("malformed literal")

// SetDefaultEnv sets name to value only when name is absent from the process
// environment. It reports whether the variable was set.
func SetDefaultEnv(name, value string) (bool, error) {
	if _, ok := os.LookupEnv(name); ok {
		return false, nil
	}
	if err := os.Setenv(name, value); err != nil {
		return false, fmt.Errorf("failed to set %s: %w", name, err)
	}
	return true, nil
}

// LiteralFromEnv returns the literal value of the environment variable name.
// An absent variable yields def unchanged. A present variable that does not
// hold a literal yields an error naming both the value and the variable.
func LiteralFromEnv(name string, def any) (any, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	v, err := ParseLiteral(raw)
	if err != nil {
		return nil, fmt.Errorf("%s is an invalid value for %s: %w", raw, name, err)
	}
	return v, nil
}

// BoolFromEnv is LiteralFromEnv followed by a truthiness conversion of the
// parsed literal.
func BoolFromEnv(name string, def bool) (bool, error) {
	v, err := LiteralFromEnv(name, def)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

// StringFromEnv returns the variable's value or def when it is absent.
func StringFromEnv(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

// DurationFromEnv parses a Go duration from the environment, returning def
// when the variable is absent.
func DurationFromEnv(name string, def time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s is an invalid value for %s: %w", raw, name, err)
	}
	return d, nil
}

// Truthy reports the truth value of a parsed literal: zero numbers, empty
// strings, false and nil are false.
func Truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case int64:
		return val != 0
	case *big.Int:
		return val.Sign() != 0
	case float64:
		return val != 0
	case string:
		return val != ""
	default:
		return true
	}
}

// ParseLiteral evaluates a single scalar literal. It accepts True, False and
// None, integers in decimal, hex (0x), octal (0o) and binary (0b) with
// optional sign and underscore separators, floats, and single or double
// quoted strings. The result is bool, nil, int64 (or *big.Int when it does
// not fit), float64 or string.
func ParseLiteral(s string) (any, error) {
	lit := strings.TrimSpace(s)
	if lit == "" {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidLiteral)
	}

	switch lit {
	case "True":
		return true, nil
	case "False":
		return false, nil
	case "None":
		return nil, nil
	}

	if q := lit[0]; q == '"' || q == '\'' {
		return parseQuoted(lit)
	}

	if n, ok := parseInteger(lit); ok {
		return n, nil
	}

	if f, ok := parseFloat(lit); ok {
		return f, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrInvalidLiteral, lit)
}

func parseQuoted(lit string) (string, error) {
	q := lit[0]
	if len(lit) < 2 || lit[len(lit)-1] != q {
		return "", fmt.Errorf("%w: unterminated string %s", ErrInvalidLiteral, lit)
	}
	body := lit[1 : len(lit)-1]
	if q == '\'' {
		// strconv only unquotes double-quoted Go strings
		body = strings.ReplaceAll(body, `\'`, `'`)
		body = strings.ReplaceAll(body, `"`, `\"`)
	}
	out, err := strconv.Unquote(`"` + body + `"`)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidLiteral, lit)
	}
	return out, nil
}

func parseInteger(lit string) (any, bool) {
	sign := ""
	body := lit
	if body[0] == '+' || body[0] == '-' {
		if body[0] == '-' {
			sign = "-"
		}
		body = body[1:]
	}
	if body == "" || strings.HasPrefix(body, "_") || strings.HasSuffix(body, "_") || strings.Contains(body, "__") {
		return nil, false
	}

	base := 10
	digits := body
	if len(body) > 2 && body[0] == '0' {
		switch body[1] {
		case 'x', 'X':
			base, digits = 16, body[2:]
		case 'o', 'O':
			base, digits = 8, body[2:]
		case 'b', 'B':
			base, digits = 2, body[2:]
		}
	}
	digits = strings.TrimPrefix(digits, "_")
	digits = strings.ReplaceAll(digits, "_", "")
	if digits == "" {
		return nil, false
	}
	// Decimal literals other than zero may not carry leading zeros
	if base == 10 && len(digits) > 1 && digits[0] == '0' && strings.Trim(digits, "0") != "" {
		return nil, false
	}

	if n, err := strconv.ParseInt(sign+digits, base, 64); err == nil {
		return n, true
	}
	n, ok := new(big.Int).SetString(sign+digits, base)
	if !ok {
		return nil, false
	}
	return n, true
}

func parseFloat(lit string) (float64, bool) {
	lower := strings.ToLower(lit)
	// strconv accepts inf/nan/hex floats which are not literals here
	if strings.ContainsAny(lower, "inftyxp") {
		return 0, false
	}
	// Bare digit strings that were not valid integers stay invalid
	if !strings.ContainsAny(lower, ".e") {
		return 0, false
	}
	if strings.Contains(lit, "__") || strings.HasSuffix(lit, "_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(lit, "_", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
