package integration

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// NormalizeNumber turns a value that may be a JSON number or a string with
// thousands separators ("1,234.5") into a float64.
func NormalizeNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case gjson.Result:
		switch n.Type {
		case gjson.Number:
			return n.Num, nil
		case gjson.String:
			return parseGrouped(n.Str)
		default:
			return 0, fmt.Errorf("unsupported JSON type %s for number", n.Type)
		}
	case string:
		return parseGrouped(n)
	default:
		return 0, fmt.Errorf("unsupported type %T for number", v)
	}
}

func parseGrouped(s string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty number")
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number '%s': %w", s, err)
	}
	return f, nil
}
