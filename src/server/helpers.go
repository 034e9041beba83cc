package server

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Inbound commands arrive as generic JSON objects. These getters tolerate
// the loose typing browsers send (numbers as strings and the reverse).

// -----------------------------------------------------------------------------

func safeString(data map[string]interface{}, key, def string) string {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return def
}

// -----------------------------------------------------------------------------

// safeInt64 returns ok=false when the key is absent, null or not integral.
func safeInt64(data map[string]interface{}, key string) (int64, bool) {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			if v == float64(int64(v)) {
				return int64(v), true
			}
		case int64:
			return v, true
		case int:
			return int64(v), true
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// -----------------------------------------------------------------------------

func safeFloat64(data map[string]interface{}, key string, def float64) float64 {
	if d, ok, _ := safeDecimal(data, key); ok {
		return d.InexactFloat64()
	}
	return def
}

// -----------------------------------------------------------------------------

// safeDecimal distinguishes absent (ok=false) from present but unparseable
// (valid=false).
func safeDecimal(data map[string]interface{}, key string) (d decimal.Decimal, ok bool, valid bool) {
	val, present := data[key]
	if !present || val == nil {
		return decimal.Zero, false, true
	}
	switch v := val.(type) {
	case float64:
		return decimal.NewFromFloat(v), true, true
	case int64:
		return decimal.NewFromInt(v), true, true
	case int:
		return decimal.NewFromInt(int64(v)), true, true
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, false, true
		}
		parsed, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, true, false
		}
		return parsed, true, true
	}
	return decimal.Zero, true, false
}

// -----------------------------------------------------------------------------

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
