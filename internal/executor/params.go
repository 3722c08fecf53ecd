package executor

import "time"

// Parameters arrive from decoded JSON, so numbers are float64 and every
// value needs a type assertion. These helpers tolerate both float64 and
// int for numeric fields since tests and in-process callers pass ints.

func stringParam(params map[string]any, key string) (string, bool) {
	s, ok := params[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func stringParamDefault(params map[string]any, key, fallback string) string {
	if s, ok := stringParam(params, key); ok {
		return s
	}
	return fallback
}

func intParam(params map[string]any, key string) (int, bool) {
	switch v := params[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func floatParamDefault(params map[string]any, key string, fallback float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func boolParamDefault(params map[string]any, key string, fallback bool) bool {
	if b, ok := params[key].(bool); ok {
		return b
	}
	return fallback
}

// durationParamDefault reads a timeout given in seconds.
func durationParamDefault(params map[string]any, key string, fallback time.Duration) time.Duration {
	switch v := params[key].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	}
	return fallback
}
