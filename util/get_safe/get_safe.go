package getsafe

import "time"

func String(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func Metadata(payload map[string]any, key string) map[string]any {
	if v, ok := payload[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

func Time(payload map[string]any, key string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, String(payload, key))
	if err != nil {
		return time.Time{}
	}
	return t
}
