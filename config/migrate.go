package config

import (
	"strconv"
	"strings"
)

// migrateV1 upgrades a version-1 document to the version-2 schema.
// Version 1 had no version field and differed in three places: the universe
// size lived under "universe", the ranking metric under "metric", and both
// "min_zscore" and "timeframes" were flat strings.
func migrateV1(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["version"] = 2

	if v, ok := out["universe"]; ok {
		delete(out, "universe")
		out["universe_size"] = v
	}

	if v, ok := out["metric"]; ok {
		delete(out, "metric")
		out["ranking_metric"] = v
	}

	if s, ok := out["min_zscore"].(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			out["min_zscore"] = f
		} else {
			delete(out, "min_zscore")
		}
	}

	if s, ok := out["timeframes"].(string); ok {
		parts := strings.Split(s, ",")
		list := make([]any, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				list = append(list, p)
			}
		}
		out["timeframes"] = list
	}

	return out
}
