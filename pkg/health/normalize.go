package health

import "encoding/json"

const (
	healthySentinel = "healthy"
	runningSentinel = "running"
)

// A shapeMatcher inspects one accepted wire shape. The second return
// value reports whether the shape applied at all.
type shapeMatcher func(payload map[string]any) (healthy bool, ok bool)

// shapeMatchers in match order. The remote platform has produced three
// shapes for "healthy" over time; the first shape that applies wins.
var shapeMatchers = []shapeMatcher{
	matchEnvelopeStatus,
	matchFlatHealthy,
	matchRunningStatus,
}

// Normalize collapses a raw health snapshot into a single boolean. Any
// shape outside the accepted set is not healthy.
func Normalize(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}

	payload := make(map[string]any)
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}

	for _, match := range shapeMatchers {
		if healthy, ok := match(payload); ok {
			return healthy
		}
	}
	return false
}

// Envelope shape: {"data": {"status": "healthy"}}
func matchEnvelopeStatus(payload map[string]any) (bool, bool) {
	data, ok := payload["data"].(map[string]any)
	if !ok {
		return false, false
	}
	status, ok := data["status"].(string)
	if !ok {
		return false, false
	}
	return status == healthySentinel, true
}

// Flat boolean shape: {"healthy": true}
func matchFlatHealthy(payload map[string]any) (bool, bool) {
	healthy, ok := payload["healthy"].(bool)
	if !ok {
		return false, false
	}
	return healthy, true
}

// Flat status shape: {"status": "running"}
func matchRunningStatus(payload map[string]any) (bool, bool) {
	status, ok := payload["status"].(string)
	if !ok {
		return false, false
	}
	return status == runningSentinel, true
}
