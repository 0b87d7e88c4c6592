package remote

import (
	"encoding/json"
	"time"

	"orientd/orientation"
)

// parseReading extracts a gravity reading from a device payload. Devices in
// the field are not uniform: readings arrive as JSON objects with varying
// field names, or as a bare three-element array. Unknown shapes are
// rejected rather than guessed at.
func parseReading(payload []byte) (orientation.GravityReading, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal(payload, &obj); err == nil {
		return readingFromObject(obj)
	}

	var arr []float64
	if err := json.Unmarshal(payload, &arr); err == nil && len(arr) >= 3 {
		return orientation.GravityReading{
			Timestamp: time.Now(),
			X:         arr[0],
			Y:         arr[1],
			Z:         arr[2],
		}, true
	}

	return orientation.GravityReading{}, false
}

func readingFromObject(obj map[string]interface{}) (orientation.GravityReading, bool) {
	r := orientation.GravityReading{Timestamp: time.Now()}

	// Timestamp in epoch milliseconds under either common key.
	if ts, ok := obj["ts"].(float64); ok {
		r.Timestamp = time.Unix(0, int64(ts)*1e6)
	} else if ts, ok := obj["timestamp"].(float64); ok {
		r.Timestamp = time.Unix(0, int64(ts)*1e6)
	}

	x, okX := axisValue(obj, "x", "gx", "ax")
	y, okY := axisValue(obj, "y", "gy", "ay")
	z, okZ := axisValue(obj, "z", "gz", "az")
	if okX && okY && okZ {
		r.X, r.Y, r.Z = x, y, z
		return r, true
	}

	// Nested {"gravity": [x, y, z]} as some firmwares send.
	if arr, ok := obj["gravity"].([]interface{}); ok && len(arr) >= 3 {
		vals := make([]float64, 0, 3)
		for _, v := range arr[:3] {
			num, ok := v.(float64)
			if !ok {
				return orientation.GravityReading{}, false
			}
			vals = append(vals, num)
		}
		r.X, r.Y, r.Z = vals[0], vals[1], vals[2]
		return r, true
	}

	return orientation.GravityReading{}, false
}

func axisValue(obj map[string]interface{}, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := obj[k].(float64); ok {
			return v, true
		}
	}
	return 0, false
}
