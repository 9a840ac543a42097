package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	dmtmodels "gitlab.com/demeterhydro/dmt.telemetry_server/src/production/DMT.Models"
)

// Source identifies which transport adapter produced a payload.
type Source string

const (
	SourceMQTT   Source = "mqtt"
	SourceSerial Source = "serial"
)

var (
	// ErrMalformedPayload means the payload is missing its deviceId or has
	// a structurally invalid field. The message is discarded.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrInvalidMeasurement means a known measurement field is present but
	// cannot be coerced to a number. The message is discarded.
	ErrInvalidMeasurement = errors.New("invalid measurement")
)

// reserved top-level fields; everything else passes through as Extra.
var reservedFields = map[string]struct{}{
	"deviceId":  {},
	"area":      {},
	"values":    {},
	"source":    {},
	"createdAt": {},
	"updatedAt": {},
	"_id":       {},
}

// Normalize shapes a raw decoded payload into a canonical Reading. It is a
// pure transform: no I/O, no store access, safe to call from any goroutine.
func Normalize(payload map[string]interface{}, src Source) (dmtmodels.Reading, error) {
	var rd dmtmodels.Reading

	deviceID, ok := payload["deviceId"].(string)
	if !ok || deviceID == "" {
		return rd, fmt.Errorf("%w: missing deviceId", ErrMalformedPayload)
	}
	rd.DeviceID = deviceID
	rd.Source = string(src)

	if raw, present := payload["area"]; present {
		area, ok := raw.(string)
		if !ok {
			return rd, fmt.Errorf("%w: area must be a string", ErrMalformedPayload)
		}
		rd.Area = area
	}

	if raw, present := payload["values"]; present {
		values, ok := raw.(map[string]interface{})
		if !ok {
			return rd, fmt.Errorf("%w: values must be an object", ErrMalformedPayload)
		}
		normalized := make(map[string]interface{}, len(values))
		for k, v := range values {
			normalized[k] = v
		}
		for _, key := range dmtmodels.KnownMeasurements {
			v, present := normalized[key]
			if !present {
				continue
			}
			num, ok := coerceNumber(v)
			if !ok {
				return rd, fmt.Errorf("%w: %s=%v is not numeric", ErrInvalidMeasurement, key, v)
			}
			normalized[key] = num
		}
		rd.Values = normalized
	}

	now := time.Now().UTC()
	rd.CreatedAt = timestampOr(payload["createdAt"], now)
	rd.UpdatedAt = timestampOr(payload["updatedAt"], now)
	if rd.UpdatedAt.Before(rd.CreatedAt) {
		rd.UpdatedAt = rd.CreatedAt
	}

	for k, v := range payload {
		if _, reserved := reservedFields[k]; reserved {
			continue
		}
		if rd.Extra == nil {
			rd.Extra = make(map[string]interface{})
		}
		rd.Extra[k] = v
	}

	return rd, nil
}

// coerceNumber converts the numeric representations a JSON decode can
// produce, plus numeric strings, into a float64.
func coerceNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// timestampOr parses a payload-supplied timestamp, falling back to def when
// absent or unparseable. Accepts RFC3339 strings and unix seconds.
func timestampOr(v interface{}, def time.Time) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
	case float64:
		if t > 0 {
			return time.Unix(int64(t), 0).UTC()
		}
	}
	return def
}
