package types

import (
	"encoding/json"
	"errors"
	"time"
)

// EventData is the envelope delivered to event subscribers
type EventData struct {
	ID        string    `json:"id"`
	Time      time.Time `json:"time"`
	Source    string    `json:"source"`
	EventType string    `json:"event_type"`
	Data      any       `json:"data"`
}

// ExtractEventPayload extracts a map payload from event data
func ExtractEventPayload(data any) (*map[string]any, error) {
	if data == nil {
		emptyMap := make(map[string]any)
		return &emptyMap, nil
	}

	if eventData, ok := data.(EventData); ok {
		return extractFromData(eventData.Data)
	}

	if eventDataPtr, ok := data.(*EventData); ok && eventDataPtr != nil {
		return extractFromData(eventDataPtr.Data)
	}

	return extractFromData(data)
}

// extractFromData extracts payload from raw data formats
func extractFromData(data any) (*map[string]any, error) {
	if data == nil {
		emptyMap := make(map[string]any)
		return &emptyMap, nil
	}

	if mapPtr, ok := data.(*map[string]any); ok {
		if mapPtr == nil {
			emptyMap := make(map[string]any)
			return &emptyMap, nil
		}
		return mapPtr, nil
	}

	if m, ok := data.(map[string]any); ok {
		return &m, nil
	}

	// Fall back to a JSON round trip for struct payloads
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, errors.New("invalid payload format, cannot marshal: " + err.Error())
	}

	var result map[string]any
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil, errors.New("invalid payload format, cannot unmarshal: " + err.Error())
	}

	return &result, nil
}

// SafeGet safely extracts a value from a payload with type assertion.
// Returns the zero value of T if the key is absent or the value cannot be
// converted to T.
func SafeGet[T any](payload *map[string]any, key string) T {
	var zero T
	if payload == nil {
		return zero
	}

	value, exists := (*payload)[key]
	if !exists || value == nil {
		return zero
	}

	typed, ok := value.(T)
	if !ok {
		return zero
	}

	return typed
}

// SafeGetWithDefault safely extracts a value with a default fallback
func SafeGetWithDefault[T any](payload *map[string]any, key string, defaultValue T) T {
	if payload == nil {
		return defaultValue
	}

	value, exists := (*payload)[key]
	if !exists || value == nil {
		return defaultValue
	}

	typed, ok := value.(T)
	if !ok {
		return defaultValue
	}

	return typed
}
