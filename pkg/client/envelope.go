package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Envelope is the canonical response shape. Every body the API returns is
// normalized into it before callers see any data.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

type ErrorBody struct {
	Kind    Kind            `json:"kind"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// decodeEnvelope accepts the canonical envelope, a bare array, an object
// keyed by numeric strings or a bare object.
func decodeEnvelope(body []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return &Envelope{Success: true}, nil
	}

	switch trimmed[0] {
	case '[':
		return &Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
	case '{':
	default:
		return nil, fmt.Errorf("unexpected response body starting with %q", trimmed[0])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if _, ok := fields["success"]; ok {
		var env Envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode envelope: %w", err)
		}
		if env.Data != nil {
			data, err := normalizeData(env.Data)
			if err != nil {
				return nil, err
			}
			env.Data = data
		}
		return &env, nil
	}

	if items, ok := numericKeyed(fields); ok {
		data, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		return &Envelope{Success: true, Data: data}, nil
	}

	return &Envelope{Success: true, Data: json.RawMessage(trimmed)}, nil
}

// normalizeData turns a numeric-keyed data object into an array
func normalizeData(data json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return data, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	items, ok := numericKeyed(fields)
	if !ok {
		return data, nil
	}
	return json.Marshal(items)
}

// numericKeyed returns the values ordered by key when every key is a number
func numericKeyed(fields map[string]json.RawMessage) ([]json.RawMessage, bool) {
	if len(fields) == 0 {
		return nil, false
	}
	keys := make([]string, 0, len(fields))
	order := make(map[string]int, len(fields))
	for k := range fields {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, false
		}
		keys = append(keys, k)
		order[k] = n
	}
	// "01" and "1" are distinct entries; ties on value fall back to the key text
	sort.Slice(keys, func(i, j int) bool {
		if order[keys[i]] != order[keys[j]] {
			return order[keys[i]] < order[keys[j]]
		}
		return keys[i] < keys[j]
	})

	items := make([]json.RawMessage, 0, len(keys))
	for _, k := range keys {
		items = append(items, fields[k])
	}
	return items, true
}
