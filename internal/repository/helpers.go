package repository

import (
	"encoding/json"
	"fmt"
)

// normalizeID turns OxiDB's numeric auto-increment _id into a string.
func normalizeID(doc map[string]any) {
	if id, ok := doc["_id"]; ok {
		switch v := id.(type) {
		case float64:
			doc["_id"] = fmt.Sprintf("%.0f", v)
		case int:
			doc["_id"] = fmt.Sprintf("%d", v)
		}
	}
}

// extractID reads the new document id from an insert reply.
func extractID(result map[string]any) string {
	if id, ok := result["id"]; ok {
		switch v := id.(type) {
		case string:
			return v
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}

func toDoc(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}

func fromDoc(doc map[string]any, out any) error {
	normalizeID(doc)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal doc: %w", err)
	}
	return nil
}
