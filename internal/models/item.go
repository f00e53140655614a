package models

import "encoding/json"

// ToItem converts a model into the generic item shape the document store
// accepts. Conversion goes through the JSON tags so the stored attribute
// names match the wire names.
func ToItem(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var item map[string]any
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// FromItem decodes a generic store item into a model.
func FromItem(item map[string]any, v any) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
