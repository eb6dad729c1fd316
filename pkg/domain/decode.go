package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode copies state quantities into a typed struct. Fields are matched by
// the `state` tag (falling back to the field name) and numeric kinds are
// converted loosely, so a float64 read back from storage fills an int field.
func Decode(state State, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "state",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create state decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(state)); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	return nil
}

// Encode flattens a struct into a State using the same `state` tags.
func Encode(in any) (State, error) {
	out := map[string]any{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &out,
		TagName: "state",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create state encoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return State(out), nil
}
