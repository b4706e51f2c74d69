package persona

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadProfileFile reads and validates a user-authored profile
// definition. Custom profiles let a persona start from hand-tuned axes
// instead of a built-in preset.
func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("persona: read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("persona: parse profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// SaveProfileFile writes a profile definition as indented JSON.
func SaveProfileFile(path string, p *Profile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("persona: encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persona: write profile: %w", err)
	}
	return nil
}
