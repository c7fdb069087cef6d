package shoot

import (
	"fmt"
	"strings"
)

// EnvironmentConfig selects the scene for a shoot. A custom scene or a
// background reference image overrides the fixed scene enum; the background
// reference is the strongest override.
type EnvironmentConfig struct {
	Type        string   `json:"type"`
	Scene       string   `json:"scene"`
	CustomScene string   `json:"custom_scene,omitempty"`
	Chips       []string `json:"chips,omitempty"`
	CustomText  string   `json:"custom_text,omitempty"`
}

// ModelConfig describes the optional human model/persona.
type ModelConfig struct {
	Enabled    bool   `json:"enabled"`
	Gender     string `json:"gender,omitempty"`
	AgeRange   string `json:"age_range,omitempty"`
	Appearance string `json:"appearance,omitempty"`
}

// Config is the per-request shoot configuration. Not persisted.
type Config struct {
	Environment     EnvironmentConfig `json:"environment"`
	Style           string            `json:"style"`
	Lighting        string            `json:"lighting"`
	Model           ModelConfig       `json:"model"`
	BackgroundRefID string            `json:"background_ref_id,omitempty"`
}

// Normalize fills the defaults the original request shapes allowed to be
// omitted.
func (c *Config) Normalize() {
	if c.Style == "" {
		c.Style = "ecommerce"
	}
	if c.Lighting == "" {
		c.Lighting = "studio_soft"
	}
	if c.Model.Enabled {
		if c.Model.Gender == "" {
			c.Model.Gender = "female"
		}
		if c.Model.AgeRange == "" {
			c.Model.AgeRange = "25-35"
		}
	}
}

// HasCustomScene reports whether a free-text scene override is present.
func (c Config) HasCustomScene() bool {
	return strings.TrimSpace(c.Environment.CustomScene) != ""
}

// Validate checks the configuration before any external call is made.
// The scene-for-type check is skipped exactly when a background reference
// image or a free-text scene is supplied, since either replaces the fixed
// scene as the source of truth.
func Validate(c Config, hasBackgroundRef bool) error {
	if c.Style != "" && !contains(Styles, c.Style) {
		return fmt.Errorf("unknown style %q", c.Style)
	}
	if c.Lighting != "" && !contains(Lightings, c.Lighting) {
		return fmt.Errorf("unknown lighting %q", c.Lighting)
	}
	if c.Model.Enabled {
		if c.Model.Gender != "" && !contains(Genders, c.Model.Gender) {
			return fmt.Errorf("unknown model gender %q", c.Model.Gender)
		}
		if c.Model.AgeRange != "" && !contains(AgeRanges, c.Model.AgeRange) {
			return fmt.Errorf("unknown model age range %q", c.Model.AgeRange)
		}
	}

	if hasBackgroundRef || c.HasCustomScene() {
		return nil
	}

	scenes, ok := ScenesByType[c.Environment.Type]
	if !ok {
		return fmt.Errorf("unknown environment type %q", c.Environment.Type)
	}
	if !contains(scenes, c.Environment.Scene) {
		return fmt.Errorf("scene %q is not valid for environment type %q", c.Environment.Scene, c.Environment.Type)
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
