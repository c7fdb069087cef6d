package shoot

// Preset is a named one-shot style: a fixed prompt snippet that fully
// defines the scene. Presets and background references are mutually
// exclusive since both claim to be the scene source of truth.
type Preset struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Prompt string `json:"-"`
}

var presetOrder = []string{"catalogo_blanco", "catalogo_gris", "lifestyle_cocina", "instagram_ads"}

var presets = map[string]Preset{
	"catalogo_blanco": {
		Key:    "catalogo_blanco",
		Title:  "Catálogo fondo blanco",
		Prompt: "Pure white background, soft shadow, studio lighting, product centered.",
	},
	"catalogo_gris": {
		Key:    "catalogo_gris",
		Title:  "Catálogo fondo gris",
		Prompt: "Uniform light gray background, soft studio lighting.",
	},
	"lifestyle_cocina": {
		Key:    "lifestyle_cocina",
		Title:  "Lifestyle cocina",
		Prompt: "Modern minimalist kitchen, natural light, no people.",
	},
	"instagram_ads": {
		Key:    "instagram_ads",
		Title:  "Instagram Ads",
		Prompt: "Modern advertising photo for social media.",
	},
}

// PresetByKey looks a preset up by its key.
func PresetByKey(key string) (Preset, bool) {
	p, ok := presets[key]
	return p, ok
}

// Presets lists all presets in presentation order.
func Presets() []Preset {
	out := make([]Preset, 0, len(presetOrder))
	for _, key := range presetOrder {
		out = append(out, presets[key])
	}
	return out
}
