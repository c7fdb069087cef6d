package shoot

// ScenesByType enumerates the fixed scene set per environment type. Each
// list is kept alphabetically sorted, which is the order the frontend
// receives from /options.
var ScenesByType = map[string][]string{
	"studio":      {"black", "gradient", "gray", "textured", "white"},
	"indoor_real": {"bathroom", "jewelry_store", "kitchen", "living_room", "office"},
	"lifestyle":   {"cafe", "desk", "gym", "home", "street"},
	"outdoor":     {"beach", "city_night", "nature", "urban"},
}

// EnvironmentTypes lists the environment types in presentation order.
var EnvironmentTypes = []string{"studio", "indoor_real", "lifestyle", "outdoor"}

// Chips are the mood descriptors a request may attach to the scene.
var Chips = []string{"luxury", "minimal", "modern", "rustic", "clean", "premium"}

// Styles are the supported shoot styles.
var Styles = []string{"ecommerce", "lifestyle", "advertising", "instagram_ads"}

// Lightings are the supported lighting presets.
var Lightings = []string{"studio_soft", "natural", "premium", "dramatic"}

// Genders and AgeRanges enumerate the persona options.
var (
	Genders   = []string{"female", "male"}
	AgeRanges = []string{"18-24", "25-35", "36-50", "50+"}
)

// Options is the payload served to the frontend so it can render pickers.
type Options struct {
	EnvironmentTypes []string            `json:"environment_types"`
	ScenesByType     map[string][]string `json:"scenes_by_type"`
	Chips            []string            `json:"chips"`
	Styles           []string            `json:"styles"`
	Lightings        []string            `json:"lightings"`
	Model            ModelOptions        `json:"model"`
}

// ModelOptions enumerates persona pickers.
type ModelOptions struct {
	Genders   []string `json:"genders"`
	AgeRanges []string `json:"age_ranges"`
}

// AllOptions collects every picker catalog.
func AllOptions() Options {
	return Options{
		EnvironmentTypes: EnvironmentTypes,
		ScenesByType:     ScenesByType,
		Chips:            Chips,
		Styles:           Styles,
		Lightings:        Lightings,
		Model:            ModelOptions{Genders: Genders, AgeRanges: AgeRanges},
	}
}
