package shoot

// Shot is one planned frame of a pack: a role tag plus the framing/angle
// instruction handed to the model.
type Shot struct {
	Role       string `json:"role"`
	Descriptor string `json:"descriptor"`
}

const (
	// RoleHero marks shot #1, which anchors the rest of the pack visually.
	RoleHero = "hero"
	// RoleMatch marks every subsequent shot, generated against the hero.
	RoleMatch = "match"
)

// PackMin and PackMax bound the number of images in a pack; requests outside
// the range are clamped, never rejected.
const (
	PackMin = 2
	PackMax = 10
)

var apparelPlan = []string{
	"front-facing hero shot, garment fully visible, centered composition",
	"three-quarter rotation view, roughly 45 degrees off the front axis",
	"tight close-up on the print or chest graphic, fabric weave visible",
	"construction detail shot: collar, seams and stitching in sharp focus",
	"secondary angle or neatly arranged flat lay, styled like a lookbook page",
}

var genericPlan = []string{
	"straight-on packshot hero, product centered and fully in frame",
	"three-quarter view, roughly 45 degrees off the front axis",
	"tight close-up on the most distinctive surface detail",
	"elevated three-quarter view from above, or opened/in-use presentation",
	"side profile view, silhouette clearly readable",
}

// Plan returns the ordered shot list for a pack of n images. n is clamped to
// [PackMin, PackMax]. Descriptors are assigned deterministically by category
// and position; when n exceeds the plan length the plan repeats cyclically.
func Plan(category string, n int) []Shot {
	if n < PackMin {
		n = PackMin
	}
	if n > PackMax {
		n = PackMax
	}

	plan := genericPlan
	if category == "apparel" {
		plan = apparelPlan
	}

	shots := make([]Shot, n)
	for i := 0; i < n; i++ {
		role := RoleMatch
		if i == 0 {
			role = RoleHero
		}
		shots[i] = Shot{Role: role, Descriptor: plan[i%len(plan)]}
	}
	return shots
}
