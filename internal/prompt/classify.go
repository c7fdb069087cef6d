package prompt

import (
	"strings"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
)

// Category is the closed set of product families the composer specializes
// for. Classification is a keyword heuristic over free text, not a
// guarantee; anything unrecognized falls back to CategoryOther.
type Category string

const (
	CategoryApparel   Category = "apparel"
	CategoryShoes     Category = "shoes"
	CategoryBottle    Category = "bottle"
	CategoryFurniture Category = "furniture"
	CategoryOther     Category = "other"
)

var categoryKeywords = []struct {
	cat   Category
	words []string
}{
	{CategoryApparel, []string{
		"remera", "camiseta", "camisa", "buzo", "hoodie", "campera", "sudadera",
		"t-shirt", "tshirt", "shirt", "sweater", "jacket", "apparel", "garment",
		"ropa", "vestido", "dress", "pantalon", "pants", "jean",
	}},
	{CategoryShoes, []string{
		"zapatilla", "zapato", "bota", "sneaker", "shoe", "boot", "sandalia", "sandal", "footwear",
	}},
	{CategoryBottle, []string{
		"botella", "bottle", "frasco", "flask", "termo", "jar", "vino", "wine", "perfume",
	}},
	{CategoryFurniture, []string{
		"silla", "mesa", "sillon", "sofa", "mueble", "chair", "table", "couch", "furniture", "desk", "shelf",
	}},
}

// Classify maps the free-text category hint and the auto description onto a
// category tag. The hint is checked first, then the describer's own guess,
// then its title and long description.
func Classify(hint string, auto catalog.AutoDescription) Category {
	for _, text := range []string{hint, auto.Category, auto.Title, auto.Description} {
		if cat, ok := matchCategory(text); ok {
			return cat
		}
	}
	return CategoryOther
}

func matchCategory(text string) (Category, bool) {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return CategoryOther, false
	}
	for _, entry := range categoryKeywords {
		for _, w := range entry.words {
			if strings.Contains(lowered, w) {
				return entry.cat, true
			}
		}
	}
	return CategoryOther, false
}

var mockupWords = []string{"mockup", "mock-up", "flat lay", "flatlay", "template", "plano", "vector", "render plano"}

// LooksLikeMockup reports whether the auto description reads like a flat
// apparel mockup rather than a photographed garment.
func LooksLikeMockup(auto catalog.AutoDescription) bool {
	for _, text := range []string{auto.Title, auto.Category, auto.Description} {
		lowered := strings.ToLower(text)
		for _, w := range mockupWords {
			if strings.Contains(lowered, w) {
				return true
			}
		}
	}
	for _, f := range auto.Features {
		lowered := strings.ToLower(f)
		for _, w := range mockupWords {
			if strings.Contains(lowered, w) {
				return true
			}
		}
	}
	return false
}
