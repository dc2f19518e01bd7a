package scraper

import (
	"strings"

	"sneakerbot/deal-sniper/internal/model"
)

// materialRules is checked in order; the first keyword found wins, so the
// compound names must precede plain "leather".
var materialRules = []struct {
	keyword  string
	material model.Material
}{
	{"patent leather", model.MaterialPatentLeather},
	{"synthetic", model.MaterialSynthetic},
	{"mesh", model.MaterialMesh},
	{"nubuck", model.MaterialNubuck},
	{"fabric", model.MaterialFabric},
	{"faux leather", model.MaterialFauxLeather},
	{"leather", model.MaterialLeather},
}

// InferMaterial guesses the upper material from a listing title.
func InferMaterial(title string) model.Material {
	lower := strings.ToLower(title)
	for _, r := range materialRules {
		if strings.Contains(lower, r.keyword) {
			return r.material
		}
	}
	return model.MaterialUnknown
}
