package prompt

import (
	"strings"
	"testing"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/catalog"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/shoot"
)

func baseConfig() shoot.Config {
	cfg := shoot.Config{
		Environment: shoot.EnvironmentConfig{Type: "studio", Scene: "white"},
	}
	cfg.Normalize()
	return cfg
}

func clauseNames(clauses []Clause) []string {
	names := make([]string, 0, len(clauses))
	for _, c := range clauses {
		names = append(names, c.Name)
	}
	return names
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestComposeIsDeterministic(t *testing.T) {
	cfg := baseConfig()
	meta := catalog.ProductMetadata{
		ID: "p1",
		Auto: catalog.AutoDescription{
			Title:  "Ceramic mug",
			Colors: []string{"white", "blue"},
		},
	}
	flags := Flags{HasSecondary: true}

	a := Compose(cfg, meta, flags)
	b := Compose(cfg, meta, flags)
	if a != b {
		t.Fatal("Compose is not deterministic for identical inputs")
	}
}

func TestClausesOrdering(t *testing.T) {
	cfg := baseConfig()
	cfg.Model.Enabled = true
	cfg.Normalize()

	meta := catalog.ProductMetadata{
		ID:   "p1",
		Auto: catalog.AutoDescription{Title: "Ceramic mug"},
		Extras: []catalog.ExtraRef{
			{Index: 0, Key: "products/p1_extra_0.png", Label: "handle close-up"},
		},
	}
	flags := Flags{HasSecondary: true, HasBackgroundRef: true, IsApparel: true}

	names := clauseNames(Clauses(cfg, meta, flags))

	order := []string{
		"background_lock", "multi_view", "mockup_to_real", "extra_refs",
		"product_lock", "no_text", "photorealism", "consistency",
		"persona_lock", "product_facts", "shoot_context", "persona", "objective",
	}
	for i := 1; i < len(order); i++ {
		prev, cur := indexOf(names, order[i-1]), indexOf(names, order[i])
		if prev == -1 || cur == -1 {
			t.Fatalf("missing clause %q or %q in %v", order[i-1], order[i], names)
		}
		if prev >= cur {
			t.Fatalf("clause %q must come before %q, got order %v", order[i-1], order[i], names)
		}
	}
}

func TestClausesOptionalDropOut(t *testing.T) {
	cfg := baseConfig()
	meta := catalog.ProductMetadata{ID: "p1"}

	names := clauseNames(Clauses(cfg, meta, Flags{}))

	for _, absent := range []string{"background_lock", "multi_view", "mockup_to_real", "extra_refs", "persona_lock", "product_facts"} {
		if indexOf(names, absent) != -1 {
			t.Fatalf("clause %q should be absent without its trigger, got %v", absent, names)
		}
	}
	for _, present := range []string{"product_lock", "no_text", "photorealism", "consistency", "shoot_context", "persona", "objective"} {
		if indexOf(names, present) == -1 {
			t.Fatalf("core clause %q missing, got %v", present, names)
		}
	}
}

func TestComposeBackgroundRefOverridesScene(t *testing.T) {
	cfg := baseConfig()
	meta := catalog.ProductMetadata{ID: "p1"}

	text := Compose(cfg, meta, Flags{HasBackgroundRef: true})
	if !strings.Contains(text, "HIGHEST PRIORITY") {
		t.Fatal("background lock clause missing")
	}
	if strings.Contains(text, "Scene/background: white") {
		t.Fatal("fixed scene text should be replaced by the background reference")
	}
}

func TestComposeCustomSceneAntiSubstitution(t *testing.T) {
	cfg := baseConfig()
	cfg.Environment.CustomScene = "a neon-lit arcade at night"
	meta := catalog.ProductMetadata{ID: "p1"}

	text := Compose(cfg, meta, Flags{})
	if !strings.Contains(text, "a neon-lit arcade at night") {
		t.Fatal("custom scene text missing")
	}
	if !strings.Contains(text, "Do not substitute") {
		t.Fatal("anti-substitution directive missing for custom scene")
	}
}

func TestComposeCarriesAestheticHint(t *testing.T) {
	cfg := baseConfig()
	meta := catalog.ProductMetadata{ID: "p1", AestheticHint: "minimalista"}

	text := Compose(cfg, meta, Flags{})
	if !strings.Contains(text, "minimalista") {
		t.Fatal("aesthetic hint missing from instruction")
	}
}

func TestComposeNoModelMeansNoPerson(t *testing.T) {
	cfg := baseConfig()
	meta := catalog.ProductMetadata{ID: "p1"}

	text := Compose(cfg, meta, Flags{})
	if !strings.Contains(text, "No model or person in the shot.") {
		t.Fatal("expected explicit no-person directive when model is disabled")
	}
}

func TestReinforceCapsQuotedIssues(t *testing.T) {
	issues := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	out := Reinforce("BASE", issues, false)

	if !strings.HasPrefix(out, "BASE") {
		t.Fatal("reinforced instruction must start from the base")
	}
	if strings.Contains(out, "\n- g") || strings.Contains(out, "\n- h") {
		t.Fatalf("more than %d issues quoted:\n%s", maxQuotedIssues, out)
	}
	if !strings.Contains(out, "\n- f") {
		t.Fatal("sixth issue should still be quoted")
	}
}

func TestReinforceIdentityFailureAddsHideFaceClause(t *testing.T) {
	out := Reinforce("BASE", []string{"different person"}, true)
	if !strings.Contains(out, "rather than showing a different person") {
		t.Fatal("identity failure should add the hide-face directive")
	}

	out = Reinforce("BASE", []string{"blurry"}, false)
	if strings.Contains(out, "rather than showing a different person") {
		t.Fatal("hide-face directive must only appear on identity failures")
	}
}

func TestReinforceEmptyIssuesGetsGenericLine(t *testing.T) {
	out := Reinforce("BASE", nil, false)
	if !strings.Contains(out, "photorealism and product-fidelity bar") {
		t.Fatal("expected generic issue line when the judge reported none")
	}
}
