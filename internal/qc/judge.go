package qc

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
)

// TextModel is the judge-model call this package depends on.
type TextModel interface {
	GenerateText(ctx context.Context, parts []gemini.ImagePart, instruction string) (string, error)
}

// Verdict is the judge model's scored assessment of one generated image.
// The scores and the verdict field are the model's own claims; nothing here
// is verified locally.
type Verdict struct {
	Photorealism int      `json:"photorealism,omitempty"`
	Fidelity     int      `json:"product_fidelity,omitempty"`
	Demockup     int      `json:"demockup_realism,omitempty"`
	Identity     int      `json:"identity_score,omitempty"`
	Issues       []string `json:"issues,omitempty"`
	Verdict      string   `json:"verdict"`
}

// ParseFailure records why a judge response yielded no verdict.
type ParseFailure struct {
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
}

// Result distinguishes "the judge scored this" from "the judge said nothing
// scorable". A Result with a Failure and no Verdict is treated as a pass by
// the retry loop: judge flakiness must not stall the pipeline.
type Result struct {
	Verdict *Verdict      `json:"verdict,omitempty"`
	Failure *ParseFailure `json:"failure,omitempty"`
}

// Passed reports whether the retry loop should accept this result. Only an
// explicit "fail" verdict blocks acceptance.
func (r Result) Passed() bool {
	if r.Verdict == nil {
		return true
	}
	return !strings.EqualFold(strings.TrimSpace(r.Verdict.Verdict), "fail")
}

// Issues returns the judge's reported problems, if any.
func (r Result) Issues() []string {
	if r.Verdict == nil {
		return nil
	}
	return r.Verdict.Issues
}

// Judge runs the two QC calls of the pipeline: product QC on every attempt,
// identity QC only when a persona is requested.
type Judge struct {
	Model  TextModel
	Logger zerolog.Logger
}

const productRubric = `You are a strict quality-control reviewer for AI-generated product photography.
IMAGE 1 is the original product reference. IMAGE 2 is a generated marketing shot of the same product.
Score IMAGE 2 from 0 to 100 on:
- "photorealism": does it read as a real photograph (optics, lighting, shadows, materials)?
- "product_fidelity": is the product identical to IMAGE 1 (shape, colors, proportions, labels, details)?%s
Verdict rule: "fail" if photorealism < 85 or product_fidelity < 90%s; otherwise "pass".
List every concrete problem you see in "issues" (empty list if none).
Respond with ONLY this JSON object:
{"photorealism": 0, "product_fidelity": 0,%s "issues": ["..."], "verdict": "pass"}`

const identityRubric = `You are a strict identity-consistency reviewer for a product photoshoot.
IMAGE 1 is the hero shot establishing the model/person. IMAGE 2 is another shot from the same shoot.
Score from 0 to 100:
- "identity_score": is the person in IMAGE 2 the exact same individual as in IMAGE 1
  (face, hair, build, skin tone)?
Verdict rule: "fail" if identity_score < 90. Exception: a score in the 90-95 range may "pass"
when the face is not visible in IMAGE 2 but every visible cue (hair, build, clothing) is consistent.
List every concrete mismatch in "issues" (empty list if none).
Respond with ONLY this JSON object:
{"identity_score": 0, "issues": ["..."], "verdict": "pass"}`

// Product compares the original product against a generated shot. When
// checkDemockup is set, the rubric additionally scores how convincingly a
// flat mockup was turned into a real garment.
func (j *Judge) Product(ctx context.Context, original, generated gemini.ImagePart, checkDemockup bool) Result {
	demockupCriterion, demockupRule, demockupField := "", "", ""
	if checkDemockup {
		demockupCriterion = "\n- \"demockup_realism\": was the flat mockup convincingly rendered as a real garment (fabric, drape, shadows)?"
		demockupRule = " or demockup_realism < 85"
		demockupField = ` "demockup_realism": 0,`
	}
	instruction := fmt.Sprintf(productRubric, demockupCriterion, demockupRule, demockupField)
	return j.run(ctx, []gemini.ImagePart{original, generated}, instruction, "product")
}

// Identity compares the hero shot against a later shot of the same pack.
func (j *Judge) Identity(ctx context.Context, hero, generated gemini.ImagePart) Result {
	return j.run(ctx, []gemini.ImagePart{hero, generated}, identityRubric, "identity")
}

func (j *Judge) run(ctx context.Context, parts []gemini.ImagePart, instruction, kind string) Result {
	raw, err := j.Model.GenerateText(ctx, parts, instruction)
	if err != nil {
		j.Logger.Warn().Err(err).Str("kind", kind).Msg("qc: judge call failed; treating as no verdict")
		return Result{Failure: &ParseFailure{Reason: fmt.Sprintf("judge call failed: %v", err)}}
	}
	return parseVerdict(raw)
}

const maxRawSnippet = 300

func parseVerdict(raw string) Result {
	text := strings.TrimSpace(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return Result{Verdict: &v}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &v); err == nil {
			return Result{Verdict: &v}
		}
	}

	snippet := text
	if len(snippet) > maxRawSnippet {
		snippet = snippet[:maxRawSnippet]
	}
	return Result{Failure: &ParseFailure{Reason: "response carried no parsable JSON object", Raw: snippet}}
}
