package pipeline

import (
	"context"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/prompt"
	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/qc"
)

// maxAttempts bounds the generate/judge loop per image.
const maxAttempts = 3

type runInput struct {
	base          gemini.ImagePart
	original      gemini.ImagePart
	refs          references
	instruction   string
	persona       bool
	hero          *gemini.ImagePart
	checkDemockup bool
}

// run drives the generate/judge/reinforce loop. Generation errors are
// terminal; a failing verdict triggers a reinforced retry. On exhaustion
// the last outcome is returned with its failing QC attached.
func (p *Pipeline) run(ctx context.Context, in runInput) (*Outcome, error) {
	instruction := in.instruction
	var last *Outcome

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		img, err := p.Model.GenerateImage(ctx, in.refs.parts(in.base, in.hero), instruction)
		if err != nil {
			return nil, err
		}

		product := p.Judge.Product(ctx, in.original, img, in.checkDemockup)

		var identity *qc.Result
		if in.persona && in.hero != nil {
			r := p.Judge.Identity(ctx, *in.hero, img)
			identity = &r
		}

		last = &Outcome{
			Image:       img,
			Instruction: instruction,
			QC:          product,
			IdentityQC:  identity,
			Attempts:    attempt,
		}

		identityFailed := identity != nil && !identity.Passed()
		if product.Passed() && !identityFailed {
			return last, nil
		}

		issues := product.Issues()
		if identity != nil {
			issues = append(issues, identity.Issues()...)
		}
		p.Logger.Warn().
			Int("attempt", attempt).
			Strs("issues", issues).
			Bool("identity_failed", identityFailed).
			Msg("qc rejected image, retrying")

		// Reinforce from the caller's instruction, never from a prior
		// reinforced one, so retry clauses do not stack.
		instruction = prompt.Reinforce(in.instruction, issues, identityFailed)
	}

	p.Logger.Warn().Int("attempts", maxAttempts).Msg("qc attempts exhausted, returning last image")
	return last, nil
}
