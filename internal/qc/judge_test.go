package qc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/JoaquinRestahinoch/pruebadefinitiva/internal/gemini"
)

type stubModel struct {
	raw string
	err error

	gotInstruction string
	gotParts       int
}

func (s *stubModel) GenerateText(_ context.Context, parts []gemini.ImagePart, instruction string) (string, error) {
	s.gotInstruction = instruction
	s.gotParts = len(parts)
	return s.raw, s.err
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantVerdict bool
		wantPass    bool
	}{
		{
			name:        "clean pass",
			raw:         `{"photorealism": 92, "product_fidelity": 95, "issues": [], "verdict": "pass"}`,
			wantVerdict: true,
			wantPass:    true,
		},
		{
			name:        "clean fail",
			raw:         `{"photorealism": 60, "product_fidelity": 95, "issues": ["plastic-looking surface"], "verdict": "fail"}`,
			wantVerdict: true,
			wantPass:    false,
		},
		{
			name:        "json wrapped in prose",
			raw:         "Here is my assessment:\n```json\n{\"photorealism\": 90, \"product_fidelity\": 91, \"verdict\": \"fail\"}\n```\nHope this helps.",
			wantVerdict: true,
			wantPass:    false,
		},
		{
			name:        "uppercase fail still blocks",
			raw:         `{"verdict": "FAIL"}`,
			wantVerdict: true,
			wantPass:    false,
		},
		{
			name:        "unknown verdict word passes",
			raw:         `{"verdict": "borderline"}`,
			wantVerdict: true,
			wantPass:    true,
		},
		{
			name:        "garbage yields no verdict and passes",
			raw:         "I cannot evaluate these images.",
			wantVerdict: false,
			wantPass:    true,
		},
		{
			name:        "empty response passes",
			raw:         "",
			wantVerdict: false,
			wantPass:    true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := parseVerdict(tc.raw)
			if (r.Verdict != nil) != tc.wantVerdict {
				t.Fatalf("verdict presence = %v, want %v (failure: %+v)", r.Verdict != nil, tc.wantVerdict, r.Failure)
			}
			if r.Passed() != tc.wantPass {
				t.Fatalf("Passed() = %v, want %v", r.Passed(), tc.wantPass)
			}
			if !tc.wantVerdict && r.Failure == nil {
				t.Fatal("unparsable response must carry a ParseFailure")
			}
		})
	}
}

func TestParseVerdictTruncatesRawSnippet(t *testing.T) {
	r := parseVerdict(strings.Repeat("x", 1000))
	if r.Failure == nil {
		t.Fatal("expected a parse failure")
	}
	if len(r.Failure.Raw) > maxRawSnippet {
		t.Fatalf("raw snippet length = %d, want <= %d", len(r.Failure.Raw), maxRawSnippet)
	}
}

func TestProductRubricDemockupToggle(t *testing.T) {
	m := &stubModel{raw: `{"verdict": "pass"}`}
	j := &Judge{Model: m, Logger: zerolog.Nop()}

	j.Product(context.Background(), gemini.ImagePart{}, gemini.ImagePart{}, false)
	if strings.Contains(m.gotInstruction, "demockup_realism") {
		t.Fatal("demockup criterion must be absent when not requested")
	}
	if m.gotParts != 2 {
		t.Fatalf("product QC sends %d images, want 2", m.gotParts)
	}

	j.Product(context.Background(), gemini.ImagePart{}, gemini.ImagePart{}, true)
	if !strings.Contains(m.gotInstruction, "demockup_realism") {
		t.Fatal("demockup criterion missing when requested")
	}
	if !strings.Contains(m.gotInstruction, "or demockup_realism < 85") {
		t.Fatal("demockup verdict rule missing")
	}
}

func TestIdentityRubricMentionsHiddenFaceException(t *testing.T) {
	m := &stubModel{raw: `{"identity_score": 93, "verdict": "pass"}`}
	j := &Judge{Model: m, Logger: zerolog.Nop()}

	r := j.Identity(context.Background(), gemini.ImagePart{}, gemini.ImagePart{})
	if !r.Passed() {
		t.Fatal("pass verdict should pass")
	}
	if !strings.Contains(m.gotInstruction, "90-95") {
		t.Fatal("identity rubric must state the hidden-face score exception")
	}
}

func TestJudgeCallFailureIsNoVerdict(t *testing.T) {
	m := &stubModel{err: errors.New("upstream timeout")}
	j := &Judge{Model: m, Logger: zerolog.Nop()}

	r := j.Product(context.Background(), gemini.ImagePart{}, gemini.ImagePart{}, false)
	if r.Verdict != nil {
		t.Fatal("failed judge call must not fabricate a verdict")
	}
	if !r.Passed() {
		t.Fatal("judge flakiness must not block the pipeline")
	}
}
