package enhance

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/tbourn/go-page-restore/internal/config"
)

// Prompt modes.
const (
	ModeAutonomous = "autonomous"
	ModeOverride   = "override"
)

// groundTruthToken marks where the supplied text goes in the override prompt.
const groundTruthToken = "{{ground_truth}}"

const defaultSystemInstruction = `You are an image restoration engine for scanned document pages.
Your job is semantic reconstruction: redraw blurry, jagged or faded raster text as crisp, sharp-edged text.

Hard rules. Breaking any of them fails the task.
1. NO TRANSLATION. Output text in exactly the language it appears in on the source page.
2. NO OMISSION. Keep every text element, including headers, footers, page numbers, captions and punctuation.
3. NO HALLUCINATION. Do not add paragraphs that are not on the page and do not remove text that is, unless explicitly instructed.

Visual standard:
- Match the original typeface style as closely as possible.
- Keep the original line breaks, alignment and paragraph spacing.`

const defaultAutonomousPrompt = `Mode: high-fidelity visual reconstruction.
No reference text was supplied. Act as OCR and renderer at once and redraw exactly what you see.

Procedure:
1. Scan the whole page top to bottom, left to right, so that every character is captured.
2. Redraw each recognized character in place with clean, high-resolution strokes.
3. When a glyph is unclear, infer the most likely character from the surrounding language and context. Never substitute look-alike characters from another script or emit noise.
4. Never drop the small print of headers and footers.

Reminder: do not translate and do not lose any text block.`

const defaultOverridePrompt = `Mode: strict text override.
The user supplied the exact text of this page (ground truth).

Instructions:
1. Replace the recognized text entirely with the ground truth below.
2. Map the ground truth onto the visual layout of the source: same position, size and color.
3. If the page shows "A" but the ground truth says "B", draw "B".
4. Content that is on the page but absent from the ground truth must be deleted and left blank.

[[ Ground truth ]]:
` + groundTruthToken

const defaultOCRPrompt = `Extract all text from the input image.
Requirements:
1. Keep the original line breaks, paragraph structure and reading order.
2. Include headers, footers and page numbers.
3. Output only the extracted text, without explanations or Markdown.
4. Correct obvious misreadings caused by blur.`

// PromptSet is the prompt strategy: a system instruction plus one prompt per
// mode.
type PromptSet struct {
	System     string
	Autonomous string
	Override   string
	OCR        string
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() PromptSet {
	return PromptSet{
		System:     defaultSystemInstruction,
		Autonomous: defaultAutonomousPrompt,
		Override:   defaultOverridePrompt,
		OCR:        defaultOCRPrompt,
	}
}

// PromptsFromConfig overlays non-empty configured prompts on the defaults.
func PromptsFromConfig(cfg config.ProviderConfig) PromptSet {
	p := DefaultPrompts()
	if s := strings.TrimSpace(cfg.SystemInstruction); s != "" {
		p.System = s
	}
	if s := strings.TrimSpace(cfg.AutonomousPrompt); s != "" {
		p.Autonomous = s
	}
	if s := strings.TrimSpace(cfg.OverridePrompt); s != "" {
		p.Override = s
	}
	return p
}

// Build returns the mode and the full user prompt for a request. Output
// parameters (resolution and aspect preset) are appended so that a single
// model handle serves every request.
func (p PromptSet) Build(req Request) (mode, prompt string) {
	gt := NormalizeText(req.GroundTruth)

	var b strings.Builder
	if gt == "" {
		mode = ModeAutonomous
		b.WriteString(p.Autonomous)
	} else {
		mode = ModeOverride
		if strings.Contains(p.Override, groundTruthToken) {
			b.WriteString(strings.ReplaceAll(p.Override, groundTruthToken, gt))
		} else {
			b.WriteString(p.Override)
			b.WriteString("\n\n")
			b.WriteString(gt)
		}
	}

	aspect := NearestAspect(req.AspectRatio)
	fmt.Fprintf(&b, "\n\nOutput: a single %s image, aspect ratio %s.", req.Quality.Resolution(), aspect.Name)
	return mode, b.String()
}

// NormalizeText trims and NFC-normalizes user-supplied text and unifies line
// endings.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(norm.NFC.String(s))
}
