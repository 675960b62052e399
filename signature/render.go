package signature

import (
	"fmt"
	"sort"
	"strings"
)

type (
	// ContentBlockKind discriminates the two kinds of ContentBlock.
	ContentBlockKind string

	// ContentBlock is one part of a multimodal prompt.
	ContentBlock struct {
		Kind     ContentBlockKind
		Text     string
		ImageURL string
	}

	// Prompt is either a single rendered text string or an ordered list of
	// content blocks, matching §4.1's "text string or ordered list of
	// content blocks."
	Prompt struct {
		Text   string
		Blocks []ContentBlock
	}

	// Ctx carries the per-run, immutable context threaded through prompt
	// rendering and the selector: system preamble, memory, tool hints, mode,
	// priority, conversation history, and a compacted summary. Outer layers
	// own persistence; Ctx itself is never mutated after construction.
	Ctx struct {
		System            string
		Memory            string
		ToolHints         []string
		Mode              string
		Priority          string
		History           []string
		CompactedSummary  string
	}
)

const (
	// ContentBlockText is a plain text block.
	ContentBlockText ContentBlockKind = "text"
	// ContentBlockImage is an image-url block.
	ContentBlockImage ContentBlockKind = "image_url"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg"}

// IsImageURL reports whether value looks like an image URL per §4.1: a
// data:image/* URI, or a string ending in .png/.jpg/.jpeg (case-insensitive).
func IsImageURL(value any) (string, bool) {
	s, ok := value.(string)
	if !ok {
		return "", false
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "data:image/") {
		return s, true
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return s, true
		}
	}
	return "", false
}

// RenderPrompt produces the Prompt for invoking m against ctx with the given
// inputs. If any input value is an image URL (§4.1), the first one is
// attached as an image content block alongside the rendered text; otherwise a
// text-only Prompt is returned.
func RenderPrompt(m Module, ctx Ctx, inputs map[string]any) (Prompt, error) {
	text, err := renderText(m, ctx, inputs)
	if err != nil {
		return Prompt{}, err
	}

	imageURL, inputNames := "", m.Signature.InputNames()
	for _, name := range inputNames {
		if url, ok := IsImageURL(inputs[name]); ok {
			imageURL = url
			break
		}
	}
	if imageURL == "" {
		return Prompt{Text: text}, nil
	}
	return Prompt{
		Blocks: []ContentBlock{
			{Kind: ContentBlockText, Text: text},
			{Kind: ContentBlockImage, ImageURL: imageURL},
		},
	}, nil
}

func renderText(m Module, ctx Ctx, inputs map[string]any) (string, error) {
	var b strings.Builder

	if ctx.System != "" {
		b.WriteString(ctx.System)
		b.WriteString("\n\n")
	}
	if ctx.Memory != "" {
		b.WriteString(ctx.Memory)
		b.WriteString("\n\n")
	}

	instructions := m.Instructions
	if m.Strategy == ChainOfThought {
		instructions = strings.TrimSpace(instructions + "\nThink step-by-step before producing the final JSON output.")
	}
	b.WriteString(instructions)
	b.WriteString("\n\n")

	for _, demo := range m.Demos {
		b.WriteString("## Example\nInput:\n")
		writeFieldLines(&b, m.Signature.InputNames(), demo.Inputs)
		b.WriteString("Output:\n")
		b.WriteString(renderOutputJSON(m.Signature.OutputNames(), demo.Expected))
		b.WriteString("\n\n")
	}

	outputNames := m.Signature.OutputNames()
	if m.Strategy == ChainOfThought && !m.Signature.HasOutput(scratchFieldName) {
		outputNames = append([]string{scratchFieldName}, outputNames...)
	}

	b.WriteString("## Task\nInput:\n")
	writeFieldLines(&b, m.Signature.InputNames(), inputs)
	b.WriteString("Output (STRICT JSON):\n")
	b.WriteString(renderSkeleton(outputNames))

	return b.String(), nil
}

func writeFieldLines(b *strings.Builder, names []string, values map[string]any) {
	for _, name := range names {
		fmt.Fprintf(b, "%s: %v\n", name, values[name])
	}
}

// renderOutputJSON renders a demo's expected output as a stable, sorted-key
// JSON-ish object for inclusion in the prompt text. It does not need to be
// valid JSON for non-string-representable Go values, but in practice demo
// bindings are JSON-representable per §3.
func renderOutputJSON(names []string, values map[string]any) string {
	keys := append([]string(nil), names...)
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%q: %s", k, jsonLiteral(values[k]))
	}
	b.WriteString("}")
	return b.String()
}

func renderSkeleton(names []string) string {
	var b strings.Builder
	b.WriteString("{")
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%q: \"<?>\"", name)
	}
	b.WriteString("}")
	return b.String()
}

func jsonLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("%q", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
