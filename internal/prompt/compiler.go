// Package prompt assembles the multimodal classification request.
package prompt

import (
	"fmt"
	"strings"

	"github.com/spherical/hs-classifier/internal/domain"
	"github.com/spherical/hs-classifier/internal/evidence"
	"github.com/spherical/hs-classifier/internal/policy"
)

const (
	// Temperature is low enough to suppress formatting drift but not zero.
	Temperature float32 = 0.1

	// SystemInstruction frames every classification call.
	SystemInstruction = "You are a licensed customs broker and tariff classification specialist. " +
		"Accuracy against official tariff schedules and live database evidence takes priority over general knowledge. " +
		"Never invent tariff codes, duty rates or regulations; when uncertain, say so and lower the confidence score. " +
		"Respond with a single JSON object and nothing else."

	// MinSimilarItems is the number of similar items the model must return.
	MinSimilarItems = 5

	noEvidenceNotice = "NO LIVE DATABASE MATCH FOUND. Rely on Google Search grounding against official government tariff sources, then on the HS General Interpretative Rules."
)

// ImageData is a decoded image attachment.
type ImageData struct {
	MIMEType string
	Data     []byte
}

// Part is one ordered piece of the request: either text or an image.
type Part struct {
	Text  string
	Image *ImageData
}

// Request is the compiled classification call.
type Request struct {
	Parts             []Part
	SystemInstruction string
	Temperature       float32
	Tools             policy.ToolSelection
}

// Text returns the concatenated text parts.
func (r *Request) Text() string {
	var parts []string
	for _, p := range r.Parts {
		if p.Image == nil {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// HasImage reports whether an image part is attached.
func (r *Request) HasImage() bool {
	for _, p := range r.Parts {
		if p.Image != nil {
			return true
		}
	}
	return false
}

// Compile builds the request: the image part (if any) first, then a single
// instruction document. Identical inputs produce identical requests.
func Compile(req domain.ClassificationRequest, ev evidence.Context, instructions string, tools policy.ToolSelection) (*Request, error) {
	out := &Request{
		SystemInstruction: SystemInstruction,
		Temperature:       Temperature,
		Tools:             tools,
	}

	if img := req.Image(); img != nil {
		raw, mimeType, err := img.Decode()
		if err != nil {
			return nil, err
		}
		out.Parts = append(out.Parts, Part{Image: &ImageData{MIMEType: mimeType, Data: raw}})
	}

	out.Parts = append(out.Parts, Part{Text: buildText(req, ev, instructions, tools)})
	return out, nil
}

func buildText(req domain.ClassificationRequest, ev evidence.Context, instructions string, tools policy.ToolSelection) string {
	region := req.Region().DisplayName()
	description := req.Description()
	if description == "" {
		description = "(no text provided; classify the product shown in the attached image)"
	} else if req.Image() != nil {
		description += " (a product photo is attached)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Act as an expert customs broker for %s.\n", region)
	b.WriteString("Classify the following product under the Harmonized System and report duties, taxes and compliance requirements.\n\n")

	fmt.Fprintf(&b, "PRODUCT DESCRIPTION:\n%s\n\n", description)
	fmt.Fprintf(&b, "TARGET JURISDICTION: %s (%s)\n\n", region, req.Region())

	b.WriteString("LIVE DATABASE EVIDENCE:\n")
	if ev.Empty() {
		b.WriteString(noEvidenceNotice)
	} else {
		b.WriteString(ev.Text())
		b.WriteString("\nTreat the records above as authoritative when they match the product.")
	}
	b.WriteString("\n\n")

	b.WriteString(strings.TrimRight(instructions, "\n"))
	b.WriteString("\n\n")

	if tools.WebSearch {
		b.WriteString("Use Google Search to confirm the code and rates against official government sources, and cite the page in sourceReference.\n\n")
	}

	b.WriteString(outputContract)
	return b.String()
}

// outputContract spells out the JSON shape in prose. With search grounding
// enabled the model cannot be given a native response schema, so this text
// is the only structural constraint it sees.
var outputContract = fmt.Sprintf(`OUTPUT FORMAT (STRICT):
Return exactly one JSON object with no markdown fences, no commentary and no text before or after it.
The object must have exactly these fields:
- "hsCode": string. The most specific tariff code for the jurisdiction, digits with dots as separators.
- "productName": string. A short standardized product name.
- "description": string. The official tariff heading description for the code.
- "dutyRate": string. The import duty rate, e.g. "0%%" or "5%% ad valorem".
- "taxRate": string. The import VAT/GST/sales tax rate, e.g. "9%% GST".
- "restrictions": array of strings. Import restrictions, permits or licences; [] if none.
- "reasoning": string. Why this heading and subheading apply, referencing the General Interpretative Rules.
- "confidenceScore": integer from 0 to 100. No decimals, no quotes.
- "requiredDocuments": array of strings. Documents needed to clear customs.
- "source": string. Exactly one of %q or %q. Use %q only if the code was confirmed in a live government database or official tariff page.
- "sourceReference": string. The database name or URL the code was confirmed against; "" if none.
- "similarItems": array of at least %d objects, each with "name" (string), "hsCode" (string) and "reason" (string explaining how it differs).
`, domain.SourceLiveAPI, domain.SourceAIModel, domain.SourceLiveAPI, MinSimilarItems)
