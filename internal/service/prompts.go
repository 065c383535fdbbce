package service

import (
	"fmt"
	"strings"

	"github.com/sourcingworks/rfqsmith/internal/rfq"
)

const drafterSystemPrompt = `You are a senior automotive procurement specialist writing Request for Quotation documents. Output plain text only, no markdown code fences.`

const validatorSystemPrompt = `You judge whether a requirement is a concrete automotive sourcing requirement with enough detail to research. Answer with exactly one word: yes, maybe or no.`

const intentSystemPrompt = `You classify one user message in an RFQ drafting conversation. Answer with exactly one word from: name_component, refine_requirement, request_draft, edit_draft, question, override_draft, other.`

const impactSystemPrompt = `You summarize what changed between two revisions of an RFQ and which other sections deserve review. Be concise and factual; do not rewrite the document.`

func validateRequirementPrompt(requirement string) string {
	return fmt.Sprintf("Requirement:\n%s\n\nIs this a concrete automotive sourcing requirement? Answer yes, maybe or no.", requirement)
}

func formatContext(rctx RetrievedContext) string {
	var b strings.Builder
	if len(rctx.Passages) == 0 {
		b.WriteString("No reference material was retrieved. Draft from the requirement alone and keep unverifiable details generic.\n")
	} else {
		b.WriteString("Reference material:\n")
		for i, p := range rctx.Passages {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, p.Filename, p.Content)
		}
	}
	if len(rctx.Images) > 0 {
		b.WriteString("Available images (reference by ID only, at most ")
		fmt.Fprintf(&b, "%d):\n", rfq.MaxImagePlaceholders)
		for _, img := range rctx.Images {
			desc := img.Description
			if desc == "" {
				desc = "technical image"
			}
			fmt.Fprintf(&b, "- [[IMAGE_ID:%d]] %s\n", img.ID, desc)
		}
	}
	return b.String()
}

func draftNewPrompt(requirement string, rctx RetrievedContext) string {
	var b strings.Builder
	b.WriteString("Write a complete RFQ for the following requirement.\n\n")
	fmt.Fprintf(&b, "Requirement:\n%s\n\n", requirement)
	b.WriteString(formatContext(rctx))
	b.WriteString("\nRules:\n")
	fmt.Fprintf(&b, "- Use exactly these section headings, once each, in this order:\n  %s\n", strings.Join(rfq.CanonicalSections(), "\n  "))
	b.WriteString("- Do not invent additional top-level sections.\n")
	fmt.Fprintf(&b, "- You may place up to %d image placeholders of the form [[IMAGE_ID:n]], each on its own line directly under a section heading, and only with IDs listed above. Never invent an image ID.\n", rfq.MaxImagePlaceholders)
	b.WriteString("- Ground technical figures in the reference material; repeat key parameters from the requirement verbatim in TECHNICAL REQUIREMENTS.\n")
	return b.String()
}

func applyEditPrompt(currentBody, instruction string, rctx RetrievedContext) string {
	var b strings.Builder
	b.WriteString("Revise the RFQ below according to the instruction. Return the complete revised document.\n\n")
	fmt.Fprintf(&b, "Instruction:\n%s\n\n", instruction)
	fmt.Fprintf(&b, "Current document:\n%s\n\n", currentBody)
	b.WriteString(formatContext(rctx))
	b.WriteString("\nRules:\n")
	b.WriteString("- Keep every section heading exactly as it is, in the same order.\n")
	b.WriteString("- Change only the sections the instruction concerns; copy all other sections verbatim, byte for byte.\n")
	b.WriteString("- If the instruction cannot be executed or matches nothing, return the current document unchanged with no added commentary.\n")
	b.WriteString("- Never invent image IDs; keep existing placeholders unless the instruction removes them.\n")
	return b.String()
}

// strictReminder is appended on the retry after a structural failure.
func strictReminder(reason string) string {
	return fmt.Sprintf("\n\nIMPORTANT: your previous answer was rejected (%s). Output the full document again with exactly the nine required headings, once each, in order, and no fabricated image IDs.", reason)
}

func impactAnalysisPrompt(changes []rfq.SectionChange, reviewCandidates []string) string {
	var b strings.Builder
	b.WriteString("Changed sections:\n\n")
	for _, c := range changes {
		switch c.Kind {
		case rfq.ChangeAdded:
			fmt.Fprintf(&b, "%s (added):\n%s\n\n", c.Heading, c.NewBody)
		case rfq.ChangeRemoved:
			fmt.Fprintf(&b, "%s (removed):\n%s\n\n", c.Heading, c.OldBody)
		default:
			fmt.Fprintf(&b, "%s:\nBefore:\n%s\nAfter:\n%s\n\n", c.Heading, c.OldBody, c.NewBody)
		}
	}
	if len(reviewCandidates) > 0 {
		fmt.Fprintf(&b, "Related sections that may need review: %s\n\n", strings.Join(reviewCandidates, ", "))
	}
	b.WriteString("Summarize what changed (name the parameters) and which related sections should be re-checked and why.")
	return b.String()
}

func intentPrompt(message string, hasDraft bool) string {
	state := "no draft exists yet"
	if hasDraft {
		state = "a draft already exists"
	}
	return fmt.Sprintf("Conversation state: %s.\nUser message:\n%s\n\nAnswer with exactly one word from: name_component, refine_requirement, request_draft, edit_draft, question, override_draft, other.", state, message)
}
