// Package proposer generates rewrite proposals with an LLM. The model sees
// the current document and the caller's instruction and must answer strict
// JSON; the result feeds straight into session creation.
package proposer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const defaultModel = "gemini-2.5-flash"

const promptTemplate = `You are editing a document on behalf of a user.

Rewrite the document below according to the instruction. Respond with a
single JSON object and nothing else:

{"proposed_content": "<the full rewritten document>", "summary": "<one sentence describing the change>"}

Preserve the document's line endings and formatting except where the
instruction requires changes. The proposed_content must be the complete
document, not a fragment.

Instruction: %s

Document:
%s`

// Proposer wraps an LLM behind the rewrite-proposal contract.
type Proposer struct {
	llm llms.Model
}

// New builds a Proposer backed by Google AI.
func New(ctx context.Context, apiKey, model string) (*Proposer, error) {
	if apiKey == "" {
		return nil, errors.New("API key is required")
	}
	if model == "" {
		model = defaultModel
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Proposer{llm: llm}, nil
}

// NewWithModel builds a Proposer over an existing model. Used by tests.
func NewWithModel(llm llms.Model) *Proposer {
	return &Proposer{llm: llm}
}

// Propose returns the rewritten document and a one-line summary.
func (p *Proposer) Propose(ctx context.Context, document, instruction string) (string, string, error) {
	prompt := fmt.Sprintf(promptTemplate, instruction, document)

	response, err := llms.GenerateFromSinglePrompt(ctx, p.llm, prompt)
	if err != nil {
		return "", "", fmt.Errorf("LLM call failed: %w", err)
	}

	proposal, err := parseProposal(response)
	if err != nil {
		return "", "", err
	}
	return proposal.ProposedContent, proposal.Summary, nil
}

type proposal struct {
	ProposedContent string `json:"proposed_content"`
	Summary         string `json:"summary"`
}

// parseProposal decodes the model's JSON answer. Models wrap JSON in code
// fences or emit slightly malformed JSON often enough that both get a
// recovery pass before giving up.
func parseProposal(response string) (proposal, error) {
	raw := stripCodeFences(response)

	var out proposal
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return proposal{}, fmt.Errorf("LLM response is not valid JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &out); err != nil {
			return proposal{}, fmt.Errorf("LLM response is not valid JSON after repair: %w", err)
		}
	}

	if out.ProposedContent == "" {
		return proposal{}, errors.New("LLM response is missing proposed_content")
	}
	return out, nil
}

// stripCodeFences unwraps a ```json ... ``` block if the response carries
// one.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
