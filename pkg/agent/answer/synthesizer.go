package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rachit-keshari-2003312/third-eye-project/pkg/llm"
	"github.com/rachit-keshari-2003312/third-eye-project/pkg/redash"
)

const (
	// NoResultsMessage is returned for empty result sets without an LLM call.
	NoResultsMessage = "Query executed successfully, but no results found."

	// degradedMessage is the fixed notice when the LLM call fails.
	degradedMessage = "I found the data but couldn't generate a response. Please check the raw results."

	// sampleRows bounds how many rows are embedded in the prompt.
	sampleRows = 5
)

// Synthesizer converts result rows into a natural-language answer.
type Synthesizer struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewSynthesizer(llmProvider llm.LLMProvider, logger *log.Logger) *Synthesizer {
	return &Synthesizer{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Synthesize answers the question from the query results. It never fails:
// empty results and LLM errors both degrade to fixed sentences.
func (s *Synthesizer) Synthesize(ctx context.Context, question, sql string, data *redash.ResultData) string {
	if data == nil || len(data.Rows) == 0 {
		return NoResultsMessage
	}

	sample := data.Rows
	if len(sample) > sampleRows {
		sample = sample[:sampleRows]
	}

	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		s.logger.Printf("[ANSWER] Could not marshal row sample: %v", err)
		return degradedMessage
	}

	prompt := fmt.Sprintf(`Given the SQL query results, provide a clear, natural language answer to the user's question.

USER QUESTION: %s

SQL QUERY: %s

RESULTS (%d total rows):
%s

Provide a concise, human-readable answer. Include:
1. Direct answer to the question
2. Key numbers/stats
3. Any notable patterns

Keep it conversational and helpful.`, question, sql, len(data.Rows), string(sampleJSON))

	response, err := s.llmProvider.Generate(ctx, prompt, llm.WithMaxTokens(1000))
	if err != nil {
		s.logger.Printf("[ANSWER] LLM answer generation failed: %v", err)
		return degradedMessage
	}
	return response
}
