package usecases

import (
	"context"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
	"github.com/prathap024-ctrl/pdf-rag/internal/domain/ports"
)

// PromptTemplate is rendered with the joined context and the question.
const PromptTemplate = `You are an assistant answering questions about a single PDF document.
Use only the context below. If the context does not contain the answer, say you don't know.
Keep the answer concise.

Context:
{context}

Question: {question}

Answer:`

// RenderPrompt fills PromptTemplate.
func RenderPrompt(question, context string) string {
	return strings.NewReplacer("{context}", context, "{question}", question).Replace(PromptTemplate)
}

// GenerateStage conditions the model on the retrieved context.
type GenerateStage struct {
	llm    ports.LLMService
	logger arbor.ILogger
}

// NewGenerateStage creates the generation node.
func NewGenerateStage(llm ports.LLMService, logger arbor.ILogger) *GenerateStage {
	return &GenerateStage{llm: llm, logger: logger}
}

func (s *GenerateStage) Name() string { return "generate" }

// Run joins non-blank chunks in rank order and calls the model once.
// An empty context fails with ErrNoContext before any model call.
func (s *GenerateStage) Run(ctx context.Context, state entities.PipelineState) (entities.StateUpdate, error) {
	texts := make([]string, 0, len(state.Context))
	for _, c := range state.Context {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		texts = append(texts, c.Text)
	}
	if len(texts) == 0 {
		return entities.StateUpdate{}, entities.ErrNoContext
	}

	prompt := RenderPrompt(state.Question, strings.Join(texts, "\n"))
	answer, err := s.llm.Generate(ctx, prompt)
	if err != nil {
		return entities.StateUpdate{}, entities.Upstream("generating answer", err)
	}

	s.logger.Debug().
		Str("model", s.llm.ModelName()).
		Int("chunks", len(texts)).
		Int("prompt_chars", len(prompt)).
		Msg("Generated answer")

	return entities.StateUpdate{Answer: &answer}, nil
}
