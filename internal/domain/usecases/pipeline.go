package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/prathap024-ctrl/pdf-rag/internal/domain/entities"
)

// Node is one step of the answer pipeline. It reads the whole state and
// returns only the fields it produced.
type Node interface {
	Name() string
	Run(ctx context.Context, state entities.PipelineState) (entities.StateUpdate, error)
}

// Pipeline runs its nodes in a fixed order, merging each update into a new
// state value. The first failing node aborts the run.
type Pipeline struct {
	nodes  []Node
	logger arbor.ILogger
}

// NewPipeline builds the retrieve -> generate sequence.
func NewPipeline(retrieve *RetrieveStage, generate *GenerateStage, logger arbor.ILogger) *Pipeline {
	return &Pipeline{nodes: []Node{retrieve, generate}, logger: logger}
}

// Run executes every node and returns the final state.
func (p *Pipeline) Run(ctx context.Context, initial entities.PipelineState) (entities.PipelineState, error) {
	state := initial
	for _, node := range p.nodes {
		if err := ctx.Err(); err != nil {
			return entities.PipelineState{}, fmt.Errorf("%s: %w", node.Name(), err)
		}

		start := time.Now()
		update, err := node.Run(ctx, state)
		if err != nil {
			p.logger.Debug().Str("node", node.Name()).Err(err).Msg("Pipeline aborted")
			return entities.PipelineState{}, fmt.Errorf("%s: %w", node.Name(), err)
		}
		state = state.Merge(update)
		p.logger.Trace().Str("node", node.Name()).Dur("elapsed", time.Since(start)).Msg("Pipeline node done")
	}
	return state, nil
}
