package dag

import (
	"context"
	"fmt"

	"github.com/specialistvlad/superbuild/internal/config"
	"github.com/specialistvlad/superbuild/internal/ctxlog"
)

// BuildPlan constructs a complete, validated plan from a config model.
func BuildPlan(ctx context.Context, model *config.Model) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("BuildPlan: Starting graph construction.")

	g := New()
	for _, sp := range model.Subprojects {
		if err := g.Declare(sp); err != nil {
			return nil, err
		}
	}
	logger.Debug("BuildPlan: Node declaration complete.", "node_count", len(model.Subprojects))

	if err := g.AddDeclaredEdges(); err != nil {
		return nil, err
	}
	plan, err := g.Finalize()
	if err != nil {
		return nil, fmt.Errorf("error validating dependency graph: %w", err)
	}
	logger.Debug("BuildPlan: Graph construction successful.", "order", plan.Order())
	return plan, nil
}
