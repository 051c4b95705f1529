package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/kirillkom/claims-processor/internal/core/domain"
)

type modelFake struct {
	mu      sync.Mutex
	respond func(ctx context.Context, call domain.ModelCall) (string, error)
	calls   []domain.ModelCall
}

func (f *modelFake) Generate(ctx context.Context, call domain.ModelCall) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return f.respond(ctx, call)
}

func (f *modelFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func staticModel(response string, err error) *modelFake {
	return &modelFake{respond: func(context.Context, domain.ModelCall) (string, error) {
		return response, err
	}}
}

// scriptedModel answers by operation and by the filename embedded in the prompt.
type script map[string]map[string]string

func scriptedModel(s script) *modelFake {
	return &modelFake{respond: func(_ context.Context, call domain.ModelCall) (string, error) {
		for filename, response := range s[call.Operation] {
			if strings.Contains(call.Prompt, "Filename: "+filename+"\n") {
				return response, nil
			}
		}
		return `{"document_type":"unknown","confidence":0.1}`, nil
	}}
}

func testRules() domain.ClaimRules {
	return domain.DefaultClaimRules()
}

func testLimits() domain.PipelineLimits {
	return domain.PipelineLimits{}.Normalize()
}

func newTestPipeline(model *modelFake, limits domain.PipelineLimits) *ProcessClaimUseCase {
	rules := testRules()
	return NewProcessClaimUseCase(
		NewClassifyUseCase(model, rules, limits),
		NewAgentSet(model, rules, limits),
		NewValidateUseCase(rules),
		NewDecideUseCase(rules),
		limits,
	)
}

func hasWarning(warnings []string, prefix string) bool {
	for _, warning := range warnings {
		if strings.HasPrefix(warning, prefix) {
			return true
		}
	}
	return false
}
