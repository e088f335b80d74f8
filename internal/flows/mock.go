package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// Mock results reproduce the wizard's demo output.
const (
	mockCleaningReport = "Handled 27 missing values in 'age' column using median imputation. Removed 3 duplicate rows."
	mockCleanedDataset = "1051 rows with no missing values in 'age'; all other columns unchanged."
	mockEDAReport      = "Dataset contains 10 columns and 1054 rows. Key columns include 'age', 'income', and 'purchase_status'. 'income' is right-skewed. Strong positive correlation between 'age' and 'income'."
	mockReasoning      = "Regression can predict 'income' from 'age'. Classification can predict 'purchase_status'. Clustering can find customer segments."
	mockVisualization  = "A bar chart showing feature importance. 'Income' is the most important feature, followed by 'age'."
)

var mockTypes = []string{"Regression", "Classification", "Clustering"}

// mockDelays are the per-stage pauses of the demo, scaled by the configured
// base delay.
var mockDelays = map[orchestrator.Stage]float64{
	StageClean:      1.5,
	StageExplore:    2,
	StageSuggest:    2,
	StagePreprocess: 1.5,
	StageAnalyze:    2.5,
}

// MockExecutors returns the mock executor set. Each stage waits for its
// share of base before answering; a zero base answers immediately.
func MockExecutors(base time.Duration) map[orchestrator.Stage]orchestrator.StageExecutor {
	canned := map[orchestrator.Stage]func(in orchestrator.StageInput) any{
		StageClean: func(orchestrator.StageInput) any {
			return CleaningResult{CleanedDataset: mockCleanedDataset, Report: mockCleaningReport}
		},
		StageExplore: func(orchestrator.StageInput) any {
			return EDAResult{Report: mockEDAReport}
		},
		StageSuggest: func(orchestrator.StageInput) any {
			return Suggestions{Types: append([]string(nil), mockTypes...), Reasoning: mockReasoning}
		},
		StagePreprocess: func(in orchestrator.StageInput) any {
			return PreprocessingResult{
				Steps: fmt.Sprintf("For %s: Standard scaling applied to numerical features. One-hot encoding applied to categorical features.", in.Choice),
			}
		},
		StageAnalyze: func(in orchestrator.StageInput) any {
			return AnalysisResult{
				Results:       fmt.Sprintf("The %s model achieved an accuracy of 92%%. Key predictors were 'income' and 'age'.", in.Choice),
				Visualization: mockVisualization,
			}
		},
	}

	out := make(map[orchestrator.Stage]orchestrator.StageExecutor, len(canned))
	for stage, produce := range canned {
		delay := time.Duration(float64(base) * mockDelays[stage])
		out[stage] = orchestrator.ExecutorFunc(func(ctx context.Context, in orchestrator.StageInput) (any, error) {
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			return produce(in), nil
		})
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
