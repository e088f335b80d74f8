package flows

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"text/template"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/dusk-indust/datawizard/internal/ai"
	"github.com/dusk-indust/datawizard/internal/dataset"
	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").Option("missingkey=error").ParseFS(promptFS, "prompts/*.tmpl"))

// PromptData holds every variable a stage prompt can reference.
type PromptData struct {
	Dataset            string
	DatasetDescription string
	DatasetSample      string
	AnalysisType       string
	ModelExplanation   string
	PreprocessingSteps string
	VisualizationType  string
}

// LiveConfig configures the live executor set.
type LiveConfig struct {
	Runtime     ai.Runtime
	Model       string
	MaxTokens   int
	Temperature float64

	// SampleBytes bounds the raw dataset excerpt sent to the model.
	SampleBytes int
	Profile     dataset.Options
}

const systemPrompt = "You answer with a single JSON object and nothing else. The object must conform to this JSON schema:\n%s"

// liveFlow renders one stage prompt, calls the runtime once and decodes the
// answer into T.
type liveFlow[T any] struct {
	name     string
	cfg      LiveConfig
	schema   string
	resolved *jsonschema.Resolved
	data     func(in orchestrator.StageInput) (PromptData, error)
}

func newLiveFlow[T any](name string, cfg LiveConfig, data func(orchestrator.StageInput) (PromptData, error)) (*liveFlow[T], error) {
	schema, resolved, err := responseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("flows: %s: schema: %w", name, err)
	}
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("flows: %s: marshal schema: %w", name, err)
	}
	return &liveFlow[T]{name: name, cfg: cfg, schema: string(raw), resolved: resolved, data: data}, nil
}

func (f *liveFlow[T]) Execute(ctx context.Context, in orchestrator.StageInput) (any, error) {
	data, err := f.data(in)
	if err != nil {
		return nil, fmt.Errorf("flows: %s: %w", f.name, err)
	}
	prompt, err := RenderPrompt(f.name, data)
	if err != nil {
		return nil, err
	}

	resp, err := f.cfg.Runtime.Generate(ctx, ai.GenerateRequest{
		Model: f.cfg.Model,
		Messages: []ai.Message{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, f.schema)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   f.cfg.MaxTokens,
		Temperature: f.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("flows: %s: %w", f.name, err)
	}

	out, err := decodeResponse[T](f.name, f.resolved, resp.Text())
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RenderPrompt renders the named stage prompt.
func RenderPrompt(name string, data PromptData) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return "", fmt.Errorf("flows: render %s prompt: %w", name, err)
	}
	return buf.String(), nil
}

var errNoChoice = errors.New("no analysis type selected")

// LiveExecutors returns the live executor set.
func LiveExecutors(cfg LiveConfig) (map[orchestrator.Stage]orchestrator.StageExecutor, error) {
	if cfg.Runtime == nil {
		return nil, errors.New("flows: live executors need a runtime")
	}
	if cfg.Model == "" {
		return nil, errors.New("flows: live executors need a model")
	}

	describe := func(in orchestrator.StageInput) string {
		return dataset.Describe("", in.Artifact, cfg.Profile)
	}

	clean, err := newLiveFlow[CleaningResult]("clean", cfg, func(in orchestrator.StageInput) (PromptData, error) {
		return PromptData{Dataset: dataset.Sample(in.Artifact, cfg.SampleBytes)}, nil
	})
	if err != nil {
		return nil, err
	}

	explore, err := newLiveFlow[EDAResult]("explore", cfg, func(in orchestrator.StageInput) (PromptData, error) {
		sample := dataset.SampleRows(in.Artifact, 10)
		return PromptData{
			DatasetDescription: describe(in),
			DatasetSample:      dataset.Sample([]byte(sample), cfg.SampleBytes),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	suggest, err := newLiveFlow[Suggestions]("suggest", cfg, func(in orchestrator.StageInput) (PromptData, error) {
		return PromptData{DatasetDescription: describe(in)}, nil
	})
	if err != nil {
		return nil, err
	}

	preprocess, err := newLiveFlow[PreprocessingResult]("preprocess", cfg, func(in orchestrator.StageInput) (PromptData, error) {
		if in.Choice == "" {
			return PromptData{}, errNoChoice
		}
		return PromptData{DatasetDescription: describe(in), AnalysisType: in.Choice}, nil
	})
	if err != nil {
		return nil, err
	}

	analyze, err := newLiveFlow[AnalysisResult]("analyze", cfg, func(in orchestrator.StageInput) (PromptData, error) {
		if in.Choice == "" {
			return PromptData{}, errNoChoice
		}
		prep, ok := in.Prior[StagePreprocess].(PreprocessingResult)
		if !ok {
			return PromptData{}, errors.New("missing preprocessing result")
		}
		return PromptData{
			DatasetDescription: describe(in),
			AnalysisType:       in.Choice,
			PreprocessingSteps: prep.Steps,
			ModelExplanation:   ModelExplanation(in.Choice),
			VisualizationType:  VisualizationFor(in.Choice),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return map[orchestrator.Stage]orchestrator.StageExecutor{
		StageClean:      clean,
		StageExplore:    explore,
		StageSuggest:    suggest,
		StagePreprocess: preprocess,
		StageAnalyze:    analyze,
	}, nil
}
