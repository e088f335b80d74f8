package flows

import (
	"strings"

	"github.com/dusk-indust/datawizard/internal/orchestrator"
)

// CleaningResult is the output of the clean stage.
type CleaningResult struct {
	CleanedDataset string `json:"cleanedDataset" yaml:"cleaned_dataset" jsonschema:"A summary of what the cleaned dataset with imputed values would look like."`
	Report         string `json:"report" yaml:"report" jsonschema:"A report summarizing the missing data imputation process and the techniques used."`
}

// EDAResult is the output of the explore stage.
type EDAResult struct {
	Report string `json:"edaReport" yaml:"eda_report" jsonschema:"A human-readable EDA report summarizing key statistics, distributions, and correlations in the dataset."`
}

// Suggestions is the output of the suggest stage. Each suggested type is a
// candidate at the selection gate.
type Suggestions struct {
	Types     []string `json:"suggestedAnalysisTypes" yaml:"types" jsonschema:"Suggested analysis types (e.g. regression, classification, clustering) suitable for the dataset."`
	Reasoning string   `json:"reasoning" yaml:"reasoning" jsonschema:"Why each suggested analysis type is appropriate for the dataset."`
}

// Candidates offers one gate option per suggested type, each described by
// the shared reasoning.
func (s Suggestions) Candidates() []orchestrator.Candidate {
	out := make([]orchestrator.Candidate, 0, len(s.Types))
	for _, t := range s.Types {
		out = append(out, orchestrator.Candidate{Label: t, Description: s.Reasoning})
	}
	return out
}

// PreprocessingResult is the output of the preprocess stage.
type PreprocessingResult struct {
	Steps string `json:"preprocessingSteps" yaml:"steps" jsonschema:"Preprocessing steps (scaling, encoding, feature selection) tailored to the selected analysis type."`
}

// AnalysisResult is the output of the analyze stage.
type AnalysisResult struct {
	Results       string `json:"analysisResults" yaml:"results" jsonschema:"A structured summary of the key insights and interpretations from the analysis."`
	Visualization string `json:"visualization" yaml:"visualization" jsonschema:"A description of the chart including its type and the insights it conveys."`
}

// Visualization chart types.
const (
	ChartScatter = "scatter plot"
	ChartBar     = "bar chart"
)

// VisualizationFor maps an analysis type to the chart used to present it.
func VisualizationFor(analysisType string) string {
	switch strings.ToLower(strings.TrimSpace(analysisType)) {
	case "regression", "clustering":
		return ChartScatter
	default:
		return ChartBar
	}
}

// ModelExplanation is a one-line explanation of the model family behind an
// analysis type.
func ModelExplanation(analysisType string) string {
	switch strings.ToLower(strings.TrimSpace(analysisType)) {
	case "regression":
		return "Regression models the relationship between a numeric target and the predictor columns."
	case "classification":
		return "Classification predicts a categorical label from the remaining columns."
	case "clustering":
		return "Clustering groups similar records together without a target column."
	default:
		return analysisType + " applied to the preprocessed dataset."
	}
}
