// Package flows provides the stage executors of the data analysis wizard:
// cleaning, exploratory analysis, analysis suggestion, preprocessing and the
// final analysis. Two closed executor sets exist: canned mock results and
// live results produced by an LLM runtime.
package flows

import "github.com/dusk-indust/datawizard/internal/orchestrator"

// Wizard stages in execution order.
const (
	StageClean orchestrator.Stage = iota
	StageExplore
	StageSuggest
	StageSelect
	StagePreprocess
	StageAnalyze
)

// Stages returns the six wizard stage descriptors.
func Stages() []orchestrator.StageDescriptor {
	return []orchestrator.StageDescriptor{
		{Index: StageClean, Name: "clean", Label: "Data Cleaning"},
		{Index: StageExplore, Name: "explore", Label: "Exploratory Data Analysis"},
		{Index: StageSuggest, Name: "suggest", Label: "Analysis Suggestion"},
		{Index: StageSelect, Name: "select", Label: "Analysis Selection", HumanGate: true},
		{Index: StagePreprocess, Name: "preprocess", Label: "Preprocessing"},
		{Index: StageAnalyze, Name: "analyze", Label: "Analysis & Visualization"},
	}
}

// StageByName looks up a descriptor by its slug.
func StageByName(name string) (orchestrator.StageDescriptor, bool) {
	for _, d := range Stages() {
		if d.Name == name {
			return d, true
		}
	}
	return orchestrator.StageDescriptor{}, false
}
