package flows

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse(t *testing.T) {
	_, resolved, err := responseSchema[Suggestions]()
	require.NoError(t, err)

	tests := []struct {
		name    string
		text    string
		wantErr bool
		want    []string
	}{
		{"plain", `{"suggestedAnalysisTypes": ["A", "B"], "reasoning": "r"}`, false, []string{"A", "B"}},
		{"fenced", "```json\n{\"suggestedAnalysisTypes\": [\"A\"], \"reasoning\": \"r\"}\n```", false, []string{"A"}},
		{"extra keys", `{"suggestedAnalysisTypes": ["A"], "reasoning": "r", "confidence": 0.9}`, false, []string{"A"}},
		{"missing field", `{"suggestedAnalysisTypes": ["A"]}`, true, nil},
		{"empty list", `{"suggestedAnalysisTypes": [], "reasoning": "r"}`, true, nil},
		{"null list", `{"suggestedAnalysisTypes": null, "reasoning": "r"}`, true, nil},
		{"empty string", `{"suggestedAnalysisTypes": ["A"], "reasoning": ""}`, true, nil},
		{"wrong type", `{"suggestedAnalysisTypes": "A", "reasoning": "r"}`, true, nil},
		{"no json", "I cannot help with that.", true, nil},
		{"broken json", `{"suggestedAnalysisTypes": [`, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeResponse[Suggestions]("suggest", resolved, tt.text)
			if tt.wantErr {
				var respErr *ResponseError
				require.ErrorAs(t, err, &respErr)
				assert.Equal(t, "suggest", respErr.Flow)
				assert.Equal(t, tt.text, respErr.Raw)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Types)
		})
	}
}

func TestResponseErrorNoJSON(t *testing.T) {
	_, resolved, err := responseSchema[EDAResult]()
	require.NoError(t, err)

	_, err = decodeResponse[EDAResult]("explore", resolved, "nothing here")
	assert.ErrorIs(t, err, errNoJSON)
}

func TestResponseErrorRawKeepsWholeRunes(t *testing.T) {
	_, resolved, err := responseSchema[EDAResult]()
	require.NoError(t, err)

	// "é" is two bytes, so an odd prefix pushes a rune across the cap
	text := "x" + strings.Repeat("é", maxRawResponse)
	_, err = decodeResponse[EDAResult]("explore", resolved, text)
	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.True(t, utf8.ValidString(respErr.Raw))
	assert.Len(t, respErr.Raw, maxRawResponse-1)
}

func TestRenderPrompt(t *testing.T) {
	text, err := RenderPrompt("preprocess", PromptData{DatasetDescription: "3 columns", AnalysisType: "Clustering"})
	require.NoError(t, err)
	assert.Contains(t, text, "3 columns")
	assert.Contains(t, text, "Clustering")

	_, err = RenderPrompt("missing", PromptData{})
	assert.Error(t, err)
}
