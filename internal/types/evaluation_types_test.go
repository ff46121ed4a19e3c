package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluationResultNormalize(t *testing.T) {
	r := &EvaluationResult{
		LearningResources: []LearningResource{{Skill: "Solidity"}},
	}
	r.Normalize()

	b, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	for _, key := range []string{"skillMatches", "matchingSkills", "missingSkills", "strengthAreas", "improvementAreas", "careerSuggestions"} {
		assert.Equal(t, []any{}, decoded[key], "%s 应序列化为空数组", key)
	}
	lr := decoded["learningResources"].([]any)
	require.Len(t, lr, 1)
	assert.Equal(t, []any{}, lr[0].(map[string]any)["resources"])
}
