package safety

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect_NoFlags(t *testing.T) {
	result := Detect("how do I prepare for my lab tests?")
	require.False(t, result.HasRedFlags)
	require.Empty(t, result.RedFlags)
	require.Empty(t, result.EscalationAdvice)
}

func TestDetect_SingleFlag(t *testing.T) {
	result := Detect("I have chest pain since this morning")
	require.True(t, result.HasRedFlags)
	require.Equal(t, []string{"Chest pain or pressure"}, result.RedFlags)
	require.Equal(t, EscalationAdvice, result.EscalationAdvice)
}

func TestDetect_CollectsAllMatches(t *testing.T) {
	result := Detect("racing heart, drenching sweats and I nearly passed out")
	require.True(t, result.HasRedFlags)
	require.Contains(t, result.RedFlags, "Palpitations or racing heart")
	require.Contains(t, result.RedFlags, "Profuse sweating")
	require.Contains(t, result.RedFlags, "Fainting or loss of consciousness")
}

func TestDetect_CaseInsensitive(t *testing.T) {
	result := Detect("SHORTNESS OF BREATH")
	require.True(t, result.HasRedFlags)
	require.Equal(t, []string{"Difficulty breathing"}, result.RedFlags)
}

func TestDetect_SelfHarmVariants(t *testing.T) {
	for _, message := range []string{"feeling suicidal", "thoughts of suicide", "I want to hurt myself"} {
		result := Detect(message)
		require.True(t, result.HasRedFlags, message)
		require.Contains(t, result.RedFlags, "Self-harm thoughts")
	}
}
