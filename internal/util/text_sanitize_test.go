package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTextRemovesNulAndControls(t *testing.T) {
	require.Equal(t, "abcd\n\txy", SanitizeText("ab\x00cd\x01\x02\n\txy"))
}

func TestSanitizeTextEmpty(t *testing.T) {
	require.Equal(t, "", SanitizeText(""))
	require.Equal(t, "", SanitizeText(" \x00 "))
}

func TestSanitizeTextExtractionArtifacts(t *testing.T) {
	require.Equal(t, "Intro", SanitizeText("\uFEFFIntro\uFFFD"))
	require.Equal(t, "a\nb", SanitizeText("a\r\nb"))
	require.Equal(t, "a\n\nb", SanitizeText("a\n\n\n\n\nb"))
	require.Equal(t, "a\n \nb", SanitizeText("a\n \n\n\nb"))
}
