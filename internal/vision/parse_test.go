package vision

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReading_FlatJSON(t *testing.T) {
	text := "```json\n{\"systolic\": 120, \"diastolic\": 80, \"pulse\": 72}\n```"

	ext, err := ExtractReading(text)
	require.NoError(t, err)
	require.NotNil(t, ext.Systolic)
	assert.Equal(t, 120, *ext.Systolic)
	assert.Equal(t, 80, *ext.Diastolic)
	assert.Equal(t, 72, *ext.Pulse)
	assert.Empty(t, ext.Explanation)
}

func TestExtractReading_NestedJSON(t *testing.T) {
	text := "```json\n" +
		`{"comment": "Clear display", "explanation": "Read 118 left of SYS", "data": {"systolic": 118, "diastolic": 76, "pulse": null}}` +
		"\n```"

	ext, err := ExtractReading(text)
	require.NoError(t, err)
	assert.Equal(t, 118, *ext.Systolic)
	assert.Equal(t, 76, *ext.Diastolic)
	assert.Nil(t, ext.Pulse, "explicit null means not readable, not an error")
	assert.Equal(t, "Clear display", ext.Comment)
	assert.Equal(t, "Read 118 left of SYS", ext.Explanation)
}

func TestExtractReading_GenericFence(t *testing.T) {
	text := "Here is the result:\n```\n{\"systolic\": 135, \"diastolic\": 88, \"pulse\": 64}\n```\nValues read from the display."

	ext, err := ExtractReading(text)
	require.NoError(t, err)
	assert.Equal(t, 135, *ext.Systolic)
	// Free text around the fence becomes the explanation.
	assert.Contains(t, ext.Explanation, "Here is the result")
	assert.Contains(t, ext.Explanation, "Values read from the display")
}

func TestExtractReading_BareJSONNoFence(t *testing.T) {
	ext, err := ExtractReading(`{"systolic": 120, "diastolic": 80, "pulse": 72}`)
	require.NoError(t, err)
	assert.Equal(t, 120, *ext.Systolic)
	assert.Equal(t, 80, *ext.Diastolic)
	assert.Equal(t, 72, *ext.Pulse)
}

func TestExtractReading_UnterminatedFence(t *testing.T) {
	ext, err := ExtractReading("```json\n{\"systolic\": 110, \"diastolic\": 70, \"pulse\": 60}")
	require.NoError(t, err)
	assert.Equal(t, 110, *ext.Systolic)
}

func TestExtractReading_StringCoercion(t *testing.T) {
	ext, err := ExtractReading(`{"systolic": "120", "diastolic": "80", "pulse": "72"}`)
	require.NoError(t, err)
	assert.Equal(t, 120, *ext.Systolic)
	assert.Equal(t, 80, *ext.Diastolic)
	assert.Equal(t, 72, *ext.Pulse)
}

func TestExtractReading_LabeledFallback(t *testing.T) {
	ext, err := ExtractReading("SYS: 130 DIA: 85 PUL: 70")
	require.NoError(t, err)
	assert.Equal(t, 130, *ext.Systolic)
	assert.Equal(t, 85, *ext.Diastolic)
	assert.Equal(t, 70, *ext.Pulse)
}

func TestExtractReading_LabeledFallbackCaseInsensitive(t *testing.T) {
	ext, err := ExtractReading("The display shows sys 124, dia 79 and pul 66.")
	require.NoError(t, err)
	assert.Equal(t, 124, *ext.Systolic)
	assert.Equal(t, 79, *ext.Diastolic)
	assert.Equal(t, 66, *ext.Pulse)
}

func TestExtractReading_PositionalFallback(t *testing.T) {
	ext, err := ExtractReading("The monitor shows 122 over 81 with a heart rate of 68.")
	require.NoError(t, err)
	assert.Equal(t, 122, *ext.Systolic)
	assert.Equal(t, 81, *ext.Diastolic)
	assert.Equal(t, 68, *ext.Pulse)
}

func TestExtractReading_FallbackFillsMissingJSONFields(t *testing.T) {
	// The fenced JSON answers only systolic; the prose carries the rest.
	text := "```json\n{\"systolic\": 140}\n```\nI could also make out DIA: 90 and PUL: 75 on the display."

	ext, err := ExtractReading(text)
	require.NoError(t, err)
	assert.Equal(t, 140, *ext.Systolic)
	assert.Equal(t, 90, *ext.Diastolic)
	assert.Equal(t, 75, *ext.Pulse)
}

func TestExtractReading_NoNumbersFails(t *testing.T) {
	text := "I cannot read any values from this image."

	_, err := ExtractReading(text)
	require.Error(t, err)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, text, parseErr.Text)
}

func TestExtractReading_InvalidJSONNoFallbackNumbersFails(t *testing.T) {
	_, err := ExtractReading("```json\n{not json at all}\n```")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Error(t, parseErr.Err)
}

func TestExtractReading_ExplanationTruncated(t *testing.T) {
	long := strings.Repeat("x", 2*maxExplanationLen)
	text := long + "\n```json\n{\"systolic\": 120, \"diastolic\": 80, \"pulse\": 72}\n```"

	ext, err := ExtractReading(text)
	require.NoError(t, err)
	assert.Len(t, ext.Explanation, maxExplanationLen)
}

func TestExtractReading_ExplicitExplanationWins(t *testing.T) {
	text := "outside text\n```json\n" +
		`{"explanation": "from the json", "systolic": 120, "diastolic": 80, "pulse": 72}` +
		"\n```"

	ext, err := ExtractReading(text)
	require.NoError(t, err)
	assert.Equal(t, "from the json", ext.Explanation)
}
