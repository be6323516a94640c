package splitter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconv/pkg/protocol"
)

func TestParams_SeparatorsForRecursive(t *testing.T) {
	form := DefaultForm()
	form.Separators = `\n,--`

	params, err := form.Params()
	require.NoError(t, err)
	assert.Equal(t, []string{"\n", "--"}, params.Separators)
	assert.Equal(t, "recursive", params.SplitterType)
	assert.Equal(t, 1000, params.ChunkSize)
	assert.Equal(t, 200, params.ChunkOverlap)
	assert.True(t, params.KeepSeparator)
}

func TestParams_NoSeparatorsKeyForOtherTypes(t *testing.T) {
	form := DefaultForm()
	form.Type = "fixed"
	form.Separators = `\n,--`

	params, err := form.Params()
	require.NoError(t, err)
	assert.Nil(t, params.Separators)

	data, err := json.Marshal(params)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "separators")
	assert.Contains(t, fields, "keep_separator")
}

func TestParams_BlankSeparatorsOmitted(t *testing.T) {
	form := DefaultForm()
	form.Type = protocol.SplitterCharacter
	form.Separators = "   "

	params, err := form.Params()
	require.NoError(t, err)
	assert.Nil(t, params.Separators)
}

func TestParams_InvalidNumbers(t *testing.T) {
	form := DefaultForm()
	form.ChunkSize = "abc"
	_, err := form.Params()
	assert.ErrorIs(t, err, ErrInvalidNumber)

	form = DefaultForm()
	form.ChunkOverlap = ""
	_, err = form.Params()
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestParseSeparators(t *testing.T) {
	assert.Equal(t, []string{"\n\n", "\n", "", ""}, ParseSeparators(`\n\n, \n,  , `))
	assert.Equal(t, []string{"."}, ParseSeparators("."))
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1000", 1000, false},
		{" 42 ", 42, false},
		{"12px", 12, false},
		{"-5", -5, false},
		{"+7", 7, false},
		{"", 0, true},
		{"x1", 0, true},
		{"-", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseInt(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidNumber, "ParseInt(%q)", tt.in)
			continue
		}
		require.NoError(t, err, "ParseInt(%q)", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestShowsSeparators(t *testing.T) {
	assert.True(t, ShowsSeparators("recursive"))
	assert.True(t, ShowsSeparators("character"))
	assert.False(t, ShowsSeparators("token"))
	assert.False(t, ShowsSeparators("markdown"))
	assert.False(t, ShowsSeparators(""))
}

func TestNextType(t *testing.T) {
	assert.Equal(t, "character", NextType("recursive"))
	assert.Equal(t, "recursive", NextType("python"))
	assert.Equal(t, "recursive", NextType("unknown"))
}
