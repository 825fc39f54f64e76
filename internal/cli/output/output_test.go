package output_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscope-dev/sqlscope/internal/cli/output"
	"github.com/sqlscope-dev/sqlscope/internal/cli/testutil"
	"github.com/sqlscope-dev/sqlscope/pkg/validator"
)

func TestRenderer_AutoResolvesToJSONOffTerminal(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeAuto)
	assert.Equal(t, output.ModeJSON, tr.Mode())
}

func TestRenderer_ValidationResultJSON(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeJSON)

	res := validator.New().Validate("SELECT a, FROM t")
	require.NoError(t, tr.ValidationResult(res))

	var got struct {
		Valid  bool `json:"valid"`
		Errors []struct {
			Tag string `json:"tag"`
		} `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
	assert.False(t, got.Valid)
	require.NotEmpty(t, got.Errors)
	assert.Equal(t, "syntax_trailing_delimiter", got.Errors[0].Tag)
}

func TestRenderer_ValidationResultText(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText)

	res := validator.New().Validate("SELECT a, FROM t")
	require.NoError(t, tr.ValidationResult(res))

	plain := testutil.StripANSI(tr.Output())
	assert.Contains(t, plain, "error(s)")
	assert.Contains(t, plain, "syntax_trailing_delimiter")
	assert.Contains(t, plain, "TAG")
}

func TestRenderer_ValidResultText(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText)

	res := validator.New().Validate("SELECT id FROM account")
	require.NoError(t, tr.ValidationResult(res))

	plain := testutil.StripANSI(tr.Output())
	assert.Contains(t, plain, "valid")
	assert.Contains(t, plain, "signature SELECT-FROM")
}

func TestRenderer_Error(t *testing.T) {
	tr := testutil.NewTestRenderer(output.ModeText)
	tr.Error("something broke: %v", "badly")

	plain := testutil.StripANSI(tr.ErrorOutput())
	assert.Contains(t, plain, "Error: something broke: badly")
	assert.Empty(t, tr.Output())
}
