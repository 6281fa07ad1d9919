package schema

import (
	"errors"
	"testing"

	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemasCompile(t *testing.T) {
	for _, name := range []string{QuerySet, Answer} {
		_, err := lookup(name)
		require.NoError(t, err, name)
		raw, err := Raw(name)
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"required"`)
	}
	_, err := Raw("nope")
	assert.Error(t, err)
}

func TestValidateQuerySet(t *testing.T) {
	require.NoError(t, Validate(QuerySet, []byte(`{"queries":["a","b"],"is_appropriate":true,"reason":""}`)))

	err := Validate(QuerySet, []byte(`{"queries":["a"],"reason":"x"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))
	var sv *models.SchemaViolationError
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, QuerySet, sv.Schema)
	assert.NotEmpty(t, sv.Problems)
}

func TestValidateAnswerRejectsUnknownConfidence(t *testing.T) {
	err := Validate(Answer, []byte(`{"summary":"s","key_points":[],"sources_used":[],"confidence":"certain"}`))
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))

	err = Validate(Answer, []byte(`{"summary":"s","key_points":["1","2","3","4","5","6"],"sources_used":[],"confidence":"low"}`))
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))
}

func TestValidateNotJSON(t *testing.T) {
	err := Validate(Answer, []byte(`summary: nope`))
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))
}

func TestDecodeUnwrapsFencedReply(t *testing.T) {
	reply := "```json\n{\"summary\":\"Open 9-17\",\"key_points\":[\"Mon-Fri\"],\"sources_used\":[\"https://a\"],\"confidence\":\"high\"}\n```"
	var ans models.SynthesizedAnswer
	require.NoError(t, Decode(Answer, []byte(reply), &ans))
	assert.Equal(t, "Open 9-17", ans.Summary)
	assert.Equal(t, models.ConfidenceHigh, ans.Confidence)
	assert.Equal(t, []string{"https://a"}, ans.SourcesUsed)
}

func TestDecodeGarbageIsViolation(t *testing.T) {
	var qs models.GeneratedQuerySet
	err := Decode(QuerySet, []byte("I cannot help with that."), &qs)
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))
}

func TestDecodeRejectsAnythingButOneJSONValue(t *testing.T) {
	valid := `{"queries":["a"],"is_appropriate":true,"reason":""}`
	cases := map[string]string{
		"prose around":      "Sure! Here is the answer: " + valid + " hope this helps}}",
		"trailing garbage":  valid + " }}",
		"two values":        valid + valid,
		"truncated":         `{"queries":["a"],"is_appropriate":true`,
		"text before fence": "Here:\n```json\n" + valid + "\n```",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			var qs models.GeneratedQuerySet
			err := Decode(QuerySet, []byte(reply), &qs)
			var sv *models.SchemaViolationError
			require.ErrorAs(t, err, &sv)
			assert.Equal(t, QuerySet, sv.Schema)
		})
	}

	var qs models.GeneratedQuerySet
	require.NoError(t, Decode(QuerySet, []byte("\uFEFF  "+valid+"\n"), &qs))
	assert.Equal(t, []string{"a"}, qs.Queries)
}
