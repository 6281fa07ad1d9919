package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	replies []string
	err     error
	reqs    []models.GenerationRequest
}

func (r *recorder) Generate(ctx context.Context, req models.GenerationRequest) ([]byte, error) {
	r.reqs = append(r.reqs, req)
	if r.err != nil {
		return nil, r.err
	}
	reply := r.replies[0]
	r.replies = r.replies[1:]
	return []byte(reply), nil
}

var _ provider.Generator = (*recorder)(nil)

func TestGenerateReturnsQueries(t *testing.T) {
	rec := &recorder{replies: []string{`{"queries":[" library hours ", "", "library opening times", "extra one"],"is_appropriate":true,"reason":""}`}}
	qg := NewQueryGenerator(rec, 2, zaptest.NewLogger(t))

	set, err := qg.Generate(context.Background(), "When is the library open?", models.LanguageCzech)
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Equal(t, []string{"library hours", "library opening times"}, set.Queries)

	require.Len(t, rec.reqs, 1)
	req := rec.reqs[0]
	assert.Equal(t, "query_set", req.Name)
	assert.Contains(t, string(req.Schema), "is_appropriate")
	assert.Contains(t, req.System(), "Czech")
	assert.Contains(t, req.Messages[1].Content, "When is the library open?")
}

func TestGenerateInappropriateIsNotUsable(t *testing.T) {
	rec := &recorder{replies: []string{`{"queries":["home address of John Doe"],"is_appropriate":false,"reason":"personal data"}`}}
	set, err := NewQueryGenerator(rec, 3, nil).Generate(context.Background(), "Where does John Doe live?", models.LanguageAuto)
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.False(t, set.Usable())
	assert.Empty(t, set.Queries)
	assert.Equal(t, "personal data", set.Reason)
	assert.Nil(t, set.SearchQueries(models.LanguageAuto))
}

func TestGenerateSchemaViolation(t *testing.T) {
	rec := &recorder{replies: []string{`{"queries":"not a list","is_appropriate":true}`}}
	_, err := NewQueryGenerator(rec, 3, nil).Generate(context.Background(), "q", models.LanguageEnglish)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))
}

func TestGenerateUpstreamError(t *testing.T) {
	rec := &recorder{err: errors.New("connection reset")}
	_, err := NewQueryGenerator(rec, 3, nil).Generate(context.Background(), "q", models.LanguageEnglish)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstream))

	_, err = NewQueryGenerator(rec, 3, nil).Generate(context.Background(), "  ", models.LanguageEnglish)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func sampleSources() []models.Source {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []models.Source{
		models.NewSource("https://a.example.com/hours", models.SourceKindHTML, "Hours", "Open 9-17 "+strings.Repeat("x", 200), at),
		models.NewSource("https://b.example.com/doc.pdf", models.SourceKindPDF, "Report", "Annual report", at),
	}
}

func TestSynthesizeFiltersUnknownCitations(t *testing.T) {
	rec := &recorder{replies: []string{`{"summary":"Open 9-17.","key_points":["Weekdays"],"sources_used":["https://a.example.com/hours","https://evil.example.com","https://a.example.com/hours"],"confidence":"medium"}`}}
	s := NewSynthesizer(rec, 50, zaptest.NewLogger(t))

	ans, err := s.Synthesize(context.Background(), sampleSources(), "opening hours", models.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com/hours"}, ans.SourcesUsed)
	assert.Equal(t, []string{"https://evil.example.com"}, ans.RejectedSources)
	assert.Equal(t, models.ConfidenceMedium, ans.Confidence)

	user := rec.reqs[0].Messages[1].Content
	assert.Contains(t, user, "[1]\nURL: https://a.example.com/hours\nTitle: Hours\nKind: html\nLength: 210")
	assert.Contains(t, user, "[2]\nURL: https://b.example.com/doc.pdf")
	assert.Contains(t, user, "[truncated]")
	assert.NotContains(t, user, strings.Repeat("x", 60))
	assert.Equal(t, "answer", rec.reqs[0].Name)
}

func TestSynthesizeWithNoSourcesForcesLowConfidence(t *testing.T) {
	rec := &recorder{replies: []string{`{"summary":"No information was found.","key_points":[],"sources_used":["https://made-up.example.com"],"confidence":"high"}`}}
	ans, err := NewSynthesizer(rec, 0, nil).Synthesize(context.Background(), nil, "opening hours", models.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, rec.reqs, 1)
	assert.Contains(t, rec.reqs[0].Messages[1].Content, "No sources were retrieved.")
	assert.Equal(t, models.ConfidenceLow, ans.Confidence)
	assert.Empty(t, ans.SourcesUsed)
	assert.NotNil(t, ans.SourcesUsed)
}

func TestSynthesizeWithNoSourcesStatesNoInformation(t *testing.T) {
	rec := &recorder{replies: []string{
		`{"summary":"The library is open 9-17.","key_points":[],"sources_used":[],"confidence":"medium"}`,
		`{"summary":"No information was found in the retrieved sources.","key_points":[],"sources_used":[],"confidence":"low"}`,
		`{"summary":"Knihovna je otevřena 9-17.","key_points":[],"sources_used":[],"confidence":"low"}`,
	}}
	s := NewSynthesizer(rec, 0, nil)

	ans, err := s.Synthesize(context.Background(), nil, "opening hours", models.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "No information was found in the retrieved sources. The library is open 9-17.", ans.Summary)

	ans, err = s.Synthesize(context.Background(), nil, "opening hours", models.LanguageAuto)
	require.NoError(t, err)
	assert.Equal(t, "No information was found in the retrieved sources.", ans.Summary)

	ans, err = s.Synthesize(context.Background(), nil, "otevírací doba", models.LanguageCzech)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ans.Summary, "V získaných zdrojích nebyly nalezeny žádné informace."))
	assert.Contains(t, ans.Summary, "Knihovna je otevřena 9-17.")
}

func TestSynthesizeWithSourcesKeepsSummary(t *testing.T) {
	rec := &recorder{replies: []string{`{"summary":"Open 9-17.","key_points":[],"sources_used":[],"confidence":"medium"}`}}
	ans, err := NewSynthesizer(rec, 0, nil).Synthesize(context.Background(), sampleSources(), "opening hours", models.LanguageEnglish)
	require.NoError(t, err)
	assert.Equal(t, "Open 9-17.", ans.Summary)
}

func TestSynthesizeSchemaViolation(t *testing.T) {
	rec := &recorder{replies: []string{`{"summary":"x","key_points":[],"sources_used":[],"confidence":"sure"}`}}
	_, err := NewSynthesizer(rec, 0, nil).Synthesize(context.Background(), sampleSources(), "q", models.LanguageEnglish)
	assert.True(t, errors.Is(err, models.ErrSchemaViolation))
}
