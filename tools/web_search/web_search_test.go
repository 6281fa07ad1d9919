package web_search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/mohammad-safakhou/aisearch/config"
	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	aimodels "github.com/mohammad-safakhou/aisearch/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/brave"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/google"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/models"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/serper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSearcher struct {
	results map[string][]string
	err     error
	asked   []int
}

func (f *fakeSearcher) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	f.asked = append(f.asked, k)
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Result
	for _, u := range f.results[q] {
		out = append(out, models.Result{URL: u})
	}
	return out, nil
}

func queries(texts ...string) []aimodels.SearchQuery {
	out := make([]aimodels.SearchQuery, 0, len(texts))
	for _, t := range texts {
		out = append(out, aimodels.SearchQuery{Text: t, Language: aimodels.LanguageEnglish})
	}
	return out
}

func TestBrokerConcatenatesInQueryOrderWithoutDedup(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]string{
		"a": {"https://x.com/1", "https://x.com/2", "https://x.com/3"},
		"b": {"https://x.com/2", "https://y.com/1"},
	}}
	b := NewBroker(fs, zaptest.NewLogger(t))
	got, err := b.Search(context.Background(), queries("a", "b"), 2, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/1", "https://x.com/2", "https://x.com/2", "https://y.com/1"}, got)
	assert.Equal(t, []int{2, 2}, fs.asked)
}

func TestBrokerExcludesFileLikeBeforeCounting(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]string{
		"a": {"https://x.com/slides.pptx", "https://x.com/a", "https://x.com/data.XLSX", "https://x.com/b", "https://x.com/c"},
	}}
	b := NewBroker(fs, nil)
	got, err := b.Search(context.Background(), queries("a"), 2, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.com/a", "https://x.com/b"}, got)
	assert.Equal(t, []int{4}, fs.asked)
}

func TestBrokerProviderFailureIsUnavailable(t *testing.T) {
	b := NewBroker(&fakeSearcher{err: errors.New("boom")}, nil)
	_, err := b.Search(context.Background(), queries("a"), 5, true)
	assert.True(t, errors.Is(err, aimodels.ErrProviderUnavailable))

	var nilBroker *Broker
	_, err = nilBroker.Search(context.Background(), queries("a"), 5, true)
	assert.True(t, errors.Is(err, aimodels.ErrProviderUnavailable))
}

func TestNewWebSearcherMissingCredentials(t *testing.T) {
	_, err := NewWebSearcher(config.SearchConfig{Provider: "google", GoogleAPIKey: "k"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, aimodels.ErrProviderUnavailable))
	assert.True(t, errors.Is(err, aimodels.ErrConfiguration))

	_, err = NewWebSearcher(config.SearchConfig{Provider: "bing"})
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))

	s, err := NewWebSearcher(config.SearchConfig{Provider: "serper", SerperAPIKey: "k"})
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestIsFileLike(t *testing.T) {
	assert.True(t, IsFileLike("https://a.com/x/y.zip"))
	assert.True(t, IsFileLike("https://a.com/file.DOCX?dl=1"))
	assert.False(t, IsFileLike("https://a.com/x/y.html"))
	assert.False(t, IsFileLike("https://a.com/about"))
	assert.False(t, IsFileLike("https://a.com/pdf/"))
	assert.False(t, IsFileLike("https://a.com/report.pdf"))
	assert.False(t, IsFileLike("https://a.com/notes.TXT"))
	assert.False(t, IsFileLike("https://a.com/feed.xml"))
}

func TestGooglePagesAndStopsOnShortPage(t *testing.T) {
	var starts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("key"))
		assert.Equal(t, "cx", q.Get("cx"))
		starts = append(starts, q.Get("start"))
		start, _ := strconv.Atoi(q.Get("start"))
		num, _ := strconv.Atoi(q.Get("num"))
		if start > 1 {
			num = 2
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[`))
		for i := 0; i < num; i++ {
			if i > 0 {
				_, _ = w.Write([]byte(","))
			}
			_, _ = w.Write([]byte(`{"title":"t","link":"https://r.com/` + strconv.Itoa(start+i) + `"}`))
		}
		_, _ = w.Write([]byte(`]}`))
	}))
	defer srv.Close()

	s := google.Search{ApiKey: "key", SearchEngineID: "cx", Endpoint: srv.URL, Client: helpers.NewHTTPClient(0, 0, 0)}
	got, err := s.Discover(context.Background(), "hours", 15)
	require.NoError(t, err)
	assert.Len(t, got, 12)
	assert.Equal(t, []string{"1", "11"}, starts)
	assert.Equal(t, "https://r.com/1", got[0].URL)
}

func TestBraveCapsCountAndStripsHighlighting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "20", r.URL.Query().Get("count"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"web":{"results":[
			{"title":"Library <strong>hours</strong>","url":"https://lib.example.com","description":"Open <strong>daily</strong>"},
			{"title":"Other","url":"https://other.example.com","description":""}
		]}}`))
	}))
	defer srv.Close()

	s := brave.Search{ApiKey: "tok", Endpoint: srv.URL, Client: helpers.NewHTTPClient(0, 0, 0)}
	got, err := s.Discover(context.Background(), "hours", 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Library hours", got[0].Title)
	assert.Equal(t, "Open daily", got[0].Snippet)
}

func TestSerperPostsQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "k", r.Header.Get("X-API-KEY"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic":[{"title":"a","link":"https://a.com","snippet":"s"},{"title":"b","link":"https://b.com"}]}`))
	}))
	defer srv.Close()

	s := serper.Search{ApiKey: "k", Endpoint: srv.URL, Client: helpers.NewHTTPClient(0, 0, 0)}
	got, err := s.Discover(context.Background(), "hours", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://a.com", got[0].URL)
}

func TestBrokerKeepsPDFResults(t *testing.T) {
	fs := &fakeSearcher{results: map[string][]string{
		"a": {"https://x.example/hours.pdf", "https://x.example/a", "https://x.example/map.png"},
	}}
	got, err := NewBroker(fs, nil).Search(context.Background(), queries("a"), 5, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x.example/hours.pdf", "https://x.example/a"}, got)
}

func TestProviderErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ws, err := NewWebSearcher(config.SearchConfig{Provider: "serper", SerperAPIKey: "k"})
	require.NoError(t, err)
	s := ws.(serper.Search)
	s.Endpoint = srv.URL

	_, err = NewBroker(s, zaptest.NewLogger(t)).Search(context.Background(), queries("a"), 5, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, aimodels.ErrProviderUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
