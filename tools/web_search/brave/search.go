package brave

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/models"
)

const defaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

// Brave caps count at 20 per request.
const maxCount = 20

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *helpers.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	count := k
	if count > maxCount {
		count = maxCount
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("count", strconv.Itoa(count))

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	headers := map[string]string{"X-Subscription-Token": s.ApiKey}
	if err := s.Client.DoJSON(ctx, http.MethodGet, endpoint+"?"+params.Encode(), headers, nil, &raw); err != nil {
		return nil, err
	}
	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		// Brave highlights matches with inline markup.
		out = append(out, models.Result{Title: helpers.SanitizeHTMLStrict(r.Title), URL: r.URL, Snippet: helpers.SanitizeHTMLStrict(r.Snippet)})
	}
	return out, nil
}
