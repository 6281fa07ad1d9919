package google

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mohammad-safakhou/aisearch/internal/helpers"
	"github.com/mohammad-safakhou/aisearch/tools/web_search/models"
)

const defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

// Custom Search returns at most 10 items per page and 100 overall.
const (
	pageSize   = 10
	maxResults = 100
)

type Search struct {
	ApiKey         string
	SearchEngineID string
	Endpoint       string
	Client         *helpers.HTTPClient
}

func (s Search) Discover(ctx context.Context, q string, k int) ([]models.Result, error) {
	// https://developers.google.com/custom-search/v1/reference/rest/v1/cse/list
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if k > maxResults {
		k = maxResults
	}
	var out []models.Result
	for start := 1; len(out) < k; start += pageSize {
		num := k - len(out)
		if num > pageSize {
			num = pageSize
		}
		params := url.Values{}
		params.Set("key", s.ApiKey)
		params.Set("cx", s.SearchEngineID)
		params.Set("q", q)
		params.Set("num", strconv.Itoa(num))
		params.Set("start", strconv.Itoa(start))

		var raw struct {
			Items []struct {
				Title   string `json:"title"`
				Link    string `json:"link"`
				Snippet string `json:"snippet"`
			} `json:"items"`
		}
		if err := s.Client.DoJSON(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil, nil, &raw); err != nil {
			return nil, err
		}
		for _, it := range raw.Items {
			out = append(out, models.Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet})
		}
		if len(raw.Items) < num {
			break
		}
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}
