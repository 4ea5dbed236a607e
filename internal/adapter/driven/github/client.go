// Package github implements the RemoteFetcher port using the go-github library.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

// graphqlHTTPClient is the HTTP client used for GraphQL requests.
// It enforces a 30-second timeout as a safety net alongside context cancellation.
var graphqlHTTPClient = &http.Client{Timeout: 30 * time.Second}

// pullRequestQuery fetches the infos payload for one pull request. The session
// layer reads exactly two paths from it (headRef.target.oid, reviews.nodes)
// and stores the rest verbatim.
const pullRequestQuery = `query($owner: String!, $repo: String!, $number: Int!) {
	repository(owner: $owner, name: $repo) {
		pullRequest(number: $number) {
			number
			title
			state
			isDraft
			baseRefName
			headRefName
			headRef {
				target {
					oid
				}
			}
			reviews(first: 100) {
				nodes {
					author { login }
					state
					body
					createdAt
					comments(first: 100) {
						nodes {
							path
							position
							body
						}
					}
				}
			}
		}
	}
}`

// Compile-time interface satisfaction check.
var _ driven.RemoteFetcher = (*Client)(nil)

// Client implements the driven.RemoteFetcher port against the GitHub API.
type Client struct {
	gh         *gh.Client
	token      string // Stored for GraphQL Authorization header.
	graphqlURL string // "https://api.github.com/graphql" in production; derived from baseURL in tests.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. Intended for testing against an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so the test server intercepts GraphQL requests.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: graphqlU.String(),
	}, nil
}

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// infosResponse captures only the envelope of the GraphQL response; the
// pullRequest object itself stays raw.
type infosResponse struct {
	Data struct {
		Repository struct {
			PullRequest json.RawMessage `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchInfos retrieves the pull request payload via GraphQL and returns it
// verbatim, without interpreting any field.
func (c *Client) FetchInfos(ctx context.Context, owner, repo string, number int) (json.RawMessage, error) {
	reqBody := graphqlRequest{
		Query: pullRequestQuery,
		Variables: map[string]any{
			"owner":  owner,
			"repo":   repo,
			"number": number,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal graphql request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create graphql request: %w", err)
	}
	httpReq.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := graphqlHTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch infos for %s/%s#%d: %w", owner, repo, number, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch infos for %s/%s#%d: status %d", owner, repo, number, resp.StatusCode)
	}

	var gqlResp infosResponse
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("decode infos response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("fetch infos for %s/%s#%d: %s", owner, repo, number, gqlResp.Errors[0].Message)
	}

	pr := gqlResp.Data.Repository.PullRequest
	if len(pr) == 0 || string(pr) == "null" {
		return nil, fmt.Errorf("fetch infos: pull request %s/%s#%d not found", owner, repo, number)
	}

	return pr, nil
}

// FetchDiff retrieves the full unified diff text of the pull request.
func (c *Client) FetchDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", fmt.Errorf("fetch diff for %s/%s#%d: %w", owner, repo, number, err)
	}
	return diff, nil
}

// FetchComments retrieves all review comments on the pull request, handling
// pagination, and returns each comment payload as raw JSON.
func (c *Client) FetchComments(ctx context.Context, owner, repo string, number int) ([]json.RawMessage, error) {
	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}

	var raw []json.RawMessage
	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("fetch comments for %s/%s#%d: %w", owner, repo, number, err)
		}

		for _, comment := range comments {
			data, err := json.Marshal(comment)
			if err != nil {
				return nil, fmt.Errorf("marshal comment: %w", err)
			}
			raw = append(raw, json.RawMessage(data))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return raw, nil
}
