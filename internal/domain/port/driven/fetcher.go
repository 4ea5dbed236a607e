package driven

import (
	"context"
	"encoding/json"
)

// RemoteFetcher defines the driven port for retrieving review data from the
// forge. Payloads are opaque to the domain except for the two well-known
// fields the session extracts (head commit oid, review node list).
type RemoteFetcher interface {
	// FetchInfos returns the pull request payload as fetched, verbatim.
	FetchInfos(ctx context.Context, owner, repo string, number int) (json.RawMessage, error)

	// FetchDiff returns the full unified diff text of the pull request.
	FetchDiff(ctx context.Context, owner, repo string, number int) (string, error)

	// FetchComments returns the pull request's review comment payloads.
	FetchComments(ctx context.Context, owner, repo string, number int) ([]json.RawMessage, error)
}
