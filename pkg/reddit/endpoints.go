package reddit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the OAuth API host; every authenticated call goes here
	BaseURL = "https://oauth.reddit.com"

	// TokenURL issues access tokens for script applications
	TokenURL = "https://www.reddit.com/api/v1/access_token"

	// SavedEndpoint is the path pattern for a user's saved listing
	SavedEndpoint = "/user/%s/saved"

	// DefaultPageSize is the number of items requested per page when unset
	DefaultPageSize = 10

	// MaxPageSize is the largest limit Reddit honours on a listing request
	MaxPageSize = 100

	// DefaultUserAgent identifies the client to Reddit
	DefaultUserAgent = "redditsaver/1.0"
)

// ClampPageSize bounds size to [1, MaxPageSize], using DefaultPageSize for
// non-positive values.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// SavedURL constructs the URL of one page of username's saved listing
func SavedURL(base, username string, limit int, after string) string {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("after", after)

	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s"+SavedEndpoint+"?%s", base, url.PathEscape(username), params.Encode())
}
