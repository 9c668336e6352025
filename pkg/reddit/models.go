package reddit

import (
	"encoding/json"

	apperrors "redditsaver/pkg/errors"
)

// Thing kinds that can appear in a saved listing
const (
	ThingComment = "t1"
	ThingLink    = "t3"
)

// Listing is the envelope Reddit wraps every paginated response in
type Listing struct {
	Kind string      `json:"kind"`
	Data ListingData `json:"data"`
}

// ListingData carries one page of children and the pagination cursors
type ListingData struct {
	After    *string `json:"after"`
	Before   *string `json:"before"`
	Children []Thing `json:"children"`
}

// NextCursor returns the after cursor, or "" when there are no more pages
func (d ListingData) NextCursor() string {
	if d.After == nil {
		return ""
	}
	return *d.After
}

// Thing is one listing child. Data is decoded only for kinds we understand.
type Thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// GalleryMetadataItem is one entry of a gallery post's media_metadata
type GalleryMetadataItem struct {
	Status string         `json:"status"`
	E      string         `json:"e"`
	M      string         `json:"m"`
	S      *GallerySource `json:"s"`
}

// GallerySource is the full-resolution rendition of a gallery item
type GallerySource struct {
	U   string `json:"u"`
	GIF string `json:"gif"`
	MP4 string `json:"mp4"`
}

// RedditVideo describes a video hosted on v.redd.it
type RedditVideo struct {
	FallbackURL string `json:"fallback_url"`
	HLSURL      string `json:"hls_url"`
	IsGIF       bool   `json:"is_gif"`
}

type mediaEmbed struct {
	RedditVideo *RedditVideo `json:"reddit_video"`
}

// SavedRecord is a saved Link entry with its media resolved
type SavedRecord struct {
	ID              string
	Name            string
	Title           string
	Author          string
	Subreddit       string
	Permalink       string
	URL             string
	IsSelf          bool
	IsGallery       *bool
	PostHint        string
	GalleryMetadata map[string]GalleryMetadataItem
	Video           *RedditVideo

	// Media is resolved once at decode time
	Media Media
}

// linkData mirrors the t3 payload. Required fields are pointers so absence
// can be told apart from zero values.
type linkData struct {
	ID            *string                        `json:"id"`
	Name          string                         `json:"name"`
	Title         string                         `json:"title"`
	Author        string                         `json:"author"`
	Subreddit     *string                        `json:"subreddit"`
	Permalink     string                         `json:"permalink"`
	URL           *string                        `json:"url"`
	IsSelf        *bool                          `json:"is_self"`
	IsGallery     *bool                          `json:"is_gallery"`
	PostHint      string                         `json:"post_hint"`
	MediaMetadata map[string]GalleryMetadataItem `json:"media_metadata"`
	SecureMedia   *mediaEmbed                    `json:"secure_media"`
	Media         *mediaEmbed                    `json:"media"`
}

// DecodeRecord maps the data of a t3 child to a SavedRecord. Any problem is
// returned as a record_shape error.
func DecodeRecord(raw json.RawMessage) (*SavedRecord, error) {
	var d linkData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, apperrors.NewRecordShapeError("", "invalid link payload", err)
	}

	id := ""
	if d.ID != nil {
		id = *d.ID
	}
	switch {
	case d.ID == nil || id == "":
		return nil, apperrors.NewRecordShapeError("", "missing id", nil)
	case d.Subreddit == nil:
		return nil, apperrors.NewRecordShapeError(id, "missing subreddit", nil)
	case d.URL == nil:
		return nil, apperrors.NewRecordShapeError(id, "missing url", nil)
	case d.IsSelf == nil:
		return nil, apperrors.NewRecordShapeError(id, "missing is_self", nil)
	}

	rec := &SavedRecord{
		ID:              id,
		Name:            d.Name,
		Title:           d.Title,
		Author:          d.Author,
		Subreddit:       *d.Subreddit,
		Permalink:       d.Permalink,
		URL:             *d.URL,
		IsSelf:          *d.IsSelf,
		IsGallery:       d.IsGallery,
		PostHint:        d.PostHint,
		GalleryMetadata: d.MediaMetadata,
		Video:           pickVideo(d.SecureMedia, d.Media),
	}
	rec.Media = Classify(rec)
	return rec, nil
}

// pickVideo prefers secure_media over media
func pickVideo(embeds ...*mediaEmbed) *RedditVideo {
	for _, e := range embeds {
		if e != nil && e.RedditVideo != nil {
			return e.RedditVideo
		}
	}
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}
