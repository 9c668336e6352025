package reddit

import (
	"html"
	"net/url"
	"path"
	"sort"
	"strings"
)

// MediaKind names a Media variant in logs and summaries
type MediaKind string

const (
	MediaImage    MediaKind = "image"
	MediaGallery  MediaKind = "gallery"
	MediaVideo    MediaKind = "video"
	MediaSelfText MediaKind = "self_text"
	MediaUnknown  MediaKind = "unknown"
)

// HostedVideoHint is the post_hint Reddit sets on v.redd.it uploads
const HostedVideoHint = "hosted:video"

// DefaultExtension is used when a media URL has no extension
const DefaultExtension = "jpg"

// SupportedImageExtensions are the suffixes treated as direct image links
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Media is the closed set of things a saved link can point at
type Media interface {
	Kind() MediaKind
	isMedia()
}

// Image is a direct link to a single image file
type Image struct {
	URL string
	Ext string
}

// Gallery is a multi-image post; Items are already ordered and numbered
type Gallery struct {
	Items []GalleryItem
}

// GalleryItem is one downloadable image of a gallery
type GalleryItem struct {
	Index   int
	MediaID string
	URL     string
	Ext     string
}

// Video is a Reddit-hosted video. FallbackURL is empty when Reddit did not
// provide one.
type Video struct {
	FallbackURL string
}

// SelfText is a text-only post
type SelfText struct{}

// Unknown is a link to something we do not download
type Unknown struct {
	URL string
}

func (Image) Kind() MediaKind    { return MediaImage }
func (Gallery) Kind() MediaKind  { return MediaGallery }
func (Video) Kind() MediaKind    { return MediaVideo }
func (SelfText) Kind() MediaKind { return MediaSelfText }
func (Unknown) Kind() MediaKind  { return MediaUnknown }

func (Image) isMedia()    {}
func (Gallery) isMedia()  {}
func (Video) isMedia()    {}
func (SelfText) isMedia() {}
func (Unknown) isMedia()  {}

// Classify resolves the media variant of rec. Self posts win over
// everything, then galleries, then hosted video, then direct images.
func Classify(rec *SavedRecord) Media {
	switch {
	case rec.IsSelf:
		return SelfText{}
	case rec.IsGallery != nil && *rec.IsGallery:
		return Gallery{Items: galleryItems(rec.GalleryMetadata)}
	case rec.PostHint == HostedVideoHint:
		v := Video{}
		if rec.Video != nil {
			v.FallbackURL = rec.Video.FallbackURL
		}
		return v
	case IsSupportedImage(rec.URL):
		return Image{URL: rec.URL, Ext: ExtensionFromURL(rec.URL)}
	default:
		return Unknown{URL: rec.URL}
	}
}

// galleryItems orders metadata by media id and numbers the entries that
// carry a source URL starting from 1.
func galleryItems(metadata map[string]GalleryMetadataItem) []GalleryItem {
	ids := make([]string, 0, len(metadata))
	for id := range metadata {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]GalleryItem, 0, len(ids))
	for _, id := range ids {
		src := metadata[id].S
		if src == nil {
			continue
		}
		raw := src.U
		if raw == "" {
			raw = src.GIF
		}
		if raw == "" {
			continue
		}
		u := html.UnescapeString(raw)
		items = append(items, GalleryItem{
			Index:   len(items) + 1,
			MediaID: id,
			URL:     u,
			Ext:     ExtensionFromURL(u),
		})
	}
	return items
}

// urlPath returns the path component of raw, or raw itself when it does not
// parse as a URL.
func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Path
}

// IsSupportedImage reports whether the path of raw ends in a supported
// image extension, ignoring case and any query string.
func IsSupportedImage(raw string) bool {
	ext := strings.ToLower(path.Ext(urlPath(raw)))
	for _, supported := range SupportedImageExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ExtensionFromURL returns the extension of raw's path as written, without
// the dot, or DefaultExtension.
func ExtensionFromURL(raw string) string {
	ext := strings.TrimPrefix(path.Ext(urlPath(raw)), ".")
	if ext == "" {
		return DefaultExtension
	}
	return ext
}
