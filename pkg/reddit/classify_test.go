package reddit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "redditsaver/pkg/errors"
)

func decode(t *testing.T, payload string) *SavedRecord {
	t.Helper()
	rec, err := DecodeRecord(json.RawMessage(payload))
	require.NoError(t, err)
	return rec
}

func TestDecodeRecordRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		reason  string
	}{
		{"missing id", `{"subreddit":"pics","url":"u","is_self":false}`, "missing id"},
		{"empty id", `{"id":"","subreddit":"pics","url":"u","is_self":false}`, "missing id"},
		{"missing subreddit", `{"id":"a1","url":"u","is_self":false}`, "missing subreddit"},
		{"missing url", `{"id":"a1","subreddit":"pics","is_self":false}`, "missing url"},
		{"missing is_self", `{"id":"a1","subreddit":"pics","url":"u"}`, "missing is_self"},
		{"wrong type", `{"id":42,"subreddit":"pics","url":"u","is_self":false}`, "invalid link payload"},
		{"not an object", `"hello"`, "invalid link payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord(json.RawMessage(tt.payload))
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeRecordShape))
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestDecodeRecordFields(t *testing.T) {
	rec := decode(t, `{
		"id": "abc123",
		"name": "t3_abc123",
		"title": "A cat",
		"author": "someone",
		"subreddit": "cats",
		"permalink": "/r/cats/comments/abc123/a_cat/",
		"url": "https://i.redd.it/cat.png",
		"is_self": false,
		"post_hint": "image"
	}`)

	assert.Equal(t, "abc123", rec.ID)
	assert.Equal(t, "t3_abc123", rec.Name)
	assert.Equal(t, "cats", rec.Subreddit)
	assert.Nil(t, rec.IsGallery)
	assert.Equal(t, Image{URL: "https://i.redd.it/cat.png", Ext: "png"}, rec.Media)
}

func TestClassifySelfTextWins(t *testing.T) {
	rec := decode(t, `{"id":"s1","subreddit":"ask","url":"https://i.redd.it/x.jpg","is_self":true,"is_gallery":true}`)
	assert.Equal(t, SelfText{}, rec.Media)
	assert.Equal(t, MediaSelfText, rec.Media.Kind())
}

func TestClassifyGallery(t *testing.T) {
	rec := decode(t, `{
		"id": "g1",
		"subreddit": "earthporn",
		"url": "https://www.reddit.com/gallery/g1",
		"is_self": false,
		"is_gallery": true,
		"media_metadata": {
			"zz9": {"status":"valid","e":"Image","m":"image/png","s":{"u":"https://preview.redd.it/zz9.png?width=640&amp;s=abc"}},
			"aa1": {"status":"valid","e":"Image","m":"image/jpg","s":{"u":"https://preview.redd.it/aa1.jpg?width=640&amp;s=def"}},
			"mm5": {"status":"failed"},
			"bb2": {"status":"valid","e":"AnimatedImage","m":"image/gif","s":{"gif":"https://i.redd.it/bb2.gif","mp4":"https://i.redd.it/bb2.mp4"}}
		}
	}`)

	gallery, ok := rec.Media.(Gallery)
	require.True(t, ok, "expected Gallery, got %T", rec.Media)
	require.Len(t, gallery.Items, 3)

	assert.Equal(t, GalleryItem{Index: 1, MediaID: "aa1", URL: "https://preview.redd.it/aa1.jpg?width=640&s=def", Ext: "jpg"}, gallery.Items[0])
	assert.Equal(t, GalleryItem{Index: 2, MediaID: "bb2", URL: "https://i.redd.it/bb2.gif", Ext: "gif"}, gallery.Items[1])
	assert.Equal(t, GalleryItem{Index: 3, MediaID: "zz9", URL: "https://preview.redd.it/zz9.png?width=640&s=abc", Ext: "png"}, gallery.Items[2])
}

func TestClassifyGalleryWithoutMetadata(t *testing.T) {
	rec := decode(t, `{"id":"g2","subreddit":"x","url":"https://www.reddit.com/gallery/g2","is_self":false,"is_gallery":true,"media_metadata":null}`)
	assert.Equal(t, Gallery{Items: []GalleryItem{}}, rec.Media)
}

func TestClassifyHostedVideo(t *testing.T) {
	t.Run("secure media preferred", func(t *testing.T) {
		rec := decode(t, `{
			"id": "v1", "subreddit": "videos", "url": "https://v.redd.it/v1", "is_self": false,
			"post_hint": "hosted:video",
			"media": {"reddit_video": {"fallback_url": "https://v.redd.it/v1/plain.mp4"}},
			"secure_media": {"reddit_video": {"fallback_url": "https://v.redd.it/v1/DASH_720.mp4?source=fallback"}}
		}`)
		assert.Equal(t, Video{FallbackURL: "https://v.redd.it/v1/DASH_720.mp4?source=fallback"}, rec.Media)
	})

	t.Run("media used when secure media has no video", func(t *testing.T) {
		rec := decode(t, `{
			"id": "v2", "subreddit": "videos", "url": "https://v.redd.it/v2", "is_self": false,
			"post_hint": "hosted:video",
			"secure_media": {"type": "youtube.com"},
			"media": {"reddit_video": {"fallback_url": "https://v.redd.it/v2/DASH_480.mp4"}}
		}`)
		assert.Equal(t, Video{FallbackURL: "https://v.redd.it/v2/DASH_480.mp4"}, rec.Media)
	})

	t.Run("no fallback", func(t *testing.T) {
		rec := decode(t, `{"id":"v3","subreddit":"videos","url":"https://v.redd.it/v3","is_self":false,"post_hint":"hosted:video"}`)
		assert.Equal(t, Video{}, rec.Media)
	})
}

func TestClassifyImageAndUnknown(t *testing.T) {
	tests := []struct {
		url  string
		want Media
	}{
		{"https://i.redd.it/a.jpg", Image{URL: "https://i.redd.it/a.jpg", Ext: "jpg"}},
		{"https://i.redd.it/a.JPEG", Image{URL: "https://i.redd.it/a.JPEG", Ext: "JPEG"}},
		{"https://i.imgur.com/a.webp?raw=1", Image{URL: "https://i.imgur.com/a.webp?raw=1", Ext: "webp"}},
		{"https://i.redd.it/a.gif", Image{URL: "https://i.redd.it/a.gif", Ext: "gif"}},
		{"https://i.imgur.com/a.gifv", Unknown{URL: "https://i.imgur.com/a.gifv"}},
		{"https://example.com/article", Unknown{URL: "https://example.com/article"}},
		{"https://youtube.com/watch?v=x.png", Unknown{URL: "https://youtube.com/watch?v=x.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			rec := &SavedRecord{ID: "i", Subreddit: "s", URL: tt.url}
			assert.Equal(t, tt.want, Classify(rec))
		})
	}
}

func TestExtensionFromURL(t *testing.T) {
	assert.Equal(t, "png", ExtensionFromURL("https://preview.redd.it/a.png?width=1&s=2"))
	assert.Equal(t, "jpg", ExtensionFromURL("https://preview.redd.it/noext"))
	assert.Equal(t, "jpg", ExtensionFromURL("https://preview.redd.it/dir.v2/noext"))
	assert.Equal(t, "WEBP", ExtensionFromURL("https://x/y.WEBP"))
	assert.True(t, IsSupportedImage("https://x/y.WEBP"))
}

func TestDecodeRecordKeepsExtensionCase(t *testing.T) {
	rec := decode(t, `{"id":"x","subreddit":"pics","url":"https://i.redd.it/A.PNG","is_self":false}`)
	assert.Equal(t, Image{URL: "https://i.redd.it/A.PNG", Ext: "PNG"}, rec.Media)
}
