package downloader

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	info  *Info
	err   error
	calls int
}

func (f *fakeClient) Probe(ctx context.Context, url string) (*Info, error) {
	f.calls++
	return f.info, f.err
}

func (f *fakeClient) Fetch(ctx context.Context, req Request, onProgress ProgressFunc) error {
	return errors.New("not implemented")
}

type fakeMeta struct {
	meta  PageMeta
	err   error
	calls int
}

func (f *fakeMeta) Fetch(ctx context.Context, url string) (PageMeta, error) {
	f.calls++
	return f.meta, f.err
}

func float(v float64) *float64 { return &v }
func size(v int64) *int64      { return &v }

func TestListMuxedAndAudio(t *testing.T) {
	client := &fakeClient{info: &Info{
		Title:     "clip",
		Thumbnail: "https://i.ytimg.com/vi/abc123/hq.jpg",
		Streams: []Stream{
			{FormatID: "18", Ext: "mp4", Height: 360, VCodec: "avc1.42001E", ACodec: "mp4a.40.2"},
			{FormatID: "140", Ext: "m4a", VCodec: "none", ACodec: "mp4a.40.2", ABR: float(128)},
		},
	}}
	meta := &fakeMeta{}

	catalog, err := NewLister(client, meta).List(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Zero(t, meta.calls, "metadata fallback should not run when extractor has title and thumbnail")

	data, err := json.Marshal(catalog)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"title": "clip",
		"thumbnail": "https://i.ytimg.com/vi/abc123/hq.jpg",
		"video_formats": [{"format_id":"18","ext":"mp4","resolution":"360p","filesize":null}],
		"audio_formats": [{"format_id":"140","ext":"m4a","abr":128,"filesize":null}]
	}`, string(data))
}

func TestCatalogPartition(t *testing.T) {
	info := &Info{Streams: []Stream{
		{FormatID: "sb0", Ext: "mhtml", VCodec: "none", ACodec: "none"},
		{FormatID: "137", Ext: "mp4", Resolution: "1920x1080", Height: 1080, VCodec: "avc1", ACodec: "none", Filesize: size(1024)},
		{FormatID: "251", Ext: "webm", VCodec: "none", ACodec: "opus"},
		{FormatID: "22", Ext: "mp4", VCodec: "avc1", ACodec: "mp4a"},
	}}

	catalog := Catalog(info)

	require.Len(t, catalog.VideoFormats, 2)
	assert.Equal(t, "137", catalog.VideoFormats[0].FormatID)
	assert.Equal(t, "1920x1080", catalog.VideoFormats[0].Resolution)
	require.NotNil(t, catalog.VideoFormats[0].Filesize)
	assert.EqualValues(t, 1024, *catalog.VideoFormats[0].Filesize)
	assert.Equal(t, "?p", catalog.VideoFormats[1].Resolution)

	require.Len(t, catalog.AudioFormats, 1)
	assert.Equal(t, "251", catalog.AudioFormats[0].FormatID)
	assert.False(t, catalog.AudioFormats[0].ABR.Known)
}

func TestCatalogEmptyListsMarshalAsArrays(t *testing.T) {
	data, err := json.Marshal(Catalog(&Info{Title: "x"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x","thumbnail":"","video_formats":[],"audio_formats":[]}`, string(data))
}

func TestListFetchError(t *testing.T) {
	client := &fakeClient{err: errors.New("Video unavailable")}

	_, err := NewLister(client, nil).List(context.Background(), "https://youtu.be/gone")
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "Failed to fetch formats: Video unavailable", err.Error())
}

func TestListMetadataFallback(t *testing.T) {
	client := &fakeClient{info: &Info{Streams: nil}}
	meta := &fakeMeta{meta: PageMeta{Title: "From page", Image: "https://img/x.jpg"}}

	catalog, err := NewLister(client, meta).List(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Equal(t, 1, meta.calls)
	assert.Equal(t, "From page", catalog.Title)
	assert.Equal(t, "https://img/x.jpg", catalog.Thumbnail)
}

func TestListMetadataFallbackFailureIsIgnored(t *testing.T) {
	client := &fakeClient{info: &Info{Title: "kept"}}
	meta := &fakeMeta{err: errors.New("boom")}

	catalog, err := NewLister(client, meta).List(context.Background(), "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Equal(t, "kept", catalog.Title)
	assert.Empty(t, catalog.Thumbnail)
}
