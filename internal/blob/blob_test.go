package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBlob_String(t *testing.T) {
	b, err := ToBlob("hello", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b.Data)
	assert.Equal(t, DefaultType, b.Type)

	b, err = ToBlob(`{"a":1}`, "application/json")
	require.NoError(t, err)
	assert.Equal(t, "application/json", b.Type)
}

func TestToBlob_PassThrough(t *testing.T) {
	in := Blob{Data: []byte{1, 2, 3}, Type: "application/octet-stream"}

	out, err := ToBlob(in, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out, err = ToBlob(&in, "")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestToBlob_BytesSniffed(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	b, err := ToBlob(png, "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", b.Type)

	// An explicit type wins over sniffing.
	b, err = ToBlob(png, "application/octet-stream")
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", b.Type)
}

func TestToBlob_BytesAreCopied(t *testing.T) {
	src := []byte("abc")
	b, err := ToBlob(src, "text/plain")
	require.NoError(t, err)
	src[0] = 'z'
	assert.Equal(t, "abc", string(b.Data))
}

func TestToBlob_Unsupported(t *testing.T) {
	_, err := ToBlob(42, "")
	assert.Error(t, err)
}

func TestFromBlob(t *testing.T) {
	ctx := context.Background()

	s, err := FromBlob(ctx, Blob{Data: []byte("héllo"), Type: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	s, err = FromBlob(ctx, Blob{Data: []byte("\xef\xbb\xbfbom")})
	require.NoError(t, err)
	assert.Equal(t, "bom", s)

	s, err = FromBlob(ctx, Blob{Data: []byte("a\xffb")})
	require.NoError(t, err)
	assert.Equal(t, "a\uFFFDb", s)
}

func TestFromBlob_UTF16NotDetected(t *testing.T) {
	s, err := FromBlob(context.Background(), Blob{Data: []byte{0xff, 0xfe, 'h', 0}})
	require.NoError(t, err)
	assert.Equal(t, "\uFFFD\uFFFDh\x00", s)
}

func TestFromBlob_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := FromBlob(ctx, Blob{Data: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTextType(t *testing.T) {
	text := []string{
		"text/plain",
		"text/plain; charset=utf-8",
		"TEXT/HTML",
		"text/css",
		"application/json",
		"application/ld+json",
		"application/javascript",
		"image/svg+xml",
	}
	for _, mt := range text {
		assert.True(t, IsTextType(mt), mt)
	}

	binary := []string{"", "image/png", "application/octet-stream", "application/pdf"}
	for _, mt := range binary {
		assert.False(t, IsTextType(mt), mt)
	}
}
