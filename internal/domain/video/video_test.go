package video

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThumbnailURL(t *testing.T) {
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/0.jpg", ThumbnailURL("dQw4w9WgXcQ"))
	assert.Equal(t, "", ThumbnailURL(""))
}

func TestWatchURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", WatchURL("dQw4w9WgXcQ"))
	assert.Equal(t, "", WatchURL(""))
}
