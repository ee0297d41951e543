// Package video provides the video metadata Record.
package video

import "fmt"

// Record holds display metadata for a video.
type Record struct {
	ID           string // Video ID
	Title        string // Video title
	Description  string // Video description
	ChannelTitle string // Owning channel name
}

// ThumbnailURL returns the artwork URL for a video ID.
func ThumbnailURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("https://img.youtube.com/vi/%s/0.jpg", videoID)
}

// WatchURL returns the public watch URL for a video ID.
func WatchURL(videoID string) string {
	if videoID == "" {
		return ""
	}
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)
}
