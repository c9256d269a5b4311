package profile

import (
	"strings"
	"sync"
)

// TooManyImagesMessage is shown when more than one file is offered at once.
const TooManyImagesMessage = "Only one image can be uploaded."

// Image is a file offered for the profile picture. ContentType is the media
// type declared by the client.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IsImage reports whether the declared media type is an image type.
func (i Image) IsImage() bool {
	return IsImageType(i.ContentType)
}

// IsImageType reports whether mediaType is an image/* type.
func IsImageType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// ImageGuard accepts at most one image per selection or drop.
//
// More than one file sets an error and emits nothing. A single image clears
// the error and is emitted. A single non-image file is ignored without an
// error.
type ImageGuard struct {
	mu       sync.Mutex
	dragging bool
	err      string
}

// DragEnter marks a drag in progress over the drop zone.
func (g *ImageGuard) DragEnter() {
	g.mu.Lock()
	g.dragging = true
	g.mu.Unlock()
}

// DragOver keeps the drop zone active. It never changes the selection.
func (g *ImageGuard) DragOver() {}

// DragLeave clears the in-progress drag.
func (g *ImageGuard) DragLeave() {
	g.mu.Lock()
	g.dragging = false
	g.mu.Unlock()
}

// Select handles files chosen through the file picker.
func (g *ImageGuard) Select(files []Image) (Image, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.accept(files)
}

// Drop handles files dropped on the drop zone.
func (g *ImageGuard) Drop(files []Image) (Image, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.dragging = false
	return g.accept(files)
}

// Dragging reports whether a drag is in progress.
func (g *ImageGuard) Dragging() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dragging
}

// Error returns the message to show under the drop zone, or "".
func (g *ImageGuard) Error() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

func (g *ImageGuard) accept(files []Image) (Image, bool) {
	if len(files) > 1 {
		g.err = TooManyImagesMessage
		return Image{}, false
	}
	if len(files) == 0 || !files[0].IsImage() {
		return Image{}, false
	}
	g.err = ""
	return files[0], true
}
