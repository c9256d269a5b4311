package profile

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/sumire/profilecreator/internal/domain"
)

// StoredImage is an accepted image ready to be served.
type StoredImage struct {
	ContentType string
	Data        []byte
}

// MemoryImageStore keeps images in memory. References are URLs of the form
// <basePath>/<id>.
type MemoryImageStore struct {
	basePath string

	mu     sync.RWMutex
	images map[string]StoredImage
}

// NewMemoryImageStore creates an empty store serving under basePath.
func NewMemoryImageStore(basePath string) *MemoryImageStore {
	return &MemoryImageStore{
		basePath: strings.TrimSuffix(basePath, "/"),
		images:   make(map[string]StoredImage),
	}
}

// Put stores img and returns its reference. The content type is sniffed
// from the bytes and must be an image type; the declared type is not trusted.
func (s *MemoryImageStore) Put(img Image) (string, error) {
	mtype := mimetype.Detect(img.Data).String()
	if !IsImageType(mtype) {
		return "", fmt.Errorf("%w: %q detected as %s", domain.ErrNotImage, img.Filename, mtype)
	}

	id := uuid.NewString()
	stored := StoredImage{ContentType: mtype, Data: img.Data}

	s.mu.Lock()
	s.images[id] = stored
	s.mu.Unlock()

	return s.basePath + "/" + id, nil
}

// Get looks an image up by id.
func (s *MemoryImageStore) Get(id string) (StoredImage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	return img, ok
}

// Release forgets the image behind ref. Unknown references are ignored.
func (s *MemoryImageStore) Release(ref string) {
	id, ok := strings.CutPrefix(ref, s.basePath+"/")
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.images, id)
	s.mu.Unlock()
}

// Len returns the number of stored images.
func (s *MemoryImageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}
