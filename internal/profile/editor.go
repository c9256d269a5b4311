// Package profile holds the in-memory profile being edited in one browser
// session, together with the image selection rules and the preview.
package profile

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/sumire/profilecreator/internal/domain"
)

// Snapshot is an immutable view of the profile and its social links.
type Snapshot struct {
	Profile domain.Profile      `json:"profile"`
	Socials []domain.SocialLink `json:"socials"`
}

// ImageStore keeps accepted images and hands out the references stored in
// Profile.ImageURL.
type ImageStore interface {
	Put(img Image) (string, error)
	Release(ref string)
}

// Editor is the profile state container. Writers are serialized and each
// mutation publishes a new Snapshot; readers never block.
type Editor struct {
	mu     sync.Mutex
	images ImageStore
	state  atomic.Pointer[Snapshot]
}

// NewEditor creates an Editor holding an empty profile and one empty link
// per supported platform.
func NewEditor(images ImageStore) *Editor {
	e := &Editor{images: images}
	e.state.Store(&Snapshot{Socials: domain.DefaultSocialLinks()})
	return e
}

// Snapshot returns a copy of the current state. Callers may modify it freely.
func (e *Editor) Snapshot() Snapshot {
	s := e.state.Load()
	p := s.Profile
	if p.ImageURL != nil {
		ref := *p.ImageURL
		p.ImageURL = &ref
	}
	return Snapshot{Profile: p, Socials: slices.Clone(s.Socials)}
}

// UpdateField replaces one scalar profile field. No validation happens here.
func (e *Editor) UpdateField(name, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := *e.state.Load()
	switch name {
	case domain.FieldFirstName:
		next.Profile.FirstName = value
	case domain.FieldLastName:
		next.Profile.LastName = value
	case domain.FieldEmail:
		next.Profile.Email = value
	case domain.FieldDescription:
		next.Profile.Description = value
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
	}
	e.state.Store(&next)
	return nil
}

// UpdateImage stores the selected image and points ImageURL at it. It does
// nothing unless exactly one file is given, and reports whether the profile
// changed.
func (e *Editor) UpdateImage(files []Image) (bool, error) {
	if len(files) != 1 {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ref, err := e.images.Put(files[0])
	if err != nil {
		return false, fmt.Errorf("store image: %w", err)
	}

	next := *e.state.Load()
	prev := next.Profile.ImageURL
	next.Profile.ImageURL = &ref
	e.state.Store(&next)

	if prev != nil {
		e.images.Release(*prev)
	}
	return true, nil
}

// UpdateSocialURL replaces the URL of the link at index. Platform, icon and
// the order of the other links are left untouched.
func (e *Editor) UpdateSocialURL(index int, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.state.Load()
	if index < 0 || index >= len(cur.Socials) {
		return fmt.Errorf("%w: %d", domain.ErrSocialIndex, index)
	}

	socials := slices.Clone(cur.Socials)
	socials[index].URL = value
	e.state.Store(&Snapshot{Profile: cur.Profile, Socials: socials})
	return nil
}

// Close releases the stored image, if any.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ref := e.state.Load().Profile.ImageURL; ref != nil {
		e.images.Release(*ref)
	}
}
