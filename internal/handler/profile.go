package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/profilecreator/internal/domain"
	"github.com/sumire/profilecreator/internal/profile"
	"github.com/sumire/profilecreator/internal/validate"
)

// SessionCookie identifies the browser's in-memory profile.
const SessionCookie = "profile_session"

// ProfileHandler serves the profile form, its live preview and the JSON
// editing API.
type ProfileHandler struct {
	sessions  *profile.Registry
	images    *profile.MemoryImageStore
	maxUpload int64
	secure    bool
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(sessions *profile.Registry, images *profile.MemoryImageStore, maxUpload int64, secure bool) *ProfileHandler {
	return &ProfileHandler{sessions: sessions, images: images, maxUpload: maxUpload, secure: secure}
}

// ProfileState is the JSON view of a session.
type ProfileState struct {
	Profile    domain.Profile      `json:"profile"`
	Socials    []domain.SocialLink `json:"socials"`
	Preview    profile.PreviewCard `json:"preview"`
	Errors     profile.FieldErrors `json:"errors"`
	ImageError string              `json:"imageError,omitempty"`
	Dragging   bool                `json:"dragging"`
}

// FieldCheck is the inline error of one field after it loses focus.
type FieldCheck struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type updateFieldRequest struct {
	Name  string `param:"name" json:"-" validate:"required,oneof=firstName lastName email description"`
	Value string `json:"value" validate:"max=5000"`
}

type fieldRequest struct {
	Name string `param:"name" json:"-" validate:"required,oneof=firstName lastName email description"`
}

type dragRequest struct {
	Event string `json:"event" validate:"required,oneof=enter over leave"`
}

type updateSocialRequest struct {
	Index int    `param:"index" json:"-" validate:"min=0"`
	URL   string `json:"url" validate:"max=2048"`
}

// Get returns the current profile, preview and inline errors.
func (h *ProfileHandler) Get(c echo.Context) error {
	return JSON(c, http.StatusOK, h.state(h.session(c)))
}

// UpdateField replaces one scalar field.
func (h *ProfileHandler) UpdateField(c echo.Context) error {
	var req updateFieldRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s := h.session(c)
	if err := s.Editor.UpdateField(req.Name, req.Value); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, h.state(s))
}

// BlurField re-checks one field against the current value, the way the form
// does when the input loses focus.
func (h *ProfileHandler) BlurField(c echo.Context) error {
	var req fieldRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s := h.session(c)
	return JSON(c, http.StatusOK, FieldCheck{
		Field: req.Name,
		Error: profile.ValidateField(s.Editor.Snapshot(), req.Name),
	})
}

// Drag reports drag events over the drop zone.
func (h *ProfileHandler) Drag(c echo.Context) error {
	var req dragRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s := h.session(c)
	switch req.Event {
	case "enter":
		s.Guard.DragEnter()
	case "over":
		s.Guard.DragOver()
	case "leave":
		s.Guard.DragLeave()
	}
	return JSON(c, http.StatusOK, h.state(s))
}

// UpdateSocial replaces the URL of one social link.
func (h *ProfileHandler) UpdateSocial(c echo.Context) error {
	var req updateSocialRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s := h.session(c)
	if err := s.Editor.UpdateSocialURL(req.Index, req.URL); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, h.state(s))
}

// UploadImage accepts the files of one picker selection or drop, sent as
// multipart "image" parts. source=drop marks a drag and drop.
func (h *ProfileHandler) UploadImage(c echo.Context) error {
	s := h.session(c)
	if err := h.offerImages(c, s); err != nil {
		return err
	}
	return JSON(c, http.StatusOK, h.state(s))
}

// imageCSP keeps a stored picture inert when it is opened directly. SVG can
// carry script.
const imageCSP = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

// Image serves a stored profile picture.
func (h *ProfileHandler) Image(c echo.Context) error {
	img, ok := h.images.Get(c.Param("id"))
	if !ok || !profile.IsImageType(img.ContentType) {
		return domain.ErrNotFound
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=3600")
	c.Response().Header().Set("Content-Security-Policy", imageCSP)
	return c.Blob(http.StatusOK, img.ContentType, img.Data)
}

type fieldView struct {
	profile.FieldRule
	Value string
	Error string
}

type socialView struct {
	domain.SocialLink
	Key         string
	Placeholder string
	Error       string
}

type profilePage struct {
	FullName   string
	LoggedIn   bool
	Fields     []fieldView
	Socials    []socialView
	ImageError string
	Preview    profile.PreviewCard
}

// Page renders the form next to the preview. Errors are only shown once the
// form has been submitted.
func (h *ProfileHandler) Page(c echo.Context) error {
	s := h.session(c)
	return h.render(c, s, nil)
}

// Submit applies a full form post and re-renders with inline errors.
func (h *ProfileHandler) Submit(c echo.Context) error {
	s := h.session(c)

	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxUpload)
	form, err := c.FormParams()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	for _, rule := range profile.FormFields {
		if _, ok := form[rule.Key]; ok {
			if err := s.Editor.UpdateField(rule.Key, form.Get(rule.Key)); err != nil {
				return err
			}
		}
	}
	for i := range s.Editor.Snapshot().Socials {
		key := profile.SocialKey(i)
		if _, ok := form[key]; ok {
			if err := s.Editor.UpdateSocialURL(i, form.Get(key)); err != nil {
				return err
			}
		}
	}

	if mf := c.Request().MultipartForm; mf != nil {
		images, err := readImages(mf.File["image"])
		if err != nil {
			return err
		}
		if len(images) > 0 {
			if img, ok := s.Guard.Select(images); ok {
				if _, err := s.Editor.UpdateImage([]profile.Image{img}); err != nil {
					return err
				}
			}
		}
	}

	return h.render(c, s, profile.Validate(s.Editor.Snapshot()))
}

func (h *ProfileHandler) render(c echo.Context, s *profile.Session, errs profile.FieldErrors) error {
	snap := s.Editor.Snapshot()
	name, loggedIn := FullName(c)

	page := profilePage{
		FullName:   name,
		LoggedIn:   loggedIn,
		ImageError: s.Guard.Error(),
		Preview:    profile.Preview(snap),
	}
	for _, rule := range profile.FormFields {
		page.Fields = append(page.Fields, fieldView{
			FieldRule: rule,
			Value:     profile.FieldValue(snap.Profile, rule.Key),
			Error:     errs[rule.Key],
		})
	}
	for i, link := range snap.Socials {
		key := profile.SocialKey(i)
		page.Socials = append(page.Socials, socialView{
			SocialLink:  link,
			Key:         key,
			Placeholder: validate.Placeholder(string(link.Platform)),
			Error:       errs[key],
		})
	}
	return c.Render(http.StatusOK, "index.html", page)
}

func (h *ProfileHandler) offerImages(c echo.Context, s *profile.Session) error {
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxUpload)
	form, err := c.MultipartForm()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	images, err := readImages(form.File["image"])
	if err != nil {
		return err
	}

	var (
		img profile.Image
		ok  bool
	)
	if c.FormValue("source") == "drop" {
		img, ok = s.Guard.Drop(images)
	} else {
		img, ok = s.Guard.Select(images)
	}
	if !ok {
		return nil
	}
	_, err = s.Editor.UpdateImage([]profile.Image{img})
	return err
}

func (h *ProfileHandler) state(s *profile.Session) ProfileState {
	snap := s.Editor.Snapshot()
	return ProfileState{
		Profile:    snap.Profile,
		Socials:    snap.Socials,
		Preview:    profile.Preview(snap),
		Errors:     profile.Validate(snap),
		ImageError: s.Guard.Error(),
		Dragging:   s.Guard.Dragging(),
	}
}

// session opens the browser's session, issuing a new cookie when needed.
func (h *ProfileHandler) session(c echo.Context) *profile.Session {
	var id string
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		id = cookie.Value
	}

	s := h.sessions.Open(id)
	if s.ID != id {
		c.SetCookie(&http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s
}

// readImages loads uploaded parts, skipping the empty part a browser sends
// for a file input left blank.
func readImages(headers []*multipart.FileHeader) ([]profile.Image, error) {
	images := make([]profile.Image, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		images = append(images, profile.Image{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Data:        data,
		})
	}
	return images, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
	}
	return data, nil
}
