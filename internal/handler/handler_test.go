package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/profilecreator/internal/profile"
	"github.com/sumire/profilecreator/internal/service"
	"github.com/sumire/profilecreator/internal/web"
)

const publicURL = "https://localhost:8000"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testIDP struct {
	tokenStatus int
	tokenBody   string
}

func newTestIDP(t *testing.T, idp *testIDP) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(idp.tokenStatus)
		_, _ = w.Write([]byte(idp.tokenBody))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fullnameEN":"Jane Doe"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testServer struct {
	e      *echo.Echo
	idp    *httptest.Server
	images *profile.MemoryImageStore
}

func newTestServer(t *testing.T, idp *testIDP, development bool) *testServer {
	t.Helper()
	if idp == nil {
		idp = &testIDP{tokenStatus: http.StatusOK, tokenBody: `{"access_token":"at","token_type":"Bearer"}`}
	}
	idpSrv := newTestIDP(t, idp)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	uaepass := service.NewUAEPass(service.UAEPassConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		BaseURL:      idpSrv.URL,
		RedirectURL:  publicURL + "/callback",
		Scope:        "urn:uae:digitalid:profile:general",
		ACRValues:    "urn:safelayer:tws:policies:authentication:level:low",
		Timeout:      2 * time.Second,
		HTTPClient:   idpSrv.Client(),
	})

	images := profile.NewMemoryImageStore(ImagesPath)
	e := NewRouter(RouterConfig{
		Auth:        NewAuthHandler(uaepass, publicURL),
		Profiles:    NewProfileHandler(profile.NewRegistry(images), images, 1<<20, true),
		Renderer:    renderer,
		Development: development,
	})
	return &testServer{e: e, idp: idpSrv, images: images}
}

func (s *testServer) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) ProfileState {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var env struct {
		Data ProfileState `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

type upload struct {
	name        string
	contentType string
	data        []byte
}

func multipartRequest(t *testing.T, target string, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestSecurityHeaders(t *testing.T) {
	for _, development := range []bool{true, false} {
		t.Run(fmt.Sprintf("development=%v", development), func(t *testing.T) {
			s := newTestServer(t, nil, development)

			for _, path := range []string{"/health", "/does-not-exist", "/logout"} {
				rec := s.do(httptest.NewRequest(http.MethodGet, path, nil))
				h := rec.Header()
				assert.Equal(t, "max-age=63072000; includeSubDomains; preload", h.Get("Strict-Transport-Security"), path)
				assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"), path)
				assert.Equal(t, "DENY", h.Get("X-Frame-Options"), path)
				assert.Equal(t, "no-referrer-when-downgrade", h.Get("Referrer-Policy"), path)
				assert.Equal(t, "camera=(), microphone=(), geolocation=(), interest-cohort=()", h.Get("Permissions-Policy"), path)
				assert.Equal(t, ContentSecurityPolicy(development), h.Get("Content-Security-Policy"), path)
			}
		})
	}
}

func TestContentSecurityPolicy(t *testing.T) {
	dev := ContentSecurityPolicy(true)
	prod := ContentSecurityPolicy(false)

	assert.Contains(t, dev, "script-src 'self' 'unsafe-eval' 'unsafe-inline'")
	assert.Contains(t, dev, "connect-src 'self' ws: wss:")
	assert.Contains(t, prod, "script-src 'self';")
	assert.Contains(t, prod, "connect-src 'self';")
	assert.NotContains(t, prod, "unsafe-eval")

	// Everything but script-src and connect-src is shared.
	strip := func(p string) []string {
		var kept []string
		for _, d := range strings.Split(p, "; ") {
			if !strings.HasPrefix(d, "script-src") && !strings.HasPrefix(d, "connect-src") {
				kept = append(kept, d)
			}
		}
		return kept
	}
	assert.Equal(t, strip(dev), strip(prod))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, true)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"ok"}}`, rec.Body.String())
}

func TestCallbackMissingCode(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/callback", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.True(t, strings.HasSuffix(rec.Header().Get("Location"), "/uaepass?error=missing_code"), rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, FullNameCookie))
}

func TestCallbackTokenRejected(t *testing.T) {
	s := newTestServer(t, &testIDP{tokenStatus: http.StatusBadRequest, tokenBody: `{"error":"invalid_grant"}`}, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, publicURL+"/uaepass?error=token_400", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, FullNameCookie))
}

func TestCallbackMissingToken(t *testing.T) {
	s := newTestServer(t, &testIDP{tokenStatus: http.StatusOK, tokenBody: `{}`}, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	assert.Equal(t, publicURL+"/uaepass?error=missing_token", rec.Header().Get("Location"))
}

func TestCallbackSuccessSetsCookie(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, publicURL+"/", rec.Header().Get("Location"))

	cookie := findCookie(rec, FullNameCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, "Jane%20Doe", cookie.Value)

	name, err := url.PathUnescape(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)

	page := s.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Signed in as Jane Doe")
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/logout", nil),
		&http.Cookie{Name: FullNameCookie, Value: "Jane%20Doe"})
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, publicURL+"/", rec.Header().Get("Location"))

	cookie := findCookie(rec, FullNameCookie)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestLoginRedirectsToAuthorize(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, s.idp.URL+"/authorize", loc.Scheme+"://"+loc.Host+loc.Path)
	assert.Equal(t, "code", loc.Query().Get("response_type"))
	assert.Equal(t, publicURL+"/callback", loc.Query().Get("redirect_uri"))
}

func TestLoginPage(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/uaepass?error=token_400", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Login with UAE PASS")
	assert.Contains(t, body, "code: token_400")
	assert.Contains(t, body, "Continue to UAE PASS")
}

func TestProfileAPI(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)

	state := decodeState(t, rec)
	assert.Equal(t, "First Name is required.", state.Errors["firstName"])
	assert.Equal(t, "Your Name", state.Preview.DisplayName)
	require.Len(t, state.Socials, 3)

	rec = s.do(jsonRequest(http.MethodPut, "/api/v1/profile/fields/firstName", `{"value":"Jane"}`), session)
	assert.Nil(t, findCookie(rec, SessionCookie), "known session must not be re-issued")
	state = decodeState(t, rec)
	assert.Equal(t, "Jane", state.Profile.FirstName)
	assert.NotContains(t, state.Errors, "firstName")
	assert.Equal(t, "Jane Name", state.Preview.DisplayName)

	// linkedin is the third link
	rec = s.do(jsonRequest(http.MethodPut, "/api/v1/profile/socials/2", `{"url":"github.com/invalid"}`), session)
	state = decodeState(t, rec)
	assert.Equal(t, "Please enter a valid linkedin URL (must contain linkedin.com)", state.Errors["socials.2"])

	rec = s.do(jsonRequest(http.MethodPut, "/api/v1/profile/socials/2", `{"url":""}`), session)
	state = decodeState(t, rec)
	assert.NotContains(t, state.Errors, "socials.2")

	rec = s.do(jsonRequest(http.MethodPut, "/api/v1/profile/socials/2", `{"url":"linkedin.com/ok"}`), session)
	state = decodeState(t, rec)
	assert.NotContains(t, state.Errors, "socials.2")
	assert.Equal(t, "linkedin.com/ok", state.Socials[2].URL)
	assert.Equal(t, "linkedin", string(state.Socials[2].Platform))
}

func TestProfileAPIRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, nil, true)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{name: "unknown field", req: jsonRequest(http.MethodPut, "/api/v1/profile/fields/imageUrl", `{"value":"x"}`), status: http.StatusBadRequest},
		{name: "malformed json", req: jsonRequest(http.MethodPut, "/api/v1/profile/fields/email", `{"value":`), status: http.StatusBadRequest},
		{name: "oversize value", req: jsonRequest(http.MethodPut, "/api/v1/profile/fields/email", `{"value":"`+strings.Repeat("a", 5001)+`"}`), status: http.StatusBadRequest},
		{name: "social index out of range", req: jsonRequest(http.MethodPut, "/api/v1/profile/socials/9", `{"url":"x.com/a"}`), status: http.StatusBadRequest},
		{name: "negative social index", req: jsonRequest(http.MethodPut, "/api/v1/profile/socials/-1", `{"url":"x.com/a"}`), status: http.StatusBadRequest},
		{name: "non numeric social index", req: jsonRequest(http.MethodPut, "/api/v1/profile/socials/abc", `{"url":"x.com/a"}`), status: http.StatusBadRequest},
		{name: "missing image", req: httptest.NewRequest(http.MethodGet, ImagesPath+"/nope", nil), status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var env Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.NotNil(t, env.Error)
			assert.NotEmpty(t, env.Error.Code)
		})
	}
}

func TestImageUpload(t *testing.T) {
	s := newTestServer(t, nil, true)
	png := upload{name: "me.png", contentType: "image/png", data: pngBytes}
	txt := upload{name: "notes.txt", contentType: "text/plain", data: []byte("hello")}

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)

	// two files dropped at once
	rec = s.do(multipartRequest(t, "/api/v1/profile/image", map[string]string{"source": "drop"}, png, png), session)
	state := decodeState(t, rec)
	assert.Equal(t, "Only one image can be uploaded.", state.ImageError)
	assert.Nil(t, state.Profile.ImageURL)

	// a single non-image is ignored and keeps the previous message
	rec = s.do(multipartRequest(t, "/api/v1/profile/image", map[string]string{"source": "drop"}, txt), session)
	state = decodeState(t, rec)
	assert.Equal(t, "Only one image can be uploaded.", state.ImageError)
	assert.Nil(t, state.Profile.ImageURL)

	// a single image is accepted and clears the message
	rec = s.do(multipartRequest(t, "/api/v1/profile/image", nil, png), session)
	state = decodeState(t, rec)
	assert.Empty(t, state.ImageError)
	require.NotNil(t, state.Profile.ImageURL)
	assert.True(t, strings.HasPrefix(*state.Profile.ImageURL, ImagesPath+"/"))
	assert.Equal(t, state.Profile.ImageURL, state.Preview.ImageURL)

	img := s.do(httptest.NewRequest(http.MethodGet, *state.Profile.ImageURL, nil))
	assert.Equal(t, http.StatusOK, img.Code)
	assert.Equal(t, "image/png", img.Header().Get(echo.HeaderContentType))
	assert.Equal(t, pngBytes, img.Body.Bytes())
	assert.Equal(t, imageCSP, img.Header().Get("Content-Security-Policy"))
}

func TestImageUploadNonImageIsSilent(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(multipartRequest(t, "/api/v1/profile/image", map[string]string{"source": "drop"},
		upload{name: "notes.txt", contentType: "text/plain", data: []byte("hello")}))
	state := decodeState(t, rec)
	assert.Empty(t, state.ImageError)
	assert.Nil(t, state.Profile.ImageURL)
	assert.Zero(t, s.images.Len())
}

func TestPageAndSubmit(t *testing.T) {
	s := newTestServer(t, nil, true)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)

	body := rec.Body.String()
	assert.Contains(t, body, "Profile Details")
	assert.Contains(t, body, "Your Name")
	assert.Contains(t, body, "Login with UAE PASS")
	assert.NotContains(t, body, "is required.", "errors are only shown after a submit")

	rec = s.do(multipartRequest(t, "/", map[string]string{
		"firstName": "",
		"lastName":  "<script>alert(1)</script>",
		"email":     "jane@example.com",
		"socials.2": "github.com/invalid",
	}), session)
	require.Equal(t, http.StatusOK, rec.Code)

	body = rec.Body.String()
	assert.Contains(t, body, "First Name is required.")
	assert.Contains(t, body, "Please enter a valid linkedin URL (must contain linkedin.com)")
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "mailto:jane@example.com")

	rec = s.do(multipartRequest(t, "/", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"socials.2": "linkedin.com/in/jane",
	}, upload{name: "me.png", contentType: "image/png", data: pngBytes}), session)
	require.Equal(t, http.StatusOK, rec.Code)

	body = rec.Body.String()
	assert.NotContains(t, body, "is required.")
	assert.NotContains(t, body, "Please enter a valid")
	assert.Contains(t, body, "Jane Doe")
	assert.Contains(t, body, `href="linkedin.com/in/jane"`)
	assert.Contains(t, body, ImagesPath+"/")
	assert.Equal(t, 1, s.images.Len())
}

func TestImageUploadRejectsDisguisedHTML(t *testing.T) {
	s := newTestServer(t, nil, true)
	page := upload{
		name:        "a.png",
		contentType: "image/png",
		data:        []byte("<!DOCTYPE html><html><body><script>alert(document.cookie)</script></body></html>"),
	}

	for _, source := range []string{"drop", "picker"} {
		t.Run(source, func(t *testing.T) {
			rec := s.do(multipartRequest(t, "/api/v1/profile/image", map[string]string{"source": source}, page))
			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())

			var env Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			require.NotNil(t, env.Error)
			assert.Equal(t, "unsupported_media_type", env.Error.Code)
			assert.Zero(t, s.images.Len())
		})
	}

	rec := s.do(multipartRequest(t, "/", map[string]string{"firstName": "Jane"}, page))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Zero(t, s.images.Len())
}

func TestBlurField(t *testing.T) {
	s := newTestServer(t, nil, true)

	blur := func(name string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		return s.do(httptest.NewRequest(http.MethodPost, "/api/v1/profile/fields/"+name+"/blur", nil), cookies...)
	}
	decode := func(rec *httptest.ResponseRecorder) FieldCheck {
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var env struct {
			Data FieldCheck `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		return env.Data
	}

	rec := blur("firstName")
	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)
	assert.Equal(t, FieldCheck{Field: "firstName", Error: "First Name is required."}, decode(rec))

	s.do(jsonRequest(http.MethodPut, "/api/v1/profile/fields/firstName", `{"value":"Jane"}`), session)
	assert.Equal(t, FieldCheck{Field: "firstName"}, decode(blur("firstName", session)))

	s.do(jsonRequest(http.MethodPut, "/api/v1/profile/fields/description",
		`{"value":"`+strings.TrimSpace(strings.Repeat("word ", 51))+`"}`), session)
	assert.Equal(t, "Maximum 50 words allowed", decode(blur("description", session)).Error)

	assert.Equal(t, http.StatusBadRequest, blur("imageUrl").Code)
}

func TestDragEvents(t *testing.T) {
	s := newTestServer(t, nil, true)

	drag := func(event string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
		return s.do(jsonRequest(http.MethodPost, "/api/v1/profile/image/drag", `{"event":"`+event+`"}`), cookies...)
	}

	rec := drag("enter")
	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)
	assert.True(t, decodeState(t, rec).Dragging)

	assert.True(t, decodeState(t, drag("over", session)).Dragging)
	assert.False(t, decodeState(t, drag("leave", session)).Dragging)

	decodeState(t, drag("enter", session))
	rec = s.do(multipartRequest(t, "/api/v1/profile/image", map[string]string{"source": "drop"},
		upload{name: "me.png", contentType: "image/png", data: pngBytes}), session)
	state := decodeState(t, rec)
	assert.False(t, state.Dragging, "a drop ends the drag")
	assert.NotNil(t, state.Profile.ImageURL)

	assert.Equal(t, http.StatusBadRequest, drag("hover", session).Code)
}
