package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sumire/profilecreator/internal/domain"
	"github.com/sumire/profilecreator/internal/service"
)

// FullNameCookie carries the UAE PASS display name. It is the whole session.
const FullNameCookie = "uaepass_fullname"

// AuthHandler handles the UAE PASS login endpoints.
type AuthHandler struct {
	auth      *service.UAEPass
	publicURL string
}

// NewAuthHandler creates a new AuthHandler. Redirects are absolute URLs on
// publicURL so they stay on the HTTPS origin UAE PASS calls back to.
func NewAuthHandler(auth *service.UAEPass, publicURL string) *AuthHandler {
	return &AuthHandler{auth: auth, publicURL: strings.TrimSuffix(publicURL, "/")}
}

type loginPage struct {
	AuthURL   string
	ErrorCode string
	FullName  string
}

// LoginPage renders the "Login with UAE PASS" page. A failed callback lands
// here with ?error=<reason>.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	authURL, err := h.auth.AuthURL()
	if err != nil {
		return err
	}
	name, _ := FullName(c)
	return c.Render(http.StatusOK, "uaepass.html", loginPage{
		AuthURL:   authURL,
		ErrorCode: c.QueryParam("error"),
		FullName:  name,
	})
}

// Login redirects the browser straight to the UAE PASS authorize endpoint.
func (h *AuthHandler) Login(c echo.Context) error {
	authURL, err := h.auth.AuthURL()
	if err != nil {
		return err
	}
	return c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback handles the redirect back from UAE PASS. Failures never surface
// as errors to the browser, only as an opaque ?error= code on the login page.
func (h *AuthHandler) Callback(c echo.Context) error {
	name, err := h.auth.Callback(c.Request().Context(), c.QueryParam("code"), c.QueryParam("state"))
	if err != nil {
		var loginErr *domain.LoginError
		if !errors.As(err, &loginErr) {
			loginErr = &domain.LoginError{Reason: "internal", Err: err}
		}
		slog.Warn("uaepass callback failed", "reason", loginErr.Reason, "error", err)
		return c.Redirect(http.StatusTemporaryRedirect,
			h.publicURL+"/uaepass?error="+url.QueryEscape(loginErr.Reason))
	}

	c.SetCookie(h.fullNameCookie(url.PathEscape(name), 0))
	slog.Info("uaepass login succeeded")
	return c.Redirect(http.StatusTemporaryRedirect, h.publicURL+"/")
}

// Logout clears the session cookie and returns to the application root.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(h.fullNameCookie("", -1))
	return c.Redirect(http.StatusTemporaryRedirect, h.publicURL+"/")
}

func (h *AuthHandler) fullNameCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     FullNameCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.publicURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	}
}

// FullName returns the UAE PASS display name from the session cookie and
// whether a session is present at all.
func FullName(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(FullNameCookie)
	if err != nil {
		return "", false
	}
	name, err := url.PathUnescape(cookie.Value)
	if err != nil {
		return cookie.Value, true
	}
	return name, true
}
