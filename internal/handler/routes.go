package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ImagesPath is where stored profile pictures are served. Image stores
// handed to NewProfileHandler must issue references under it.
const ImagesPath = "/api/v1/profile/images"

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Auth        *AuthHandler
	Profiles    *ProfileHandler
	Renderer    echo.Renderer
	Development bool
}

// NewRouter builds the echo instance serving every route of the service.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = NewAppValidator()
	e.Renderer = cfg.Renderer

	e.Use(middleware.RequestID())
	e.Use(RequestLogger())
	e.Use(middleware.Recover())
	e.Use(SecurityHeaders(cfg.Development))

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Pages
	e.GET("/", cfg.Profiles.Page)
	e.POST("/", cfg.Profiles.Submit)

	// UAE PASS
	e.GET("/uaepass", cfg.Auth.LoginPage)
	e.GET("/login", cfg.Auth.Login)
	e.GET("/callback", cfg.Auth.Callback)
	e.GET("/logout", cfg.Auth.Logout)

	api := e.Group("/api/v1/profile")
	api.GET("", cfg.Profiles.Get)
	api.PUT("/fields/:name", cfg.Profiles.UpdateField)
	api.POST("/fields/:name/blur", cfg.Profiles.BlurField)
	api.PUT("/socials/:index", cfg.Profiles.UpdateSocial)
	api.POST("/image", cfg.Profiles.UploadImage)
	api.POST("/image/drag", cfg.Profiles.Drag)
	e.GET(ImagesPath+"/:id", cfg.Profiles.Image)

	return e
}
