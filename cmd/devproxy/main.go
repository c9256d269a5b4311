// Command devproxy terminates HTTPS on localhost and forwards to the
// service, since UAE PASS only redirects back to HTTPS origins.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	if err := run(); err != nil {
		slog.Error("devproxy error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	addr := getEnv("PROXY_ADDR", ":8000")
	target, err := url.Parse(getEnv("PROXY_TARGET", "http://localhost:8002"))
	if err != nil {
		return fmt.Errorf("parse PROXY_TARGET: %w", err)
	}

	certs, err := resolveCertificates(certPaths{
		PEM:    getEnv("LOCALHOST_SSL_PEM", "cert/localhost.pem"),
		KeyPEM: getEnv("LOCALHOST_SSL_KEY_PEM", "cert/localhost-key.pem"),
		Key:    getEnv("LOCALHOST_SSL_KEY", "cert/localhost.key"),
		Cert:   getEnv("LOCALHOST_SSL_CERT", "cert/localhost.crt"),
	}, os.ReadFile)
	if err != nil {
		return err
	}

	e := newProxy(target)
	slog.Info("https proxy listening", "addr", addr, "target", target.String(), "certs", certs.Source)
	if err := e.StartTLS(addr, certs.Cert, certs.Key); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve tls: %w", err)
	}
	return nil
}

func newProxy(target *url.URL) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		slog.Error("proxy error", "path", c.Request().URL.Path, "error", err)
		e.DefaultHTTPErrorHandler(err, c)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: target}}),
	}))
	return e
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
