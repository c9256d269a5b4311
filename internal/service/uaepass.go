package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/sumire/profilecreator/internal/domain"
)

// UAEPassConfig holds the UAE PASS client configuration.
type UAEPassConfig struct {
	ClientID     string
	ClientSecret string
	// BaseURL is the idshub root; /authorize, /token and /userinfo hang off it.
	BaseURL     string
	RedirectURL string
	Scope       string
	ACRValues   string
	// StateSecret enables signed state verification on the callback when set.
	StateSecret string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// UAEPass runs the UAE PASS authorization code flow.
type UAEPass struct {
	oauth       *oauth2.Config
	userInfoURL string
	acrValues   string
	timeout     time.Duration
	client      *http.Client
	states      *StateSigner
}

// NewUAEPass creates a new UAEPass service.
func NewUAEPass(cfg UAEPassConfig) *UAEPass {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	s := &UAEPass{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.BaseURL + "/authorize",
				TokenURL:  cfg.BaseURL + "/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      []string{cfg.Scope},
		},
		userInfoURL: cfg.BaseURL + "/userinfo",
		acrValues:   cfg.ACRValues,
		timeout:     cfg.Timeout,
		client:      client,
	}
	if cfg.StateSecret != "" {
		s.states = NewStateSigner(cfg.StateSecret, 10*time.Minute)
	}
	return s
}

// AuthURL returns the UAE PASS authorization URL the browser is sent to.
func (s *UAEPass) AuthURL() (string, error) {
	state := generateState()
	if s.states != nil {
		signed, err := s.states.Issue()
		if err != nil {
			return "", err
		}
		state = signed
	}
	return s.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("acr_values", s.acrValues)), nil
}

// Callback exchanges the authorization code for an access token, fetches
// the user info and returns the user's display name. Every failure is a
// *domain.LoginError and nothing is retried.
func (s *UAEPass) Callback(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", &domain.LoginError{Reason: domain.ReasonMissingCode}
	}

	if s.states != nil {
		if err := s.states.Verify(state); err != nil {
			return "", &domain.LoginError{Reason: domain.ReasonInvalidState, Err: err}
		}
	}

	token, err := s.exchange(ctx, code)
	if err != nil {
		return "", err
	}

	return s.fetchFullName(ctx, token)
}

func (s *UAEPass) exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()

	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			return nil, &domain.LoginError{Reason: statusReason("token", rErr.Response.StatusCode), Err: err}
		}
		if status := transportStatus(err); status != 0 {
			return nil, &domain.LoginError{Reason: statusReason("token", status), Err: err}
		}
		// A successful response that carries no usable access_token.
		return nil, &domain.LoginError{Reason: domain.ReasonMissingToken, Err: err}
	}
	if token.AccessToken == "" {
		return nil, &domain.LoginError{Reason: domain.ReasonMissingToken}
	}
	return token, nil
}

func (s *UAEPass) fetchFullName(ctx context.Context, token *oauth2.Token) (string, error) {
	ctx, cancel := s.upstreamContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return "", &domain.LoginError{Reason: statusReason("userinfo", http.StatusBadGateway), Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)).Do(req)
	if err != nil {
		status := transportStatus(err)
		if status == 0 {
			status = http.StatusBadGateway
		}
		return "", &domain.LoginError{Reason: statusReason("userinfo", status), Err: fmt.Errorf("fetch user info: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.LoginError{
			Reason: statusReason("userinfo", resp.StatusCode),
			Err:    fmt.Errorf("uaepass user info returned status %d", resp.StatusCode),
		}
	}

	var info map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &domain.LoginError{Reason: domain.ReasonUserInfoInvalid, Err: fmt.Errorf("decode user info: %w", err)}
	}
	return fullName(info), nil
}

// upstreamContext bounds one upstream call and routes it through s.client.
func (s *UAEPass) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// fullName picks the English full name, trying the spellings UAE PASS has
// used over time.
func fullName(info map[string]any) string {
	for _, key := range []string{"fullnameEN", "fullnameEn", "fullname"} {
		if v, ok := info[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func statusReason(step string, status int) string {
	return fmt.Sprintf("%s_%d", step, status)
}

// transportStatus maps a failed round trip to the gateway status it is
// reported as: 504 for timeouts, 502 for anything else. It returns 0 when
// err is not a transport error.
func transportStatus(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return http.StatusGatewayTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return http.StatusBadGateway
	}
	return 0
}
