package mes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/service"
)

const (
	pathPasswordLogin = "/sps/login/methods/password"
	pathSMSVerify     = "/sps/login/methods/sms/verify"
	pathTokenEndpoint = "/sps/oauth/te"
)

func (c *Client) authURL(path string) string {
	return strings.TrimSuffix(c.cfg.AuthBaseURL, "/") + path
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Login первый шаг входа по паролю, МЭШ отправляет SMS код
func (c *Client) Login(ctx context.Context, username, password string) (service.SMSHandle, error) {
	body, err := c.do(ctx, request{
		name:   "login",
		method: http.MethodPost,
		url:    c.authURL(pathPasswordLogin),
		body:   map[string]string{"login": username, "password": password},
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mes login unmarshal failed: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("mes login: empty session_id")
	}

	return &smsHandle{client: c, sessionID: resp.SessionID}, nil
}

// NewSMSHandle восстанавливает второй шаг по сохранённому session_id
func (c *Client) NewSMSHandle(sessionID string) service.SMSHandle {
	return &smsHandle{client: c, sessionID: sessionID}
}

type smsHandle struct {
	client    *Client
	sessionID string
}

func (h *smsHandle) SessionID() string {
	return h.sessionID
}

func (h *smsHandle) EnterCode(ctx context.Context, code string) (*domain.TokenSet, error) {
	body, err := h.client.do(ctx, request{
		name:   "enter_code",
		method: http.MethodPost,
		url:    h.client.authURL(pathSMSVerify),
		body:   map[string]string{"session_id": h.sessionID, "code": code},
	})
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("mes enter code unmarshal failed: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, domain.ErrNoToken
	}

	return &domain.TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ClientID:     resp.ClientID,
		ClientSecret: resp.ClientSecret,
	}, nil
}

// RefreshToken grant_type=refresh_token с client credentials в теле запроса
func (c *Client) RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*domain.TokenSet, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.authURL(pathTokenEndpoint),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	var token *oauth2.Token
	_, err := c.execute("refresh_token", func() ([]byte, error) {
		t, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
		if err != nil {
			return nil, refreshError(ctx, err)
		}
		token = t
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if token.AccessToken == "" {
		return nil, domain.ErrNoToken
	}

	return &domain.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ClientID:     clientID,
		ClientSecret: clientSecret,
	}, nil
}

func refreshError(ctx context.Context, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		return &domain.UpstreamError{
			StatusCode: retrieveErr.Response.StatusCode,
			Method:     "refresh_token",
			Body:       truncateString(string(retrieveErr.Body), 500),
		}
	}
	if isTimeout(ctx, err) {
		return &domain.UpstreamError{StatusCode: http.StatusRequestTimeout, Method: "refresh_token", Err: err}
	}
	return fmt.Errorf("mes refresh token: %w", err)
}
