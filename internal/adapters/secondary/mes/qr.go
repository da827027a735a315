package mes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

const (
	pathAuthorize  = "/sps/oauth/ae"
	pathQRInit     = "/sps/login/methods/qrCode/init"
	pathQRStatus   = "/sps/login/methods/qrCode/status"
	pathQRComplete = "/sps/login/methods/qrCode/complete"

	qrItemShowCode    = "show_qr_code"
	qrCommandWait     = "needComplete"
	qrTokenCookieName = "aupd_token"
)

type qrInitResponse struct {
	Items []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"items"`
}

type qrStatusResponse struct {
	Command string `json:"command"`
}

// QRLogin вход по QR коду. onQR получает содержимое кода для показа пользователю,
// дальше статус опрашивается каждые QRPollInterval не дольше QRTimeout
func (c *Client) QRLogin(ctx context.Context, onQR func(payload string) error) (*domain.TokenSet, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	session := &http.Client{Timeout: c.cfg.Timeout, Jar: jar}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.QRTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("scope", c.cfg.QRScopes)
	q.Set("client_id", c.cfg.QRClientID)
	q.Set("redirect_uri", c.cfg.QRRedirectURI)
	if _, err := c.qrStep(ctx, session, "qr_authorize", http.MethodGet, pathAuthorize, q); err != nil {
		return nil, err
	}

	body, err := c.qrStep(ctx, session, "qr_init", http.MethodPost, pathQRInit, nil)
	if err != nil {
		return nil, err
	}
	var init qrInitResponse
	if err := json.Unmarshal(body, &init); err != nil {
		return nil, fmt.Errorf("mes qr init unmarshal failed: %w", err)
	}

	payload := ""
	for _, item := range init.Items {
		if item.Type == qrItemShowCode {
			payload = item.Value
			break
		}
	}
	if payload == "" {
		return nil, fmt.Errorf("mes qr init: no %s item", qrItemShowCode)
	}

	if err := onQR(payload); err != nil {
		return nil, fmt.Errorf("show qr: %w", err)
	}

	if err := c.waitQRConfirmed(ctx, session); err != nil {
		return nil, err
	}

	if _, err := c.qrStep(ctx, session, "qr_complete", http.MethodPost, pathQRComplete, nil); err != nil {
		return nil, err
	}

	authURL, err := url.Parse(c.authURL("/"))
	if err != nil {
		return nil, fmt.Errorf("parse auth url: %w", err)
	}
	for _, cookie := range jar.Cookies(authURL) {
		if cookie.Name == qrTokenCookieName && cookie.Value != "" {
			return &domain.TokenSet{AccessToken: cookie.Value}, nil
		}
	}
	return nil, domain.ErrNoToken
}

func (c *Client) waitQRConfirmed(ctx context.Context, session *http.Client) error {
	ticker := time.NewTicker(c.cfg.QRPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return qrTimeout(ctx)
		case <-ticker.C:
		}

		body, err := c.qrStep(ctx, session, "qr_status", http.MethodPost, pathQRStatus, nil)
		if err != nil {
			return err
		}

		var status qrStatusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("mes qr status unmarshal failed: %w", err)
		}
		if status.Command != qrCommandWait {
			c.log.Debug("qr login confirmed", "command", status.Command)
			return nil
		}
	}
}

func (c *Client) qrStep(ctx context.Context, session *http.Client, name, method, path string, query url.Values) ([]byte, error) {
	body, err := c.execute(name, func() ([]byte, error) {
		return c.roundTrip(ctx, session, request{name: name, method: method, url: c.authURL(path), query: query})
	})
	if err != nil && ctx.Err() != nil {
		return nil, qrTimeout(ctx)
	}
	return body, err
}

func qrTimeout(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return &domain.UpstreamError{StatusCode: http.StatusRequestTimeout, Method: "qr_login", Err: ctx.Err()}
}
