package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/marcelsud/vendor-relay/dispatch"
)

const (
	DefaultBaseURL  = "https://graph.facebook.com/v20.0"
	defaultLanguage = "en"
	defaultTimeout  = 15 * time.Second

	maxErrorBody = 4 << 10
)

// ErrNoMessageID is returned when the API accepts a send but returns no message id
var ErrNoMessageID = errors.New("no message id in response")

/* Client sends template messages through the WhatsApp Cloud API
 * POST {BaseURL}/{PhoneNumberID}/messages with a bearer token
 */
type Client struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
	Language      string
	HTTPClient    *http.Client
}

var _ dispatch.Sender = (*Client)(nil)

func NewClient(baseURL, phoneNumberID, accessToken, language string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if language == "" {
		language = defaultLanguage
	}
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		PhoneNumberID: phoneNumberID,
		AccessToken:   accessToken,
		Language:      language,
		HTTPClient:    &http.Client{Timeout: defaultTimeout},
	}
}

type templateRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Template         template `json:"template"`
}

type template struct {
	Name     string   `json:"name"`
	Language language `json:"language"`
}

type language struct {
	Code string `json:"code"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendTemplate sends a template message to phone and returns the provider message id
func (c *Client) SendTemplate(ctx context.Context, phone, templateName string) (string, error) {
	body, err := json.Marshal(templateRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "template",
		Template: template{
			Name:     templateName,
			Language: language{Code: c.Language},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling template request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.BaseURL, c.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending template: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp)
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding send response: %w", err)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", ErrNoMessageID
	}

	return out.Messages[0].ID, nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var e errorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Error.Message != "" {
		return fmt.Errorf("whatsapp api status %d (code %d): %s", resp.StatusCode, e.Error.Code, e.Error.Message)
	}
	return fmt.Errorf("whatsapp api status %d", resp.StatusCode)
}
