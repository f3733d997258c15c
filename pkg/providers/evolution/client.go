package evolution

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

	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/vault"
)

// SendError is returned when the gateway answers a request with a non-2xx
// status. The body is kept verbatim so operators can see the gateway's own
// error text.
type SendError struct {
	Status int
	Body   string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("evolution: gateway returned %d: %s", e.Status, e.Body)
}

// Media is the decoded result of a media fetch.
type Media struct {
	Base64   string `json:"base64"`
	Mimetype string `json:"mimetype"`
}

type sendResponse struct {
	Key MessageKey `json:"key"`
}

// Client talks to an Evolution API gateway on behalf of a channel account.
// The base url and instance name come from the account metadata and the api
// key is decrypted from the account's stored credential per call, so one
// client serves every WhatsApp account.
type Client struct {
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// SendText sends a plain text message and returns the gateway-assigned
// message id, which the processor later uses to reconcile the outbound echo.
func (c *Client) SendText(ctx context.Context, account *entities.ChannelAccount, number, text string) (string, error) {
	body := map[string]any{
		"number": number,
		"text":   text,
	}
	resp, err := c.post(ctx, account, "/message/sendText/", body)
	if err != nil {
		return "", err
	}

	var parsed sendResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return "", fmt.Errorf("evolution: decoding send response: %w", err)
	}
	return parsed.Key.ID, nil
}

// SendMedia sends a base64-encoded media message with an optional caption.
func (c *Client) SendMedia(ctx context.Context, account *entities.ChannelAccount, number, mediaType, mimetype, caption, base64Data, fileName string) (string, error) {
	body := map[string]any{
		"number":    number,
		"mediatype": mediaType,
		"mimetype":  mimetype,
		"caption":   caption,
		"media":     base64Data,
		"fileName":  fileName,
	}
	resp, err := c.post(ctx, account, "/message/sendMedia/", body)
	if err != nil {
		return "", err
	}

	var parsed sendResponse
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return "", fmt.Errorf("evolution: decoding send response: %w", err)
	}
	return parsed.Key.ID, nil
}

// FetchMedia downloads the media attached to a message as base64. Gateway
// versions disagree on the request shape, so a second attempt with the older
// bare-key body runs when the first is rejected.
func (c *Client) FetchMedia(ctx context.Context, account *entities.ChannelAccount, messageID string) (*Media, error) {
	body := map[string]any{
		"message": map[string]any{
			"key": map[string]any{"id": messageID},
		},
		"convertToMp4": false,
	}
	resp, err := c.post(ctx, account, "/chat/getBase64FromMediaMessage/", body)
	if err != nil {
		var sendErr *SendError
		if !errors.As(err, &sendErr) {
			return nil, err
		}
		resp, err = c.post(ctx, account, "/chat/getBase64FromMediaMessage/", map[string]any{
			"key": map[string]any{"id": messageID},
		})
		if err != nil {
			return nil, err
		}
	}

	var media Media
	if err := json.Unmarshal(resp, &media); err != nil {
		return nil, fmt.Errorf("evolution: decoding media response: %w", err)
	}
	return &media, nil
}

// ChatExists asks the gateway whether a number is registered on WhatsApp.
func (c *Client) ChatExists(ctx context.Context, account *entities.ChannelAccount, number string) (bool, error) {
	resp, err := c.post(ctx, account, "/chat/whatsappNumbers/", map[string]any{
		"numbers": []string{number},
	})
	if err != nil {
		return false, err
	}

	var parsed []struct {
		Exists bool `json:"exists"`
	}
	if err := json.Unmarshal(resp, &parsed); err != nil {
		return false, fmt.Errorf("evolution: decoding exists response: %w", err)
	}
	return len(parsed) > 0 && parsed[0].Exists, nil
}

func (c *Client) post(ctx context.Context, account *entities.ChannelAccount, path string, body any) ([]byte, error) {
	apiKey, err := vault.Decrypt(account.EncryptedAPIKey)
	if err != nil {
		return nil, fmt.Errorf("evolution: decrypting api key: %w", err)
	}

	base := strings.TrimRight(account.Metadata.BaseURL, "/")
	url := base + path + account.Metadata.InstanceName

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("evolution: calling gateway: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SendError{Status: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
