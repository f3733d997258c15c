package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inboxd/pkg/entities"
	"github.com/inboxd/pkg/vault"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

// SendError is returned when the Graph API rejects a send request.
type SendError struct {
	Status int
	Body   string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("meta: graph api returned %d: %s", e.Status, e.Body)
}

// Client sends direct messages through the Graph API. The page access token
// is decrypted from the channel account credential per call.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		baseURL: graphBaseURL,
	}
}

// SendText sends a text reply to a conversation recipient and returns the
// Graph-assigned message id.
func (c *Client) SendText(ctx context.Context, account *entities.ChannelAccount, recipientID, text string) (string, error) {
	token, err := vault.Decrypt(account.EncryptedAPIKey)
	if err != nil {
		return "", fmt.Errorf("meta: decrypting access token: %w", err)
	}

	body := map[string]any{
		"recipient":    map[string]string{"id": recipientID},
		"message":      map[string]string{"text": text},
		"access_token": token,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, account.Metadata.PageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("meta: calling graph api: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &SendError{Status: resp.StatusCode, Body: string(data)}
	}

	var parsed struct {
		MessageID string `json:"message_id"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("meta: decoding send response: %w", err)
	}
	return parsed.MessageID, nil
}
