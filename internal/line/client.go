package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// MaxContentBytes caps downloaded message content (LINE images are at most
// 10 MB).
const MaxContentBytes = 10 << 20

// maxReplyMessages is the platform's per-reply message limit.
const maxReplyMessages = 5

// ErrContentTooLarge is returned when message content exceeds MaxContentBytes.
var ErrContentTooLarge = errors.New("message content too large")

// Config configures the messaging client. Empty endpoints use the SDK defaults.
type Config struct {
	AccessToken  string
	APIEndpoint  string // https://api.line.me
	DataEndpoint string // https://api-data.line.me
	HTTPClient   *http.Client
}

// Client is the outbound LINE Messaging API client.
type Client struct {
	api  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

// NewClient builds the messaging and blob API clients.
func NewClient(cfg Config) (*Client, error) {
	var apiOpts []messaging_api.MessagingApiAPIOption
	var blobOpts []messaging_api.MessagingApiBlobAPIOption
	if cfg.APIEndpoint != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(cfg.APIEndpoint))
	}
	if cfg.DataEndpoint != "" {
		blobOpts = append(blobOpts, messaging_api.WithBlobEndpoint(cfg.DataEndpoint))
	}
	if cfg.HTTPClient != nil {
		apiOpts = append(apiOpts, messaging_api.WithHTTPClient(cfg.HTTPClient))
		blobOpts = append(blobOpts, messaging_api.WithBlobHTTPClient(cfg.HTTPClient))
	}

	api, err := messaging_api.NewMessagingApiAPI(cfg.AccessToken, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("line messaging client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(cfg.AccessToken, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("line blob client: %w", err)
	}
	return &Client{api: api, blob: blob}, nil
}

// MessageContent downloads the binary content of a message and returns it
// with its MIME type.
func (c *Client) MessageContent(ctx context.Context, messageID string) ([]byte, string, error) {
	resp, err := c.blob.WithContext(ctx).GetMessageContent(messageID)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(data) > MaxContentBytes {
		return nil, "", ErrContentTooLarge
	}
	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return data, strings.TrimSpace(mime), nil
}

// ShowLoading starts the loading animation in a 1:1 chat.
func (c *Client) ShowLoading(ctx context.Context, chatID string, seconds int) error {
	_, err := c.api.WithContext(ctx).ShowLoadingAnimation(&messaging_api.ShowLoadingAnimationRequest{
		ChatId:         chatID,
		LoadingSeconds: int32(seconds),
	})
	return err
}

// DisplayName returns the user's LINE profile display name.
func (c *Client) DisplayName(ctx context.Context, userID string) (string, error) {
	p, err := c.api.WithContext(ctx).GetProfile(userID)
	if err != nil {
		return "", err
	}
	return p.DisplayName, nil
}

// Reply sends up to five text messages through a reply token.
func (c *Client) Reply(ctx context.Context, replyToken string, texts ...string) error {
	if replyToken == "" {
		return errors.New("empty reply token")
	}
	if len(texts) == 0 || len(texts) > maxReplyMessages {
		return fmt.Errorf("reply needs 1..%d messages, got %d", maxReplyMessages, len(texts))
	}
	msgs := make([]messaging_api.MessageInterface, 0, len(texts))
	for _, t := range texts {
		msgs = append(msgs, messaging_api.TextMessage{Text: t})
	}
	_, err := c.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   msgs,
	})
	return err
}
