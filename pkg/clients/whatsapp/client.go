package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/croptrace/internal/config"
)

// MaxTextLength is the Cloud API limit on a text message body.
const MaxTextLength = 4096

// Message is an outbound text notification.
type Message struct {
	To         string
	Text       string
	PreviewURL bool
}

// Client delivers text notifications through the WhatsApp Cloud API.
type Client interface {
	// Send delivers msg, split into several messages when the text is too
	// long, and returns the id of each message sent.
	Send(ctx context.Context, msg Message) ([]string, error)
}

// APIError is a rejection reported by the Cloud API.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api error: status=%d code=%d: %s", e.Status, e.Code, e.Message)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	http          *resty.Client
	phoneNumberID string
}

// NewClient builds a client for the phone number and API version in cfg.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	rc := resty.New().
		SetBaseURL(base+"/"+cfg.APIVersion).
		SetAuthToken(cfg.AccessToken).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() >= http.StatusInternalServerError
		})
	return &APIClient{http: rc, phoneNumberID: cfg.PhoneNumberID}
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type textPayload struct {
	Product string   `json:"messaging_product"`
	To      string   `json:"to"`
	Type    string   `json:"type"`
	Text    textBody `json:"text"`
}

type sendResult struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (c *APIClient) Send(ctx context.Context, msg Message) ([]string, error) {
	if msg.To == "" {
		return nil, errors.New("send whatsapp message: recipient is empty")
	}
	var ids []string
	for _, part := range splitText(msg.Text, MaxTextLength) {
		id, err := c.post(ctx, textPayload{
			Product: "whatsapp",
			To:      msg.To,
			Type:    "text",
			Text:    textBody{Body: part, PreviewURL: msg.PreviewURL},
		})
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *APIClient) post(ctx context.Context, payload textPayload) (string, error) {
	result := new(sendResult)
	envelope := new(errorEnvelope)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(result).
		SetError(envelope).
		Post(c.phoneNumberID + "/messages")
	if err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}
	if resp.IsError() {
		return "", &APIError{Status: resp.StatusCode(), Code: envelope.Error.Code, Message: envelope.Error.Message}
	}
	if len(result.Messages) == 0 {
		return "", nil
	}
	return result.Messages[0].ID, nil
}

// splitText cuts text into parts of at most limit runes, preferring line
// breaks so digest entries stay whole.
func splitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		if part := strings.TrimRight(string(runes[:cut]), "\n"); part != "" {
			parts = append(parts, part)
		}
		runes = runes[cut:]
	}
	if part := strings.TrimRight(string(runes), "\n"); part != "" {
		parts = append(parts, part)
	}
	return parts
}
