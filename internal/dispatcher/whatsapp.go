package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jmehdipour/washcorner-notify/internal/util"
)

const defaultWhatsAppTimeout = 10 * time.Second

var ErrBreakerOpen = errors.New("whatsapp channel temporarily disabled after repeated failures")

// APIError is a non-2xx answer from the Graph API.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != 0 {
		return fmt.Sprintf("whatsapp api status=%d code=%d: %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("whatsapp api status=%d: %s", e.StatusCode, msg)
}

type waTextBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type waMessageRequest struct {
	MessagingProduct string     `json:"messaging_product"`
	RecipientType    string     `json:"recipient_type"`
	To               string     `json:"to"`
	Type             string     `json:"type"`
	Text             waTextBody `json:"text"`
}

type waMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type waErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type WhatsAppOpts struct {
	BaseURL       string // https://graph.facebook.com
	APIVersion    string // v18.0
	Credentials   Credentials
	TimeoutMs     int
	FailThreshold int
	OpenForMs     int
}

// WhatsAppSender posts text messages to the WhatsApp Business Cloud API.
// It never retries; a failed call is reported once.
type WhatsAppSender struct {
	client *resty.Client
	path   string
	br     *MicroBreaker
}

var _ Sender = (*WhatsAppSender)(nil)

func NewWhatsAppSender(opts WhatsAppOpts) (*WhatsAppSender, error) {
	return NewWhatsAppSenderWithClient(opts, resty.New())
}

func NewWhatsAppSenderWithClient(opts WhatsAppOpts, client *resty.Client) (*WhatsAppSender, error) {
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if !opts.Credentials.Complete() {
		return nil, fmt.Errorf("whatsapp credentials are incomplete")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("whatsapp base url is required")
	}
	version := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if version == "" {
		version = "v18.0"
	}

	timeout := defaultWhatsAppTimeout
	if opts.TimeoutMs > 0 {
		timeout = time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	openFor := 30 * time.Second
	if opts.OpenForMs > 0 {
		openFor = time.Duration(opts.OpenForMs) * time.Millisecond
	}

	client.
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetAuthToken(opts.Credentials.AccessToken).
		SetHeader("Content-Type", "application/json")

	return &WhatsAppSender{
		client: client,
		path:   "/" + version + "/" + opts.Credentials.PhoneNumberID + "/messages",
		br:     NewMicroBreaker(opts.FailThreshold, openFor),
	}, nil
}

func (s *WhatsAppSender) Kind() ChannelKind { return ChannelBusinessAPI }

// BreakerOpen reports whether sends are currently refused after repeated failures.
func (s *WhatsAppSender) BreakerOpen() bool { return s.br.Open() }

func (s *WhatsAppSender) Send(ctx context.Context, phone, text string) error {
	if !s.br.TryAcquire() {
		return ErrBreakerOpen
	}

	if err := s.post(ctx, phone, text); err != nil {
		s.br.OnFailure()
		return err
	}

	s.br.OnSuccess()
	return nil
}

func (s *WhatsAppSender) post(ctx context.Context, phone, text string) error {
	req := waMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               util.NormalizePhone(phone),
		Type:             "text",
		Text:             waTextBody{Body: text},
	}

	var out waMessageResponse
	var apiErr waErrorResponse
	res, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&apiErr).
		Post(s.path)
	if err != nil {
		return fmt.Errorf("whatsapp request: %w", err)
	}

	if res.IsError() || res.StatusCode()/100 != 2 {
		return &APIError{
			StatusCode: res.StatusCode(),
			Code:       apiErr.Error.Code,
			Type:       apiErr.Error.Type,
			Message:    apiErr.Error.Message,
		}
	}

	if len(out.Messages) == 0 {
		return fmt.Errorf("whatsapp api returned no message id")
	}

	return nil
}
