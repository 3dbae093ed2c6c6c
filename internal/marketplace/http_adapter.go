package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBody = 64 << 10

// HTTPAdapter publishes to a JSON API:
//
//	POST {base}/listings  Authorization: Bearer <token>
//	  -> {"listing_id": "..."} or {"id": "..."}
type HTTPAdapter struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

type HTTPAdapterOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

func NewHTTPAdapter(opts HTTPAdapterOptions) (*HTTPAdapter, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		return nil, errors.New("BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	to := opts.Timeout
	if to <= 0 {
		to = 60 * time.Second
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "listpilot/1.0"
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: to}
	}
	return &HTTPAdapter{
		baseURL:   strings.TrimRight(base, "/"),
		client:    client,
		userAgent: ua,
	}, nil
}

func (a *HTTPAdapter) Publish(ctx context.Context, listing Listing, bearerToken string) (*PublishResult, error) {
	payload, err := json.Marshal(listing)
	if err != nil {
		return nil, &Failure{Kind: KindValidation, Message: fmt.Sprintf("encode listing: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/listings", bytes.NewReader(payload))
	if err != nil {
		return nil, &Failure{Kind: KindUnknown, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &Failure{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Failure{
			Kind:       classifyStatus(resp.StatusCode),
			Message:    errorMessage(resp.StatusCode, body),
			StatusCode: resp.StatusCode,
		}
	}

	var out struct {
		ListingID string `json:"listing_id"`
		ID        string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &Failure{Kind: KindUnknown, Message: fmt.Sprintf("decode publish response: %v", err), StatusCode: resp.StatusCode}
	}
	id := out.ListingID
	if id == "" {
		id = out.ID
	}
	if id == "" {
		return nil, &Failure{Kind: KindUnknown, Message: "publish response carries no listing id", StatusCode: resp.StatusCode}
	}
	return &PublishResult{ExternalID: id}, nil
}

func classifyStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthInvalid
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		return KindTransient
	}
	return KindUnknown
}

// errorMessage prefers a JSON {"message"} or {"error"} field and falls back to
// the raw body.
func errorMessage(status int, body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return msg
}
