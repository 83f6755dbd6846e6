package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient talks to the identity provider's verification endpoint over
// HTTPS. Any transport or 5xx failure surfaces as a plain error so the
// orchestrator can classify it as a platform fault; only the provider's
// explicit verdicts map to the sentinel errors.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	SubjectID     string `json:"subject_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name"`
	PictureURL    string `json:"picture_url"`
	EmailVerified bool   `json:"email_verified"`
}

func (c *HTTPClient) VerifyCredential(ctx context.Context, rawToken string) (*VerifiedIdentity, error) {
	var out verifyResponse
	status, err := c.post(ctx, "/v1/tokens/verify", verifyRequest{Token: rawToken}, &out)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusOK:
		return &VerifiedIdentity{
			SubjectID:     out.SubjectID,
			Email:         out.Email,
			DisplayName:   out.DisplayName,
			PictureURL:    out.PictureURL,
			EmailVerified: out.EmailVerified,
		}, nil
	case status == http.StatusNotFound:
		return nil, ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusBadRequest:
		return nil, ErrTokenInvalid
	default:
		return nil, fmt.Errorf("identity provider verify: unexpected status %d", status)
	}
}

type provisionRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type provisionResponse struct {
	SubjectID string `json:"subject_id"`
}

func (c *HTTPClient) Provision(ctx context.Context, in NewAccount) (string, error) {
	var out provisionResponse
	status, err := c.post(ctx, "/v1/accounts", provisionRequest{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.FullName,
	}, &out)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusCreated, http.StatusOK:
		return out.SubjectID, nil
	case http.StatusConflict:
		return "", ErrEmailTaken
	default:
		return "", fmt.Errorf("identity provider provision: unexpected status %d", status)
	}
}

func (c *HTTPClient) post(ctx context.Context, path string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
			return 0, fmt.Errorf("decode identity provider response: %w", err)
		}
	}
	return resp.StatusCode, nil
}
