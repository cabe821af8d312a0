package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"showdesk/internal/models"
)

// APIError is a server-reported failure, carrying the envelope code so
// callers can distinguish validation problems from transient ones.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server returned %d (%s)", e.Status, e.Code)
}

// HTTPClient implements API against the showdesk REST server.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// HealthURL returns the endpoint the connectivity prober should watch.
func (c *HTTPClient) HealthURL() string {
	return c.baseURL + "/health"
}

func (c *HTTPClient) ListMessages(ctx context.Context, eventID string, opts ListOptions) (*ListResult, error) {
	path := fmt.Sprintf("/api/v1/events/%s/messages", url.PathEscape(eventID))
	if opts.Limit > 0 {
		path += "?limit=" + strconv.Itoa(opts.Limit)
	}

	var result ListResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) SendMessage(ctx context.Context, eventID string, req SendRequest) (*models.Message, error) {
	path := fmt.Sprintf("/api/v1/events/%s/messages", url.PathEscape(eventID))

	var msg models.Message
	if err := c.doJSON(ctx, http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *HTTPClient) ToggleReaction(ctx context.Context, messageID, emoji string) (*ReactionResult, error) {
	path := fmt.Sprintf("/api/v1/messages/%s/reactions", url.PathEscape(messageID))
	body := map[string]string{"emoji": emoji}

	var result ReactionResult
	if err := c.doJSON(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GetConversation(ctx context.Context, eventID string) (*models.Conversation, error) {
	path := fmt.Sprintf("/api/v1/events/%s/conversation", url.PathEscape(eventID))

	var conv models.Conversation
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *HTTPClient) SaveConversation(ctx context.Context, eventID string, patch models.ConversationPatch) (*models.Conversation, error) {
	path := fmt.Sprintf("/api/v1/events/%s/conversation", url.PathEscape(eventID))

	var conv models.Conversation
	if err := c.doJSON(ctx, http.MethodPatch, path, patch, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *HTTPClient) TranslateMessage(ctx context.Context, messageID, targetLanguage string) (*Translation, error) {
	path := fmt.Sprintf("/api/v1/messages/%s/translate", url.PathEscape(messageID))
	body := map[string]string{"targetLanguage": targetLanguage}

	var translation Translation
	if err := c.doJSON(ctx, http.MethodPost, path, body, &translation); err != nil {
		return nil, err
	}
	return &translation, nil
}

func (c *HTTPClient) UploadAttachment(ctx context.Context, src io.Reader, meta UploadMeta) (*models.Attachment, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", meta.Name)
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, fmt.Errorf("reading attachment data: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/uploads", &buf)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeAPIError(resp)
	}

	var att models.Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	return &att, nil
}

// Roster fetches the event's staff list and role keys for mention
// resolution.
func (c *HTTPClient) Roster(ctx context.Context, eventID string) ([]models.StaffMember, []string, error) {
	path := fmt.Sprintf("/api/v1/events/%s/roster", url.PathEscape(eventID))

	var result struct {
		Staff    []models.StaffMember `json:"staff"`
		RoleKeys []string             `json:"roleKeys"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, nil, err
	}
	return result.Staff, result.RoleKeys, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
