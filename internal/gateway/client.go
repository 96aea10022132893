package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"agentai-console/internal/config"
	"agentai-console/internal/schedule"
	"agentai-console/pkg/models"

	"github.com/mudler/xlog"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Client talks to the platform REST API. Each call is atomic for its own
// resource only; nothing here spans resources.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	limiter *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	rps := cfg.GatewayRPS
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		BaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		Token:   cfg.APIToken,
		HTTP:    &http.Client{Timeout: cfg.GatewayTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps*2))),
	}
}

// APIError is a non-2xx answer from the platform API.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Payload models.ErrorPayload
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Payload.Toast, "; ")
	if msg == "" && len(e.Payload.Input) > 0 {
		msg = e.Payload.Input[0].Text
	}
	return fmt.Sprintf("API error: %s %s - %d %s", e.Method, e.Path, e.Status, msg)
}

// --- Helper Functions ---

func (c *Client) sendRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "marshal %s %s", method, path)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	contentType := ""
	if body != nil {
		contentType = "application/json"
	}
	return c.do(ctx, method, path, bodyReader, contentType, out)
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, fields [][2]string, file *models.File, out interface{}) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return errors.Wrapf(err, "write field %s", f[0])
		}
	}

	if file != nil && len(file.Data) > 0 {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="fileImage"; filename=%q`, file.Name))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		header.Set("Content-Type", ct)
		part, err := writer.CreatePart(header)
		if err != nil {
			return errors.Wrap(err, "create file part")
		}
		if _, err := part.Write(file.Data); err != nil {
			return errors.Wrap(err, "write file part")
		}
	}

	if err := writer.Close(); err != nil {
		return errors.Wrap(err, "close multipart writer")
	}

	return c.do(ctx, method, path, body, writer.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", method, path)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "read response of %s %s", method, path)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Method: method, Path: path, Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(respBody, &apiErr.Payload); jsonErr != nil || (len(apiErr.Payload.Toast) == 0 && len(apiErr.Payload.Input) == 0) {
			apiErr.Payload = models.ErrorPayload{Toast: []string{strings.TrimSpace(string(respBody))}}
		}
		xlog.Debug("Gateway request failed", "method", method, "path", path, "status", resp.StatusCode)
		return apiErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "decode response of %s %s", method, path)
	}
	return nil
}

func (c *Client) create(ctx context.Context, path string, body interface{}) (int, error) {
	var created models.Created
	if err := c.sendRequest(ctx, http.MethodPost, path, body, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, errors.Errorf("POST %s answered without an id", path)
	}
	return created.ID, nil
}

func (c *Client) remove(ctx context.Context, path string, id int) error {
	return c.sendRequest(ctx, http.MethodDelete, path+"/"+strconv.Itoa(id), nil, nil)
}

// --- Agents ---

func (c *Client) CreateAgent(ctx context.Context, agent models.Agent) (int, error) {
	return c.create(ctx, "/private/agents-ai", agent)
}

func (c *Client) UpdateAgent(ctx context.Context, id int, agent models.Agent) error {
	return c.sendRequest(ctx, http.MethodPut, "/private/agents-ai/"+strconv.Itoa(id), agent, nil)
}

func (c *Client) DeleteAgent(ctx context.Context, id int) error {
	return c.remove(ctx, "/private/agents-ai", id)
}

// TestAgent posts a draft message for a live test. Replies arrive over the
// realtime channel, the response body is ignored.
func (c *Client) TestAgent(ctx context.Context, req models.TestRequest) error {
	return c.sendRequest(ctx, http.MethodPost, "/private/agents-ai/test", req, nil)
}

// --- Flows ---

func (c *Client) CreateFlow(ctx context.Context, flow models.Flow) (int, error) {
	return c.create(ctx, "/private/flows", flow)
}

func (c *Client) DeleteFlow(ctx context.Context, id int) error {
	return c.remove(ctx, "/private/flows", id)
}

// --- Connections ---

func (c *Client) CreateConnectionWA(ctx context.Context, conn models.ConnectionWA) (int, error) {
	fields := [][2]string{
		{"name", conn.Name},
		{"businessId", strconv.Itoa(conn.BusinessID)},
		{"agentId", strconv.Itoa(conn.AgentID)},
		{"description", conn.Description},
		{"profileStatus", conn.ProfileStatus},
		{"lastSeenPrivacy", conn.LastSeenPrivacy},
		{"onlinePrivacy", conn.OnlinePrivacy},
		{"imgPerfilPrivacy", conn.ImgPerfilPrivacy},
		{"statusPrivacy", conn.StatusPrivacy},
		{"groupAddPrivacy", conn.GroupAddPrivacy},
		{"readReceiptsPrivacy", conn.ReadReceiptsPrivacy},
	}

	var created models.Created
	if err := c.sendMultipart(ctx, http.MethodPost, "/private/connections-wa", fields, conn.FileImage, &created); err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, errors.New("POST /private/connections-wa answered without an id")
	}
	return created.ID, nil
}

func (c *Client) DeleteConnectionWA(ctx context.Context, id int) error {
	return c.remove(ctx, "/private/connections-wa", id)
}

func (c *Client) CreateConnectionIg(ctx context.Context, conn models.ConnectionIg) (int, error) {
	return c.create(ctx, "/private/connections-ig", conn)
}

func (c *Client) DeleteConnectionIg(ctx context.Context, id int) error {
	return c.remove(ctx, "/private/connections-ig", id)
}

// --- Chatbots ---

func (c *Client) CreateChatbot(ctx context.Context, bot models.Chatbot) (int, error) {
	bot.OperatingDays = schedule.Normalize(bot.OperatingDays)
	return c.create(ctx, "/private/chatbots", bot)
}

func (c *Client) UpdateChatbot(ctx context.Context, id int, bot models.Chatbot) error {
	bot.OperatingDays = schedule.Normalize(bot.OperatingDays)
	return c.sendRequest(ctx, http.MethodPut, "/private/chatbots/"+strconv.Itoa(id), bot, nil)
}

func (c *Client) DeleteChatbot(ctx context.Context, id int) error {
	return c.remove(ctx, "/private/chatbots", id)
}
