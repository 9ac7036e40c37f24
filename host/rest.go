package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/warp/timee/generic"
)

// =============================================================================
// REST CLIENT - Rocket.Chat-style REST API
// =============================================================================
// Authenticates with a personal access token (X-User-Id / X-Auth-Token).
// Every call is a single request; nothing is retried.

type RESTClient struct {
	baseURL string
	userID  string
	token   string
	http    *http.Client
}

// NewRESTClient creates a client for the API rooted at baseURL.
func NewRESTClient(baseURL, userID, token string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-success response.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// -----------------------------------------------------------------------------
// wire types
// -----------------------------------------------------------------------------

type restUser struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	UTCOffset float64   `json:"utcOffset"`
	CreatedAt time.Time `json:"createdAt"`
	Active    bool      `json:"active"`
	Type      string    `json:"type"`
	Roles     []string  `json:"roles"`
}

func (u restUser) toUser() User {
	return User{
		ID:        generic.UserID(u.ID),
		Username:  u.Username,
		Name:      u.Name,
		UTCOffset: u.UTCOffset,
		CreatedAt: u.CreatedAt,
		Enabled:   u.Active,
		Bot:       u.Type == "bot" || u.Type == "app",
		Roles:     u.Roles,
	}
}

type restRoom struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type restMessage struct {
	ID     string `json:"_id"`
	RoomID string `json:"rid"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// =============================================================================
// DIRECTORY
// =============================================================================

func (c *RESTClient) UserByID(ctx context.Context, id generic.UserID) (*User, error) {
	return c.userInfo(ctx, url.Values{"userId": {string(id)}})
}

func (c *RESTClient) UserByUsername(ctx context.Context, username string) (*User, error) {
	return c.userInfo(ctx, url.Values{"username": {username}})
}

func (c *RESTClient) userInfo(ctx context.Context, q url.Values) (*User, error) {
	var resp struct {
		User restUser `json:"user"`
	}
	if err := c.get(ctx, "users.info", q, &resp); err != nil {
		return nil, err
	}
	u := resp.User.toUser()
	return &u, nil
}

func (c *RESTClient) RoomByID(ctx context.Context, id generic.RoomID) (*Room, error) {
	return c.roomInfo(ctx, url.Values{"roomId": {string(id)}})
}

func (c *RESTClient) RoomByName(ctx context.Context, name string) (*Room, error) {
	return c.roomInfo(ctx, url.Values{"roomName": {name}})
}

func (c *RESTClient) roomInfo(ctx context.Context, q url.Values) (*Room, error) {
	var resp struct {
		Room restRoom `json:"room"`
	}
	if err := c.get(ctx, "rooms.info", q, &resp); err != nil {
		return nil, err
	}
	return &Room{ID: generic.RoomID(resp.Room.ID), Name: resp.Room.Name}, nil
}

// Members lists the room and then resolves each member, since the listing
// carries neither account state nor roles.
func (c *RESTClient) Members(ctx context.Context, room generic.RoomID) ([]User, error) {
	var resp struct {
		Members []restUser `json:"members"`
	}
	q := url.Values{"roomId": {string(room)}, "count": {"0"}}
	if err := c.get(ctx, "channels.members", q, &resp); err != nil {
		return nil, err
	}

	out := make([]User, 0, len(resp.Members))
	for _, m := range resp.Members {
		u, err := c.UserByID(ctx, generic.UserID(m.ID))
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

// =============================================================================
// MESSENGER
// =============================================================================

func (c *RESTClient) Send(ctx context.Context, room generic.RoomID, msg Message) (generic.MessageID, error) {
	body := map[string]string{"roomId": string(room), "text": msg.Text}
	if msg.Avatar != "" {
		body["avatar"] = msg.Avatar
	}
	var resp struct {
		Message restMessage `json:"message"`
	}
	if err := c.post(ctx, "chat.postMessage", body, &resp); err != nil {
		return "", err
	}
	return generic.MessageID(resp.Message.ID), nil
}

func (c *RESTClient) Update(ctx context.Context, id generic.MessageID, msg Message) error {
	found, err := c.getMessage(ctx, id)
	if err != nil {
		return err
	}
	body := map[string]string{"roomId": found.RoomID, "msgId": string(id), "text": msg.Text}
	return c.post(ctx, "chat.update", body, nil)
}

// Notify posts text into the direct conversation with the user; the REST
// API has no ephemeral messages.
func (c *RESTClient) Notify(ctx context.Context, user generic.UserID, _ generic.RoomID, text string) error {
	u, err := c.UserByID(ctx, user)
	if err != nil {
		return err
	}
	dm, err := c.DirectRoom(ctx, u.Username)
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, dm.ID, Message{Text: text})
	return err
}

func (c *RESTClient) MessageExists(ctx context.Context, id generic.MessageID) (bool, error) {
	_, err := c.getMessage(ctx, id)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		return false, nil
	}
	return false, err
}

func (c *RESTClient) getMessage(ctx context.Context, id generic.MessageID) (*restMessage, error) {
	var resp struct {
		Message *restMessage `json:"message"`
	}
	if err := c.get(ctx, "chat.getMessage", url.Values{"msgId": {string(id)}}, &resp); err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, &APIError{Endpoint: "chat.getMessage", Status: http.StatusNotFound, Message: "message not found"}
	}
	return resp.Message, nil
}

func (c *RESTClient) DirectRoom(ctx context.Context, username string) (*Room, error) {
	var resp struct {
		Room struct {
			ID  string `json:"_id"`
			RID string `json:"rid"`
		} `json:"room"`
	}
	if err := c.post(ctx, "im.create", map[string]string{"username": username}, &resp); err != nil {
		return nil, err
	}
	id := resp.Room.RID
	if id == "" {
		id = resp.Room.ID
	}
	return &Room{ID: generic.RoomID(id), Name: "@" + username}, nil
}

func (c *RESTClient) Upload(ctx context.Context, room generic.RoomID, filename string, content []byte, text string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(content); err != nil {
		return err
	}
	if text != "" {
		if err := w.WriteField("msg", text); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	endpoint := "rooms.upload/" + url.PathEscape(string(room))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint, nil), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, endpoint, nil)
}

// =============================================================================
// TRANSPORT
// =============================================================================

func (c *RESTClient) url(endpoint string, q url.Values) string {
	u := c.baseURL + "/api/v1/" + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (c *RESTClient) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(endpoint, q), nil)
	if err != nil {
		return err
	}
	return c.do(req, endpoint, out)
}

func (c *RESTClient) post(ctx context.Context, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(endpoint, nil), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, out)
}

func (c *RESTClient) do(req *http.Request, endpoint string, out any) error {
	req.Header.Set("X-User-Id", c.userID)
	req.Header.Set("X-Auth-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	var env envelope
	_ = json.Unmarshal(raw, &env)
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Endpoint: endpoint, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

var _ Host = (*RESTClient)(nil)
