package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"taskdeck/internal/model"
)

// Client issues requests to the remote task API with a consistent base
// configuration. It attaches the bearer token when one is supplied and
// performs no retry, caching or de-duplication; callers translate failures
// into user-visible messages.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// AuthResult is the payload of a successful login or registration.
type AuthResult struct {
	Message string     `json:"message"`
	Token   string     `json:"token"`
	User    model.User `json:"user"`
}

// RegisterInput carries the multipart registration fields. Photo is optional.
type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Age      string
	Password string
	Address  string
	Photo    *Upload
}

// ProfileInput carries the multipart profile-update fields. Photo is optional.
type ProfileInput struct {
	Username string
	Email    string
	Phone    string
	Age      string
	Address  string
	Photo    *Upload
}

// Upload is a file attached to a multipart request.
type Upload struct {
	Name string
	Data []byte
}

type tasksResponse struct {
	Message string       `json:"message"`
	Tasks   []model.Task `json:"tasks"`
}

type taskResponse struct {
	Task model.Task `json:"task"`
}

type profileResponse struct {
	Message string     `json:"message"`
	User    model.User `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates a new account via POST /user/addUser (multipart).
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	fields := map[string]string{
		"username": input.Username,
		"email":    input.Email,
		"phone":    input.Phone,
		"age":      input.Age,
		"password": input.Password,
		"address":  input.Address,
	}
	var result AuthResult
	if err := c.doMultipart(ctx, http.MethodPost, "/user/addUser", "", fields, input.Photo, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &result, nil
}

// Login authenticates via POST /user/loginUser.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	payload := map[string]string{"email": email, "password": password}
	var result AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/user/loginUser", "", payload, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &result, nil
}

// ViewProfile fetches the authenticated user via GET /user/viewProfile.
func (c *Client) ViewProfile(ctx context.Context, token string) (*model.User, error) {
	var resp profileResponse
	if err := c.doJSON(ctx, http.MethodGet, "/user/viewProfile", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("view profile: %w", err)
	}
	return &resp.User, nil
}

// UpdateProfile updates the profile via PUT /user/viewProfileAndUpdate
// (multipart) and returns the server message with the refreshed user.
func (c *Client) UpdateProfile(ctx context.Context, token string, input ProfileInput) (string, *model.User, error) {
	fields := map[string]string{
		"username": input.Username,
		"email":    input.Email,
		"phone":    input.Phone,
		"age":      input.Age,
		"address":  input.Address,
	}
	var resp profileResponse
	if err := c.doMultipart(ctx, http.MethodPut, "/user/viewProfileAndUpdate", token, fields, input.Photo, &resp); err != nil {
		return "", nil, fmt.Errorf("update profile: %w", err)
	}
	return resp.Message, &resp.User, nil
}

// AddTask creates a task via POST /task/addTask and returns the server message.
func (c *Client) AddTask(ctx context.Context, token string, task model.Task) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPost, "/task/addTask", token, taskPayload(task), &resp); err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	return resp.Message, nil
}

// ViewTasks fetches the full task collection via GET /task/viewTasks. The
// message accompanies empty collections and is rendered verbatim.
func (c *Client) ViewTasks(ctx context.Context, token string) ([]model.Task, string, error) {
	var resp tasksResponse
	if err := c.doJSON(ctx, http.MethodGet, "/task/viewTasks", token, nil, &resp); err != nil {
		return nil, "", fmt.Errorf("view tasks: %w", err)
	}
	return resp.Tasks, resp.Message, nil
}

// ViewTask fetches one task by id via GET /task/viewTask/:id.
func (c *Client) ViewTask(ctx context.Context, token, id string) (*model.Task, error) {
	var resp taskResponse
	if err := c.doJSON(ctx, http.MethodGet, "/task/viewTask/"+id, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("view task: %w", err)
	}
	return &resp.Task, nil
}

// EditTask updates a task via PUT /task/editTask/:id and returns the server
// message.
func (c *Client) EditTask(ctx context.Context, token string, task model.Task) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodPut, "/task/editTask/"+task.ID, token, taskPayload(task), &resp); err != nil {
		return "", fmt.Errorf("edit task: %w", err)
	}
	return resp.Message, nil
}

// DeleteTask removes a task via DELETE /task/deleteTask/:id and returns the
// server message.
func (c *Client) DeleteTask(ctx context.Context, token, id string) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/task/deleteTask/"+id, token, nil, &resp); err != nil {
		return "", fmt.Errorf("delete task: %w", err)
	}
	return resp.Message, nil
}

func taskPayload(task model.Task) map[string]string {
	return map[string]string{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"dueDate":     task.DueDate,
		"priority":    task.Priority,
	}
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, token, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path, token string, fields map[string]string, photo *Upload, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write field %s: %w", name, err)
		}
	}
	if photo != nil {
		part, err := writer.CreateFormFile("profile", photo.Name)
		if err != nil {
			return fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(photo.Data); err != nil {
			return fmt.Errorf("write file part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg messageResponse
		if json.Unmarshal(data, &msg) == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
