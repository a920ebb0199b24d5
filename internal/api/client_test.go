package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/model"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second), srv
}

func TestClient_Login(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/user/loginUser", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "alice@example.com", payload["email"])
		assert.Equal(t, "secret", payload["password"])

		json.NewEncoder(w).Encode(map[string]any{
			"message": "Login successful!",
			"token":   "jwt-token",
			"user":    map[string]string{"_id": "u1", "username": "alice"},
		})
	})
	defer srv.Close()

	result, err := client.Login(context.Background(), "alice@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Login successful!", result.Message)
	assert.Equal(t, "jwt-token", result.Token)
	assert.Equal(t, "alice", result.User.Username)
}

func TestClient_LoginServerError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid credentials"})
	})
	defer srv.Close()

	_, err := client.Login(context.Background(), "alice@example.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, "Invalid credentials", ErrorMessage(err, "Something went wrong"))
}

func TestClient_NetworkErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens anymore

	client := New(srv.URL, time.Second)
	_, err := client.Login(context.Background(), "a@b.c", "x")
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
	assert.Equal(t, "Something went wrong", ErrorMessage(err, "Something went wrong"))
}

func TestClient_ViewTasksAttachesBearer(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/task/viewTasks", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"message": "Tasks fetched successfully!",
			"tasks": []map[string]string{
				{"_id": "t1", "title": "Buy milk", "status": "pending", "priority": "medium"},
			},
		})
	})
	defer srv.Close()

	tasks, message, err := client.ViewTasks(context.Background(), "jwt-token")
	require.NoError(t, err)
	assert.Equal(t, "Tasks fetched successfully!", message)
	require.Len(t, tasks, 1)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "Buy milk", tasks[0].Title)
}

func TestClient_ViewTasksEmptyKeepsServerMessage(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"message": "No tasks yet",
			"tasks":   []any{},
		})
	})
	defer srv.Close()

	tasks, message, err := client.ViewTasks(context.Background(), "jwt-token")
	require.NoError(t, err)
	assert.Empty(t, tasks)
	assert.Equal(t, "No tasks yet", message)
}

func TestClient_AddTaskPayload(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/task/addTask", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Buy milk", payload["title"])
		assert.Equal(t, "", payload["description"])
		assert.Equal(t, "pending", payload["status"])
		assert.Equal(t, "2025-01-01", payload["dueDate"])
		assert.Equal(t, "medium", payload["priority"])

		json.NewEncoder(w).Encode(map[string]string{"message": "Task added successfully!"})
	})
	defer srv.Close()

	message, err := client.AddTask(context.Background(), "jwt-token", model.Task{
		Title:    "Buy milk",
		Status:   "pending",
		DueDate:  "2025-01-01",
		Priority: "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, "Task added successfully!", message)
}

func TestClient_EditTaskPath(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/task/editTask/t42", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"message": "Task updated successfully!"})
	})
	defer srv.Close()

	message, err := client.EditTask(context.Background(), "jwt-token", model.Task{ID: "t42", Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Task updated successfully!", message)
}

func TestClient_DeleteTaskForbidden(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/task/deleteTask/t1", r.URL.Path)
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not authorized"})
	})
	defer srv.Close()

	_, err := client.DeleteTask(context.Background(), "jwt-token", "t1")
	require.Error(t, err)
	assert.Equal(t, "Not authorized", ErrorMessage(err, "Failed to delete task!"))
}

func TestClient_RegisterMultipart(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/user/addUser", r.URL.Path)
		assert.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "alice", r.FormValue("username"))
		assert.Equal(t, "alice@example.com", r.FormValue("email"))
		assert.Equal(t, "123456", r.FormValue("phone"))
		assert.Equal(t, "30", r.FormValue("age"))
		assert.Equal(t, "secret", r.FormValue("password"))
		assert.Equal(t, "Main St 1", r.FormValue("address"))

		file, header, err := r.FormFile("profile")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "avatar.jpg", header.Filename)
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xD8}, data)

		json.NewEncoder(w).Encode(map[string]string{"message": "User registered successfully"})
	})
	defer srv.Close()

	result, err := client.Register(context.Background(), RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Phone:    "123456",
		Age:      "30",
		Password: "secret",
		Address:  "Main St 1",
		Photo:    &Upload{Name: "avatar.jpg", Data: []byte{0xFF, 0xD8}},
	})
	require.NoError(t, err)
	assert.Equal(t, "User registered successfully", result.Message)
}

func TestClient_UpdateProfileMultipart(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/user/viewProfileAndUpdate", r.URL.Path)
		assert.Equal(t, "Bearer jwt-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "alice2", r.FormValue("username"))

		// No photo attached on this update.
		_, _, err := r.FormFile("profile")
		assert.Error(t, err)

		json.NewEncoder(w).Encode(map[string]any{
			"message": "Profile updated successfully!",
			"user":    map[string]string{"_id": "u1", "username": "alice2"},
		})
	})
	defer srv.Close()

	message, user, err := client.UpdateProfile(context.Background(), "jwt-token", ProfileInput{
		Username: "alice2",
		Email:    "alice@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Profile updated successfully!", message)
	require.NotNil(t, user)
	assert.Equal(t, "alice2", user.Username)
}

func TestClient_ViewTask(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/viewTask/t7", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"task": map[string]string{"_id": "t7", "title": "Call mom", "status": "in-progress"},
		})
	})
	defer srv.Close()

	task, err := client.ViewTask(context.Background(), "jwt-token", "t7")
	require.NoError(t, err)
	assert.Equal(t, "t7", task.ID)
	assert.Equal(t, "Call mom", task.Title)
	assert.Equal(t, "in-progress", task.Status)
}
