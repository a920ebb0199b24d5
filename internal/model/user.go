package model

// User is the profile returned by the remote API at login, registration and
// profile endpoints.
type User struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Age          string `json:"age"`
	Address      string `json:"address"`
	ProfileImage string `json:"profileImage"`
	LastLogin    string `json:"lastLogin,omitempty"`
}
