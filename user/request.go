package user

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type SignIn struct {
	Email    string `validate:"required,email" json:"email"`
	Password string `validate:"required"       json:"password"`
}

func (s SignIn) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", s.Email).Str("password", "***")
}

type SignUp struct {
	Name     string `validate:"required"       json:"name"`
	Email    string `validate:"required,email" json:"email"`
	Password string `validate:"required,min=6" json:"password"`
}

func (s SignUp) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", s.Email).Str("name", s.Name)
}

type VerifyEmail struct {
	Email string `validate:"required,email" json:"email"`
	Code  string `validate:"required"       json:"code"`
}

type ForgotPassword struct {
	Email string `validate:"required,email" json:"email"`
}

type VerifyResetCode struct {
	Email string `validate:"required,email" json:"email"`
	Code  string `validate:"required"       json:"code"`
}

type ResetPassword struct {
	Email       string `validate:"required,email" json:"email"`
	Code        string `validate:"required"       json:"code"`
	NewPassword string `validate:"required,min=6" json:"newPassword"`
}

func (r ResetPassword) MarshalZerologObject(e *zerolog.Event) {
	e.Str("email", r.Email).Str("newPassword", "***")
}

// masked is what the request logging sees; the wire body is built from the
// plain struct.
func masked(v any) json.RawMessage {
	raw, _ := json.Marshal(v)
	body := map[string]any{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return raw
	}
	for _, k := range []string{"password", "newPassword"} {
		if _, ok := body[k]; ok {
			body[k] = "***"
		}
	}
	raw, _ = json.Marshal(body)
	return raw
}

type AuthResponse struct {
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	User    *User  `json:"user,omitempty"`
}
