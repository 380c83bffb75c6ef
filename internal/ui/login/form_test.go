package login

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"https://api.example.com/v1", false},
		{"http://localhost:8080", false},
		{"", true},
		{"   ", true},
		{"api.example.com", true},
		{"ftp://api.example.com", true},
		{"https://", true},
	}
	for _, tt := range tests {
		err := validateURL(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
	}
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Token")
	assert.EqualError(t, v(" "), "Token is required")
	assert.NoError(t, v("abc"))
}

func TestNormalize(t *testing.T) {
	got := Normalize(Credentials{BaseURL: " https://api.example.com/v1/ ", Token: " tok\n"})
	assert.Equal(t, Credentials{BaseURL: "https://api.example.com/v1", Token: "tok"}, got)
}
