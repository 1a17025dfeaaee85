package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUserInput(t *testing.T) {
	tests := []struct {
		name    string
		in      UserInput
		wantErr string
	}{
		{
			name: "valid",
			in:   UserInput{Username: "admin_1", Email: "admin@example.com", Password: "Secret123!"},
		},
		{
			name:    "short username",
			in:      UserInput{Username: "ab", Email: "admin@example.com", Password: "Secret123!"},
			wantErr: "username",
		},
		{
			name:    "username with spaces",
			in:      UserInput{Username: "bad name", Email: "admin@example.com", Password: "Secret123!"},
			wantErr: "username",
		},
		{
			name:    "bad email",
			in:      UserInput{Username: "admin", Email: "admin.example.com", Password: "Secret123!"},
			wantErr: "email",
		},
		{
			name:    "weak password",
			in:      UserInput{Username: "admin", Email: "admin@example.com", Password: "secret"},
			wantErr: "at least 8 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserInput(&tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestUserInput_NormalizeAndComplete(t *testing.T) {
	in := UserInput{Username: "  admin ", Email: " admin@example.com\n"}
	assert.False(t, in.Complete())

	in.Normalize()
	in.Password = "Secret123!"
	assert.Equal(t, "admin", in.Username)
	assert.Equal(t, "admin@example.com", in.Email)
	assert.True(t, in.Complete())
}
