package platform_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-platform/pkg/platform"
)

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, platform.ValidateStruct(platform.LoginRequest{Email: "a@example.com", Password: "x"}))

	err := platform.ValidateStruct(platform.SubmitMessageRequest{
		SenderEmail: "not-an-email",
		Body:        strings.Repeat("x", 5001),
	})
	require.Error(t, err)

	perr := platform.AsError(err)
	assert.Equal(t, platform.KindValidation, perr.Kind)
	assert.Equal(t, []string{"is required"}, perr.FieldErrors["sender_name"])
	assert.Equal(t, []string{"must be a valid email address"}, perr.FieldErrors["sender_email"])
	assert.Equal(t, []string{"must be at most 5000 characters"}, perr.FieldErrors["body"])
}

func TestValidateStruct_OneOf(t *testing.T) {
	err := platform.ValidateStruct(platform.CreateAccountRequest{
		Email:    "a@example.com",
		Password: "long-enough",
		Role:     "owner",
	})
	perr := platform.AsError(err)
	require.NotNil(t, perr)
	assert.Equal(t, []string{"must be one of tenant_admin platform_admin"}, perr.FieldErrors["role"])
}
