package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := NewStatusError("https://i.redd.it/x.png", 404)
	assert.Equal(t, "http_status error (code 404): unexpected status 404 [https://i.redd.it/x.png]", err.Error())

	cause := stderrors.New("connection refused")
	terr := NewTransportError("https://oauth.reddit.com", cause)
	assert.Contains(t, terr.Error(), "connection refused")
	assert.ErrorIs(t, terr, cause)
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("saving post abc: %w", NewStatusError("u", 500))

	assert.True(t, IsType(err, ErrorTypeHTTPStatus))
	assert.False(t, IsType(err, ErrorTypeTransport))
	assert.Equal(t, 500, StatusCode(err))
	assert.Equal(t, 0, StatusCode(stderrors.New("plain")))
}

func TestConstructorTypes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		typ  ErrorType
	}{
		{"record shape", NewRecordShapeError("abc", "missing id", nil), ErrorTypeRecordShape},
		{"status", NewStatusError("u", 403), ErrorTypeHTTPStatus},
		{"parse", NewParseError("u", stderrors.New("eof")), ErrorTypeEnvelopeParse},
		{"transport", NewTransportError("u", stderrors.New("timeout")), ErrorTypeTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, IsType(tt.err, tt.typ))
		})
	}
	assert.False(t, IsType(stderrors.New("boom"), ErrorTypeTransport))
}
