package fabric

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, Class("")},
		{"unauthorized", &APIError{StatusCode: http.StatusUnauthorized}, ClassAuth},
		{"expired token code", &APIError{StatusCode: http.StatusBadRequest, Code: "TokenExpired"}, ClassAuth},
		{"conflict", &APIError{StatusCode: http.StatusConflict}, ClassAlreadyExists},
		{"name in use", &APIError{StatusCode: http.StatusBadRequest, Code: "ItemDisplayNameAlreadyInUse"}, ClassAlreadyExists},
		{"throttled", &APIError{StatusCode: http.StatusTooManyRequests}, ClassTransient},
		{"server error", &APIError{StatusCode: http.StatusBadGateway}, ClassTransient},
		{"forbidden", &APIError{StatusCode: http.StatusForbidden}, ClassFatal},
		{"malformed", &APIError{StatusCode: http.StatusBadRequest, Code: "InvalidDefinition"}, ClassFatal},
		{"deadline", context.DeadlineExceeded, ClassTransient},
		{"plain error", errors.New("boom"), ClassFatal},
		{"wrapped api error", fmt.Errorf("create table: %w", &APIError{StatusCode: http.StatusConflict}), ClassAlreadyExists},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassHelpers(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAuth(&APIError{StatusCode: http.StatusUnauthorized}))
	assert.True(t, IsAlreadyExists(&APIError{StatusCode: http.StatusConflict}))
	assert.True(t, IsTransient(&APIError{StatusCode: http.StatusServiceUnavailable}))
	assert.False(t, IsAuth(errors.New("boom")))
}

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	withCode := &APIError{StatusCode: 409, Code: "EntityAlreadyExists", Message: "db"}
	assert.Contains(t, withCode.Error(), "EntityAlreadyExists")

	withoutCode := &APIError{StatusCode: 500, Message: "oops"}
	assert.Contains(t, withoutCode.Error(), "500")
}
