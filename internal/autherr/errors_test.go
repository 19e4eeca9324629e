package autherr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeAndStatus_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("insert user: %w", ErrDuplicatePhone)
	assert.Equal(t, "duplicate_phone", Code(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))

	fed := fmt.Errorf("%w: provider timeout", ErrFederationExchangeFailed)
	assert.Equal(t, "federation_exchange_failed", Code(fed))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(fed))

	assert.Equal(t, http.StatusForbidden, HTTPStatus(ErrInsufficientRole))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrInvalidToken))
}

func TestCodeAndStatus_Unknown(t *testing.T) {
	err := errors.New("mongo is down")
	assert.Equal(t, "internal", Code(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}

func TestMessage_OmitsWrappedDetail(t *testing.T) {
	wrapped := fmt.Errorf("%w: wechat: Get \"https://api/sns?secret=s3cr3t\": timeout", ErrFederationExchangeFailed)
	assert.Equal(t, "federation exchange failed", Message(wrapped))
	assert.Equal(t, "internal error", Message(errors.New("mongo: connection refused")))
}
