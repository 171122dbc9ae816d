package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorKinds(t *testing.T) {
	err := Business("no places available")
	assert.ErrorIs(t, err, ErrBusiness)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "no places available", err.Error())

	wrapped := fmt.Errorf("booking: %w", Forbidden("not yours"))
	assert.Equal(t, ErrForbidden, Kind(wrapped))
	assert.Equal(t, "forbidden", KindName(wrapped))

	assert.Nil(t, Kind(errors.New("boom")))
	assert.Equal(t, "internal", KindName(errors.New("boom")))

	var domainErr *Error
	assert.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, "not yours", domainErr.Msg)
}

func TestNotFoundOr(t *testing.T) {
	err := NotFoundOr(gorm.ErrRecordNotFound, "event", 7)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "event 7 not found", err.Error())

	boom := errors.New("connection reset")
	assert.Same(t, boom, NotFoundOr(boom, "event", 7))
	assert.Nil(t, NotFoundOr(nil, "event", 7))
}
