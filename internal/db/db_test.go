package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPool_RejectsBadURL(t *testing.T) {
	pool, err := NewPool(context.Background(), "")
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, ErrEmptyURL)
	assert.EqualError(t, err, "database URL is empty")

	_, err = NewPool(context.Background(), "postgres://%zz")
	assert.ErrorContains(t, err, "unable to parse database URL")
}
