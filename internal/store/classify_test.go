package store

import (
	"context"
	"errors"
	"testing"

	"warehouse-service/internal/apperr"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPostgresErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperr.Code
	}{
		{"unique", &pq.Error{Code: "23505"}, apperr.CodeConflict},
		{"foreign key", &pq.Error{Code: "23503"}, apperr.CodeConflict},
		{"check", &pq.Error{Code: "23514"}, apperr.CodeValidation},
		{"value too long", &pq.Error{Code: "22001"}, apperr.CodeValidation},
		{"connection", &pq.Error{Code: "08006"}, apperr.CodeUnavailable},
		{"deadlock", &pq.Error{Code: "40P01"}, apperr.CodeUnavailable},
		{"deadline", context.DeadlineExceeded, apperr.CodeUnavailable},
		{"other", &pq.Error{Code: "42601"}, apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "update item")
			assert.Equal(t, tt.code, apperr.CodeOf(err))
			assert.True(t, errors.Is(err, tt.err))
		})
	}

	assert.False(t, apperr.IsRetryable(classify(&pq.Error{Code: "22001"}, "update item")))
	assert.NoError(t, classify(nil, "noop"))
}
