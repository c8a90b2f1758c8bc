package camunda

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kinetiq-PLM/kinetiq-erp-solution-customizing-backend/internal/common/errors"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"NOT_FOUND: job not found", false},
		{"permission denied", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(stderrors.New(tt.msg)))
		})
	}
}

func TestMapError(t *testing.T) {
	timeout := errors.Normalize(MapError(stderrors.New("context deadline exceeded"), "topology"))
	assert.Equal(t, errors.ErrorCode("TIMEOUT_ERROR"), timeout.Code)
	assert.Contains(t, timeout.Details, "topology")

	other := errors.Normalize(MapError(stderrors.New("unavailable"), "topology"))
	assert.Equal(t, errors.ErrorCode("EXTERNAL_SERVICE_ERROR"), other.Code)
	assert.True(t, other.Retryable)
}
