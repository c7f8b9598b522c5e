package helpers

import (
	"errors"
	"testing"
	"time"

	"market-pipeline/src/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoffEventualSuccess(t *testing.T) {
	log := logger.NewLogger("test", "ERROR")

	attempts := 0
	res, err := RetryWithBackoff("flaky op", 5, time.Millisecond, log, func() (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("transient")
		}
		return "done", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "done", res)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoffExhaustion(t *testing.T) {
	log := logger.NewLogger("test", "ERROR")

	final := errors.New("still broken")
	attempts := 0
	res, err := RetryWithBackoff("doomed op", 3, time.Millisecond, log, func() (interface{}, error) {
		attempts++
		return nil, final
	})

	assert.Nil(t, res)
	assert.Equal(t, final, err)
	assert.Equal(t, 3, attempts)
}

// -----------------------------------------------------------------------------

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&NetworkError{PipelineError{Message: "backend unreachable", Cause: cause}})

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "backend unreachable: connection refused", err.Error())

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))

	bare := &PipelineError{Message: "no cause"}
	assert.Equal(t, "no cause", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
