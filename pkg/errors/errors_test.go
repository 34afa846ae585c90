package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(ProviderFailed, "describe call failed")
	assert.Error(t, err)
	assert.Equal(t, "describe call failed", err.Error())

	var e *Error
	assert.True(t, stderrors.As(err, &e))
	assert.Equal(t, ProviderFailed, e.Code())
}

func TestWrap(t *testing.T) {
	base := fmt.Errorf("disk full")
	err := Wrap(base, StorageUnavailable, "failed to save population")
	assert.Equal(t, "failed to save population: disk full", err.Error())
	assert.Equal(t, base, stderrors.Unwrap(err))

	assert.Nil(t, Wrap(nil, StorageUnavailable, "ignored"))
}

func TestWithFields(t *testing.T) {
	err := WithFields(New(InvalidConfiguration, "bad cadence"), Fields{"evolution_every": -1})
	var e *Error
	assert.True(t, stderrors.As(err, &e))
	assert.Equal(t, InvalidConfiguration, e.Code())
	assert.Equal(t, -1, e.Fields()["evolution_every"])

	// Fields on a plain error produce an Unknown-coded wrapper.
	plain := WithFields(fmt.Errorf("boom"), Fields{"op": "load"})
	assert.True(t, stderrors.As(plain, &e))
	assert.Equal(t, Unknown, e.Code())
}

func TestIsMatchesOnCode(t *testing.T) {
	err := Wrap(New(StorageUnavailable, "inner"), JobExecutionFailed, "outer")
	assert.True(t, stderrors.Is(err, New(JobExecutionFailed, "")))
	assert.False(t, stderrors.Is(err, New(ProviderFailed, "")))
}

func TestHasCode(t *testing.T) {
	err := Wrap(New(StorageUnavailable, "inner"), JobExecutionFailed, "outer")
	assert.True(t, HasCode(err, StorageUnavailable))
	assert.True(t, HasCode(err, JobExecutionFailed))
	assert.False(t, HasCode(err, ProviderFailed))
	assert.False(t, HasCode(fmt.Errorf("plain"), StorageUnavailable))
	assert.False(t, HasCode(nil, StorageUnavailable))
}
