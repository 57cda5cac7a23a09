package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NotPanics(t, func() {
		defer RecoverPanic(logger, "worker")
		panic("boom")
	})

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "PANIC recovered", entry["msg"])
	assert.Equal(t, "boom", entry["panic"])
	assert.Equal(t, "worker", entry["context"])
	assert.NotEmpty(t, entry["stack"])
}

func TestRecoverPanicWithCallback(t *testing.T) {
	t.Run("callback receives value", func(t *testing.T) {
		var got interface{}
		func() {
			defer RecoverPanicWithCallback(NewLogger(InfoLevel, &bytes.Buffer{}), "handler", func(r interface{}) {
				got = r
			})
			panic(42)
		}()
		assert.Equal(t, 42, got)
	})

	t.Run("callback skipped without panic", func(t *testing.T) {
		called := false
		func() {
			defer RecoverPanicWithCallback(NewLogger(InfoLevel, &bytes.Buffer{}), "handler", func(interface{}) {
				called = true
			})
		}()
		assert.False(t, called)
	})
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))
	assert.EqualError(t, MustRecover("bad"), "panic: bad")
}
