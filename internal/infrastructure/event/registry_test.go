package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	r := NewHandlerRegistry()
	a := &recordingHandler{}
	b := &recordingHandler{}

	r.Register(a, "A", "B")
	r.Register(a, "A")
	r.Register(b)

	handlers := r.GetHandlers("A")
	assert.Len(t, handlers, 2)
	assert.Same(t, a, handlers[0])
	assert.Same(t, b, handlers[1])
	assert.Len(t, r.GetHandlers("C"), 1)
	assert.Equal(t, 2, r.Len())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	r := NewHandlerRegistry()
	a := &recordingHandler{}
	b := &recordingHandler{}
	r.Register(a, "A")
	r.Register(b, "A")
	r.Register(a)

	r.Unregister(a)

	handlers := r.GetHandlers("A")
	assert.Len(t, handlers, 1)
	assert.Same(t, b, handlers[0])
	assert.Equal(t, 1, r.Len())

	r.Unregister(b)
	assert.Empty(t, r.GetHandlers("A"))
	assert.Equal(t, 0, r.Len())
}
