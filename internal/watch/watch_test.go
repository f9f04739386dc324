package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValueInitial(t *testing.T) {
	v := New(42)
	assert.Equal(t, 42, v.Get())
}

func TestValueLatestWins(t *testing.T) {
	v := New(0)
	for i := 1; i <= 10; i++ {
		v.Set(i)
	}
	assert.Equal(t, 10, v.Get())
}

func TestValueUpdatedNotifies(t *testing.T) {
	v := New("old")
	ch := v.Updated()
	go v.Set("new")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("no notification after Set")
	}
	assert.Equal(t, "new", v.Get())
}

func TestValueUpdatedChannelRotates(t *testing.T) {
	v := New(0)
	first := v.Updated()
	v.Set(1)
	second := v.Updated()
	if first == second {
		t.Fatalf("expected a fresh channel after Set")
	}
	select {
	case <-first:
	default:
		t.Fatalf("previous channel should be closed")
	}
}
