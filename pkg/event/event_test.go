package event

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/bookstore/pkg/workerpool"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	b := NewBus(nil)
	var got []string
	b.Listen("book.created", func(p interface{}) { got = append(got, "first:"+p.(string)) })
	b.Listen("book.created", func(p interface{}) { got = append(got, "second:"+p.(string)) })
	b.Listen("book.deleted", func(interface{}) { t.Fatal("wrong event") })

	b.Fire("book.created", "7")
	assert.Equal(t, []string{"first:7", "second:7"}, got)
}

func TestAsyncListenersWithoutPool(t *testing.T) {
	var b Bus
	var wg sync.WaitGroup
	wg.Add(2)
	b.ListenAsync("x", func(interface{}) { wg.Done() })
	b.ListenAsync("x", func(interface{}) { wg.Done() })
	b.Fire("x", nil)
	wg.Wait()
}

func TestAsyncListenersOnPool(t *testing.T) {
	pool := workerpool.New(2)
	b := NewBus(pool)

	var n atomic.Int64
	b.ListenAsync("book.updated", func(interface{}) { n.Add(1) })
	for i := 0; i < 20; i++ {
		b.Fire("book.updated", i)
	}
	pool.Shutdown()

	// Queue overflow runs inline, so nothing is lost.
	assert.Equal(t, int64(20), n.Load())
}

func TestNilBusIsSilent(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() { b.Fire("x", nil) })
}
