package event

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pencall/pencall/service/messaging/fs"
)

func TestListenerIdlesOnEmptyFsQueue(t *testing.T) {
	tempDir, err := os.MkdirTemp("/tmp", "listener-test")
	assert.NoError(t, err)
	defer os.RemoveAll(tempDir)

	service, err := New("fs", WithNewFsQueueConfig(func(name string) fs.Config {
		return fs.Config{
			BasePath:   tempDir + "/" + name,
			MaxRetries: 2,
			RetryDelay: 10 * time.Millisecond,
		}
	}))
	assert.NoError(t, err)

	var mu sync.Mutex
	var invocations int
	var nilEvents int
	err = SetListenerOf[string](service, func(e *Event[string]) {
		mu.Lock()
		invocations++
		if e == nil {
			nilEvents++
		}
		mu.Unlock()
	})
	assert.NoError(t, err)

	// an empty queue must not drive the handler
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, nilEvents)
	assert.Equal(t, 0, invocations)
	mu.Unlock()

	publisher, err := PublisherOf[string](service)
	assert.NoError(t, err)
	payload := "release recorded"
	err = publisher.Publish(context.Background(), NewEvent(&Context{AllocationID: "a"}, payload))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return invocations == 1
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, nilEvents)
	mu.Unlock()
}
