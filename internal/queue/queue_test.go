package queue

import (
    "sync"
    "testing"
    "time"

    "github.com/sirupsen/logrus"
    "github.com/stretchr/testify/assert"
)

func TestNewIDQueue(t *testing.T) {
    logger := logrus.New()
    q := NewIDQueue(10, logger)
    assert.NotNil(t, q)
    assert.Equal(t, 10, q.maxSize)
    assert.False(t, q.IsClosed())
}

func TestIDQueue_Push(t *testing.T) {
    logger := logrus.New()
    q := NewIDQueue(2, logger)

    // Test successful push
    ids := []string{"prop-1"}
    err := q.Push(ids)
    assert.NoError(t, err)
    assert.Equal(t, 1, q.Len())

    // Test queue full
    for i := 0; i < 2; i++ {
        _ = q.Push([]string{"prop-x"})
    }
    err = q.Push(ids)
    assert.Equal(t, ErrQueueFull, err)

    // Test closed queue
    q.Close()
    err = q.Push(ids)
    assert.Equal(t, ErrQueueClosed, err)
}

func TestIDQueue_Subscribe(t *testing.T) {
    logger := logrus.New()
    q := NewIDQueue(10, logger)

    var processed []string
    var mu sync.Mutex

    // Add handler
    q.Subscribe(func(ids []string) error {
        mu.Lock()
        processed = append(processed, ids...)
        mu.Unlock()
        return nil
    })

    // Start queue
    q.Start()

    // Push items
    err := q.Push([]string{"prop-1", "prop-2"})
    assert.NoError(t, err)

    // Wait for processing
    time.Sleep(100 * time.Millisecond)

    // Verify processing
    mu.Lock()
    assert.Equal(t, 2, len(processed))
    assert.Equal(t, "prop-1", processed[0])
    assert.Equal(t, "prop-2", processed[1])
    mu.Unlock()
}

func TestIDQueue_Close(t *testing.T) {
    logger := logrus.New()
    q := NewIDQueue(10, logger)

    assert.False(t, q.IsClosed())
    assert.NoError(t, q.Close())
    assert.True(t, q.IsClosed())

    // Closing twice is a no-op
    assert.NoError(t, q.Close())
}
