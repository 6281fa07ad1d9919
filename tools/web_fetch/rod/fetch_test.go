package rod

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRejectsBlankURL(t *testing.T) {
	_, err := (&Fetch{}).Render(context.Background(), "  ")
	require.Error(t, err)
}

func TestDetachedOutlivesCancelledRequest(t *testing.T) {
	req, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, req.Err())

	var seen context.Context
	err := detached(closeTimeout, func(c context.Context) error {
		seen = c
		return c.Err()
	})
	require.NoError(t, err)

	deadline, ok := seen.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(closeTimeout), deadline, time.Second)
	assert.Error(t, seen.Err(), "context is released once the close returns")
}
