package servicemux

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnection_PumpCopiesStream(t *testing.T) {
	conn := newClientConn(t, PolicyWeighted)
	a := NewFakeChannel(1)
	require.NoError(t, conn.AddChannel(a))

	data := strings.Repeat("0123456789", 300)
	err := conn.Pump(context.Background(), strings.NewReader(data))
	require.NoError(t, err)

	var got bytes.Buffer
	for _, w := range a.Writes() {
		assert.LessOrEqual(t, len(w.Payload), conn.cfg.MaxPayloadSize)
		got.Write(w.Payload)
	}
	assert.Equal(t, data, got.String())
}

func TestConnection_PumpWaitsWithoutCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DrainInterval = 5 * time.Millisecond
	conn := NewConnection(cfg, NewClientRole(&recorder{}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := conn.Pump(ctx, strings.NewReader("never read"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnection_PumpAfterClose(t *testing.T) {
	conn := newClientConn(t, PolicyWeighted)
	require.NoError(t, conn.Close("done"))

	err := conn.Pump(context.Background(), strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}
