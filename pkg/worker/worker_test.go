package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/db-magnus/dataform/pkg/core"
)

// closableBuffer stands in for the data channel.
type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func TestServeStreamsResultAndExitsZero(t *testing.T) {
	harness, workerEnd := net.Pipe()
	defer harness.Close()
	data := &closableBuffer{}

	var got *core.CompileConfig
	done := make(chan int, 1)
	go func() {
		done <- serve(context.Background(), nil, workerEnd, data, func(_ context.Context, req *core.CompileConfig, out io.Writer) error {
			got = req
			_, err := io.WriteString(out, `{"actions": []}`)
			return err
		})
	}()

	req := &core.CompileConfig{ProjectDir: "/proj", TimeoutMillis: 1234}
	require.NoError(t, json.NewEncoder(harness).Encode(req))

	assert.Equal(t, 0, <-done)
	assert.Equal(t, `{"actions": []}`, data.String())
	assert.True(t, data.closed, "data channel must be closed before exit")
	require.NotNil(t, got)
	assert.Equal(t, "/proj", got.ProjectDir)
	assert.Equal(t, 1234, got.TimeoutMillis)
}

func TestServeReportsCompileErrorOnControlChannel(t *testing.T) {
	harness, workerEnd := net.Pipe()
	defer harness.Close()

	done := make(chan int, 1)
	go func() {
		done <- serve(context.Background(), nil, workerEnd, &closableBuffer{}, func(context.Context, *core.CompileConfig, io.Writer) error {
			return errors.New("template loop in definitions/orders.sqlx")
		})
	}()

	require.NoError(t, json.NewEncoder(harness).Encode(&core.CompileConfig{ProjectDir: "/proj"}))

	buf := make([]byte, 256)
	n, err := harness.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "template loop in definitions/orders.sqlx", string(buf[:n]))
	assert.Equal(t, 1, <-done)
}

func TestServeRejectsMalformedRequest(t *testing.T) {
	harness, workerEnd := net.Pipe()
	defer harness.Close()

	done := make(chan int, 1)
	go func() {
		done <- serve(context.Background(), nil, workerEnd, &closableBuffer{}, func(context.Context, *core.CompileConfig, io.Writer) error {
			t.Error("compile must not run for a malformed request")
			return nil
		})
	}()

	_, err := harness.Write([]byte("@@@ not json"))
	require.NoError(t, err)

	buf := make([]byte, 256)
	n, err := harness.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "reading compile request")
	assert.Equal(t, 1, <-done)
}
