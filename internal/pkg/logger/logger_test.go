package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONEncodingAddsAppAttr(t *testing.T) {
	var out bytes.Buffer
	log := newWithWriter("learnify_bot", &Config{Encoding: "json", Level: "debug", DisableSource: true}, &out, &out)

	log.Debug("hello", "user_id", 42)

	var record map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &record))
	assert.Equal(t, "learnify_bot", record["app"])
	assert.Equal(t, "hello", record["msg"])
	assert.EqualValues(t, 42, record["user_id"])
}

func TestNew_LevelFiltersRecords(t *testing.T) {
	var out bytes.Buffer
	log := newWithWriter("app", &Config{Encoding: "console", Level: "warn"}, &out, &out)

	log.Info("skipped")
	assert.Empty(t, out.String())

	log.Warn("kept")
	assert.Contains(t, out.String(), "kept")
}

func TestParseLevel_PanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { parseLevel("verbose") })
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
}

func acceptLines(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	lines := make(chan string, 16)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return ln.Addr().String(), lines
}

func TestNew_LogstashReceivesCopy(t *testing.T) {
	addr, lines := acceptLines(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	var out bytes.Buffer
	log := newWithWriter("learnify_bot", &Config{Encoding: "console", LogstashHost: host, LogstashPort: port}, &out, &out)
	log.Info("shipped", "user_id", 7)

	assert.Contains(t, out.String(), "shipped")
	select {
	case line := <-lines:
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		assert.Equal(t, "shipped", record["msg"])
		assert.Equal(t, "learnify_bot", record["app"])
	case <-time.After(3 * time.Second):
		t.Fatal("logstash did not receive the record")
	}
}

func TestLogstashWriter_UnreachableDoesNotBlock(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	w := NewLogstashWriter(addr)
	const records = 200

	start := time.Now()
	for i := 0; i < records; i++ {
		n, err := w.Write([]byte("{}\n"))
		require.NoError(t, err)
		require.Equal(t, 3, n)
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	require.Eventually(t, func() bool { return w.Dropped() == records }, 3*time.Second, 10*time.Millisecond)
	assert.NoError(t, w.Close())
}

func TestLogstashWriter_FullQueueDrops(t *testing.T) {
	// без горутины отправки очередь не разбирается
	w := &LogstashWriter{queue: make(chan []byte, 1), ctx: context.Background()}

	for i := 0; i < 3; i++ {
		n, err := w.Write([]byte("{}\n"))
		require.NoError(t, err)
		require.Equal(t, 3, n)
	}
	assert.Equal(t, uint64(2), w.Dropped())
	assert.Len(t, w.queue, 1)
}

func TestLogstashWriter_WriteAfterClose(t *testing.T) {
	w := NewLogstashWriter("127.0.0.1:1")
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	n, err := w.Write([]byte("x"))
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
