package logger

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	logstashDialTimeout  = 2 * time.Second
	logstashWriteTimeout = 2 * time.Second
	logstashQueueSize    = 1024
	logstashMinBackoff   = 500 * time.Millisecond
	logstashMaxBackoff   = 30 * time.Second
)

// LogstashWriter пишет json-строки в tcp input logstash из отдельной горутины.
// Write не блокируется: при полной очереди или недоступном logstash запись отбрасывается,
// переподключение идёт с нарастающей паузой
type LogstashWriter struct {
	addr   string
	queue  chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	dropped atomic.Uint64

	// поля ниже трогает только горутина run
	conn     net.Conn
	backoff  time.Duration
	nextDial time.Time
	dialer   net.Dialer
}

func NewLogstashWriter(addr string) *LogstashWriter {
	return newLogstashWriter(addr, logstashQueueSize)
}

func newLogstashWriter(addr string, queueSize int) *LogstashWriter {
	ctx, cancel := context.WithCancel(context.Background())
	w := &LogstashWriter{
		addr:   addr,
		queue:  make(chan []byte, queueSize),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		dialer: net.Dialer{Timeout: logstashDialTimeout},
	}
	go w.run()
	return w
}

func (w *LogstashWriter) Write(p []byte) (int, error) {
	msg := make([]byte, len(p))
	copy(msg, p)

	select {
	case <-w.ctx.Done():
		w.dropped.Add(1)
	case w.queue <- msg:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped сколько записей не дошло до logstash
func (w *LogstashWriter) Dropped() uint64 {
	return w.dropped.Load()
}

func (w *LogstashWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			if w.conn != nil {
				_ = w.conn.Close()
			}
			return
		case msg := <-w.queue:
			w.send(msg)
		}
	}
}

func (w *LogstashWriter) send(msg []byte) {
	if w.conn == nil && !w.connect() {
		w.dropped.Add(1)
		return
	}

	_ = w.conn.SetWriteDeadline(time.Now().Add(logstashWriteTimeout))
	if _, err := w.conn.Write(msg); err != nil {
		_ = w.conn.Close()
		w.conn = nil
		w.dropped.Add(1)
	}
}

func (w *LogstashWriter) connect() bool {
	now := time.Now()
	if now.Before(w.nextDial) {
		return false
	}

	conn, err := w.dialer.DialContext(w.ctx, "tcp", w.addr)
	if err != nil {
		switch {
		case w.backoff == 0:
			w.backoff = logstashMinBackoff
		case w.backoff < logstashMaxBackoff:
			w.backoff = min(2*w.backoff, logstashMaxBackoff)
		}
		w.nextDial = time.Now().Add(w.backoff)
		return false
	}

	w.conn = conn
	w.backoff = 0
	w.nextDial = time.Time{}
	return true
}

// Close останавливает отправку, неотправленные записи теряются
func (w *LogstashWriter) Close() error {
	w.once.Do(w.cancel)
	<-w.done
	return nil
}
