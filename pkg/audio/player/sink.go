package player

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gorilla/websocket"

	"github.com/cognitivitydev/Chronal-sub002/pkg/audio/pcm"
)

// Sink receives mixed mono float32 chunks from the engine loop. Write must
// not retain samples after it returns. Flush discards anything buffered but
// not yet played.
type Sink interface {
	Write(samples []float32) error
	Flush() error
}

// FuncSink adapts a function to a Sink. Flush is a no-op.
type FuncSink func(samples []float32) error

// Write calls f.
func (f FuncSink) Write(samples []float32) error {
	return f(samples)
}

// Flush does nothing.
func (FuncSink) Flush() error {
	return nil
}

// Discard is a Sink that drops all audio.
var Discard Sink = FuncSink(func([]float32) error { return nil })

// WebSocketSink streams chunks as binary messages of little-endian float32
// samples. Flush sends a text message "flush" so the client can drop its
// playback queue.
type WebSocketSink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	mu  sync.Mutex
	buf []byte
}

// NewWebSocketSink returns a sink writing to conn. The sink owns conn's
// write side.
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn, writeTimeout: time.Second}
}

// Write sends samples as one binary message.
func (s *WebSocketSink) Write(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cap(s.buf) < len(samples)*4 {
		s.buf = make([]byte, len(samples)*4)
	}
	s.buf = s.buf[:len(samples)*4]
	for i, v := range samples {
		binary.LittleEndian.PutUint32(s.buf[i*4:], math.Float32bits(v))
	}
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.BinaryMessage, s.buf)
}

// Flush tells the client to drop queued audio.
func (s *WebSocketSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, []byte("flush"))
}

// SendText sends a text message, serialized with the audio frames.
func (s *WebSocketSink) SendText(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// Close sends a close frame and closes the connection.
func (s *WebSocketSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.writeTimeout))
	return s.conn.Close()
}

// StreamerSink queues chunks for a beep.Streamer consumer such as a
// speaker. Mono samples are duplicated to both channels. When the queue runs
// dry Stream plays silence instead of ending.
type StreamerSink struct {
	mu    sync.Mutex
	queue []float32
	limit int
}

var (
	_ Sink          = (*StreamerSink)(nil)
	_ beep.Streamer = (*StreamerSink)(nil)
)

// NewStreamerSink returns a sink buffering at most capacity of audio. Older
// samples are dropped when the consumer falls behind.
func NewStreamerSink(capacity time.Duration) *StreamerSink {
	return &StreamerSink{limit: int(pcm.Working.SamplesInDuration(capacity))}
}

// Format returns the beep format of the stream.
func (s *StreamerSink) Format() beep.Format {
	return beep.Format{
		SampleRate:  beep.SampleRate(pcm.Working.SampleRate()),
		NumChannels: 2,
		Precision:   2,
	}
}

// Write appends samples to the queue.
func (s *StreamerSink) Write(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, samples...)
	if s.limit > 0 && len(s.queue) > s.limit {
		s.queue = append(s.queue[:0], s.queue[len(s.queue)-s.limit:]...)
	}
	return nil
}

// Flush drops all queued samples.
func (s *StreamerSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = s.queue[:0]
	return nil
}

// Buffered returns the number of queued samples.
func (s *StreamerSink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stream implements beep.Streamer. It always fills samples.
func (s *StreamerSink) Stream(samples [][2]float64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copyStereo(samples, s.queue)
	s.queue = append(s.queue[:0], s.queue[n:]...)
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (s *StreamerSink) Err() error {
	return nil
}

func copyStereo(dst [][2]float64, src []float32) int {
	n := min(len(dst), len(src))
	for i := range n {
		v := float64(src[i])
		dst[i] = [2]float64{v, v}
	}
	return n
}
