package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/textnorm"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// State of a dictation session
type State int

const (
	// Idle - no connection, ready to start
	Idle State = iota
	// Connecting - websocket dial and setup in progress
	Connecting
	// Streaming - audio is flowing, fragments arrive
	Streaming
	// Failed - connect or stream error, Disconnect resets to Idle
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Connecting:
		return "CONNECTING"
	case Streaming:
		return "STREAMING"
	case Failed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Fragment is one piece of live transcript.
// Final fragments end a spoken turn and join the rolling transcript
type Fragment struct {
	Text  string
	Final bool
}

// AudioSource delivers raw samples from a capture device
type AudioSource interface {
	Read(ctx context.Context) ([]float32, error)
	SampleRate() int
	Close() error
}

type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// setupInstruction tells the live model to transcribe only, never converse
const setupInstruction = "You are a passive transcription listener. " +
	"Transcribe the incoming dictation. Never answer questions, " +
	"never add commentary, output transcript text only."

// ServiceData keeps data required for a dictation session
type ServiceData struct {
	URL    string
	Key    string
	Source AudioSource
	// DialF opens the websocket connection, injectable for tests
	DialF      func(ctx context.Context, url string) (wsConn, error)
	OnFragment func(Fragment)
	OnState    func(State)
}

// Session is one live dictation connection
type Session struct {
	data *ServiceData

	lock    sync.Mutex
	state   State
	conn    wsConn
	cancelF context.CancelFunc
	finals  []string
}

// NewSession creates a dictation session in IDLE state
func NewSession(data *ServiceData) (*Session, error) {
	if data.URL == "" {
		return nil, fmt.Errorf("no URL")
	}
	if data.Source == nil {
		return nil, fmt.Errorf("no audio source")
	}
	if data.DialF == nil {
		data.DialF = dialWS
	}
	return &Session{data: data, state: Idle}, nil
}

func dialWS(ctx context.Context, url string) (wsConn, error) {
	c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't dial '%s': %w", url, err)
	}
	return c, nil
}

type setupMsg struct {
	Type        string `json:"type"`
	SampleRate  int    `json:"sampleRate"`
	Encoding    string `json:"encoding"`
	Instruction string `json:"instruction"`
	Key         string `json:"key,omitempty"`
}

type audioMsg struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type serverMsg struct {
	Type         string `json:"type"`
	Text         string `json:"text"`
	TurnComplete bool   `json:"turnComplete"`
}

// Connect dials the live endpoint, sends the setup message and starts streaming.
// Fails if the session is not IDLE
func (s *Session) Connect(ctx context.Context) error {
	s.lock.Lock()
	if s.state != Idle {
		st := s.state
		s.lock.Unlock()
		return fmt.Errorf("can't connect in state %s", st.String())
	}
	s.setStateLocked(Connecting)
	sessCtx, cancelF := context.WithCancel(ctx)
	s.cancelF = cancelF
	s.lock.Unlock()

	conn, err := s.data.DialF(sessCtx, s.data.URL)
	if err != nil {
		s.toFailed()
		return err
	}
	setup := setupMsg{Type: "setup", SampleRate: StreamSampleRate, Encoding: "pcm16",
		Instruction: setupInstruction, Key: s.data.Key}
	b, err := json.Marshal(setup)
	if err != nil {
		_ = conn.Close()
		s.toFailed()
		return fmt.Errorf("can't marshal setup: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		_ = conn.Close()
		s.toFailed()
		return fmt.Errorf("can't send setup: %w", err)
	}

	s.lock.Lock()
	// Disconnect may have raced the dial
	if s.state != Connecting {
		s.lock.Unlock()
		_ = conn.Close()
		return fmt.Errorf("session closed")
	}
	s.conn = conn
	s.setStateLocked(Streaming)
	s.lock.Unlock()
	goapp.Log.Info().Str("url", s.data.URL).Msg("dictation streaming")

	go s.stream(sessCtx, conn)
	return nil
}

func (s *Session) stream(ctx context.Context, conn wsConn) {
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gCtx, conn) })
	g.Go(func() error { return s.readLoop(gCtx, conn) })
	err := g.Wait()
	if err != nil && ctx.Err() == nil {
		goapp.Log.Error().Err(err).Msg("dictation stream failed")
		s.toFailed()
		return
	}
	goapp.Log.Info().Msg("dictation stream done")
}

func (s *Session) writeLoop(ctx context.Context, conn wsConn) error {
	for {
		samples, err := s.data.Source.Read(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("can't read audio: %w", err)
		}
		frame := EncodePCM16(samples, s.data.Source.SampleRate())
		if len(frame) == 0 {
			continue
		}
		msg := audioMsg{Type: "audio", Data: base64.StdEncoding.EncodeToString(frame)}
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("can't marshal audio: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("can't send audio: %w", err)
		}
	}
}

func (s *Session) readLoop(ctx context.Context, conn wsConn) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("can't read msg: %w", err)
		}
		var msg serverMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			goapp.Log.Warn().Err(err).Msg("can't parse msg")
			continue
		}
		if msg.Text == "" && !msg.TurnComplete {
			continue
		}
		s.handleFragment(&msg)
	}
}

func (s *Session) handleFragment(msg *serverMsg) {
	fr := Fragment{Text: textnorm.Normalize(msg.Text), Final: msg.TurnComplete}
	if fr.Final && fr.Text != "" {
		s.lock.Lock()
		s.finals = append(s.finals, fr.Text)
		s.lock.Unlock()
	}
	if s.data.OnFragment != nil {
		s.data.OnFragment(fr)
	}
}

// Disconnect closes the connection and returns the session to IDLE.
// Safe to call at any time and any number of times
func (s *Session) Disconnect() {
	s.lock.Lock()
	cancelF := s.cancelF
	conn := s.conn
	s.cancelF = nil
	s.conn = nil
	changed := s.state != Idle
	if changed {
		s.setStateLocked(Idle)
	}
	s.lock.Unlock()
	if cancelF != nil {
		cancelF()
	}
	if conn != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}
	if changed {
		goapp.Log.Info().Msg("dictation disconnected")
	}
}

// State returns the current session state
func (s *Session) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// Transcript returns final fragments joined in arrival order
func (s *Session) Transcript() string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return strings.Join(s.finals, " ")
}

func (s *Session) toFailed() {
	s.lock.Lock()
	if s.state != Idle {
		s.setStateLocked(Failed)
	}
	s.lock.Unlock()
}

func (s *Session) setStateLocked(st State) {
	s.state = st
	if s.data.OnState != nil {
		go s.data.OnState(st)
	}
}
