package mocksite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sinhala-translit/translit-test-harness/framework"
	"github.com/sinhala-translit/translit-test-harness/framework/helpers"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/launchdarkly/eventsource"
)

const (
	partialEventName = "partial"
	finalEventName   = "final"
)

type eventSourceDebugLogger struct {
	logger framework.Logger
}

func (l eventSourceDebugLogger) Println(args ...interface{}) {
	l.logger.Println(args...)
}

func (l eventSourceDebugLogger) Printf(format string, args ...interface{}) {
	l.logger.Printf(format, args...)
}

// TranslateRequest is the body the page posts to /translate once input has been debounced.
type TranslateRequest struct {
	Stream string `json:"stream"`
	Seq    int    `json:"seq"`
	Text   string `json:"text"`
}

// ConversionEvent is the data of each partial or final event. The page ignores events whose Seq
// is not that of the latest input.
type ConversionEvent struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

type eventImpl struct {
	name string
	data ConversionEvent
}

func (e eventImpl) Event() string { return e.name }
func (e eventImpl) Id() string    { return "" } //nolint:stylecheck
func (e eventImpl) Data() string {
	data, _ := json.Marshal(e.data)
	return string(data)
}

// Site is the http.Handler for the mock page. Each page load gets its own event stream, so
// several browser pages can use one Site at the same time.
type Site struct {
	options Options
	router  *mux.Router
	streams *eventsource.Server

	lock    sync.Mutex
	latest  map[string]eventsource.Event
	pending map[string]*conversion
	closed  bool

	// streamLock serializes registration changes with Close; subscribers counts the open stream
	// requests per stream.
	streamLock  sync.Mutex
	subscribers map[string]int

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// NewSite creates a Site without starting a listener.
func NewSite(options ...Option) (*Site, error) {
	o := defaultOptions()
	if err := helpers.ApplyOptions(&o, options...); err != nil {
		return nil, err
	}

	streams := eventsource.NewServer()
	streams.ReplayAll = true
	streams.Logger = eventSourceDebugLogger{o.Logger}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Site{
		options: o,
		streams: streams,
		latest:  make(map[string]eventsource.Event),
		pending: make(map[string]*conversion),

		subscribers: make(map[string]int),
		ctx:     ctx,
		cancel:  cancel,
	}

	router := mux.NewRouter()
	router.HandleFunc("/", s.servePage).Methods("GET")
	router.HandleFunc("/translate", s.serveTranslate).Methods("POST")
	router.HandleFunc("/stream/{id}", s.serveStream).Methods("GET")
	s.router = router
	return s, nil
}

func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Options returns the options the site was created with.
func (s *Site) Options() Options { return s.options }

// Close stops any conversions in progress and closes all event streams.
func (s *Site) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	s.lock.Unlock()
	s.cancel()
	s.workers.Wait()
	s.streamLock.Lock()
	s.streams.Close()
	s.streamLock.Unlock()
}

func (s *Site) isClosed() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.closed
}

func (s *Site) servePage(w http.ResponseWriter, r *http.Request) {
	if s.options.PageLoadDelay > 0 {
		select {
		case <-time.After(s.options.PageLoadDelay):
		case <-r.Context().Done():
			return
		}
	}
	if s.isClosed() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	streamID := uuid.NewString()

	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:      s.options.Title,
		InputLabel: s.options.InputLabel,
		Classes:    outputClasses(),
		StreamID:   streamID,
		DebounceMS: s.options.DebounceDelay.Milliseconds(),
	})
	if err != nil {
		s.options.Logger.Printf("Could not render page: %s", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	s.options.Logger.Printf("Served page with stream %s", streamID)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Site) serveStream(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]
	if !s.subscribe(streamID) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.streams.Handler(streamID)(w, r)
	s.options.Logger.Printf("End of stream request for %s", streamID)
	s.unsubscribe(streamID)
}

// subscribe registers the stream on its first subscriber. It returns false if the site is closed.
func (s *Site) subscribe(streamID string) bool {
	s.streamLock.Lock()
	defer s.streamLock.Unlock()
	if s.isClosed() {
		return false
	}
	if s.subscribers[streamID] == 0 {
		s.streams.Register(streamID, s)
	}
	s.subscribers[streamID]++
	return true
}

// unsubscribe forgets everything about the stream when its last subscriber has gone: the page
// that owned it has been closed or navigated away.
func (s *Site) unsubscribe(streamID string) {
	s.streamLock.Lock()
	defer s.streamLock.Unlock()
	s.subscribers[streamID]--
	if s.subscribers[streamID] > 0 {
		return
	}
	delete(s.subscribers, streamID)

	s.lock.Lock()
	closed := s.closed
	if c, ok := s.pending[streamID]; ok {
		c.cancel()
		delete(s.pending, streamID)
	}
	delete(s.latest, streamID)
	s.lock.Unlock()

	if !closed {
		s.streams.Unregister(streamID, false)
	}
	s.options.Logger.Printf("Released stream %s", streamID)
}

func (s *Site) serveTranslate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.options.Logger.Printf("Invalid translate request: %s", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if req.Stream == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.startConversion(req); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// startConversion replaces any conversion still in progress for the same stream.
func (s *Site) startConversion(req TranslateRequest) error {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return errors.New("site is closed")
	}
	if c, ok := s.pending[req.Stream]; ok {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	c := &conversion{cancel: cancel}
	s.pending[req.Stream] = c
	s.workers.Add(1)
	s.lock.Unlock()

	go func() {
		defer s.workers.Done()
		defer s.finishConversion(req.Stream, c)
		s.convert(ctx, req)
	}()
	return nil
}

type conversion struct {
	cancel context.CancelFunc
}

func (s *Site) finishConversion(streamID string, c *conversion) {
	c.cancel()
	s.lock.Lock()
	if s.pending[streamID] == c {
		delete(s.pending, streamID)
	}
	s.lock.Unlock()
}

func (s *Site) convert(ctx context.Context, req TranslateRequest) {
	result := Transliterate(req.Text, s.options.Dictionary)
	steps := result.Steps
	if len(steps) == 0 {
		steps = []string{""}
	}
	for i, step := range steps {
		if i > 0 && s.options.WordDelay > 0 {
			select {
			case <-time.After(s.options.WordDelay):
			case <-ctx.Done():
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		name := partialEventName
		if i == len(steps)-1 {
			name = finalEventName
		}
		s.publish(ctx, req.Stream, eventImpl{name: name, data: ConversionEvent{Seq: req.Seq, Text: step}})
	}
}

func (s *Site) publish(ctx context.Context, streamID string, e eventsource.Event) {
	s.lock.Lock()
	if ctx.Err() != nil {
		// superseded, or the stream was released
		s.lock.Unlock()
		return
	}
	s.latest[streamID] = e
	s.lock.Unlock()
	s.options.Logger.Printf("sending %s event on %s with data: %s", e.Event(), streamID, e.Data())
	s.streams.Publish([]string{streamID}, e)
}

// Replay gives a new subscriber the most recent event on its stream, if any.
func (s *Site) Replay(channel, id string) chan eventsource.Event {
	s.lock.Lock()
	e, ok := s.latest[channel]
	s.lock.Unlock()
	eventsCh := make(chan eventsource.Event, 1)
	if ok {
		helpers.NonBlockingSend(eventsCh, e)
	}
	close(eventsCh)
	return eventsCh
}

// Server is a Site listening on a local port.
type Server struct {
	*Site
	URL string

	httpServer *http.Server
}

// Start creates a Site and serves it on a random loopback port.
func Start(options ...Option) (*Server, error) {
	site, err := NewSite(options...)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		site.Close()
		return nil, fmt.Errorf("could not start mock site listener: %w", err)
	}
	httpServer := &http.Server{
		Handler:           site,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		_ = httpServer.Serve(listener)
	}()
	site.options.Logger.Printf("Mock site listening on %s", listener.Addr())
	return &Server{
		Site:       site,
		URL:        "http://" + listener.Addr().String() + "/",
		httpServer: httpServer,
	}, nil
}

func (s *Server) Close() error {
	s.Site.Close()
	return s.httpServer.Close()
}
