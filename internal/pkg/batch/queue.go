package batch

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amessages "github.com/airenas/async-api/pkg/messages"
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/convert"
	"github.com/dictamed/scriba/internal/pkg/messages"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/status"
	"github.com/dictamed/scriba/internal/pkg/textnorm"
	tapi "github.com/dictamed/scriba/internal/pkg/transcriber/api"
	"github.com/dictamed/scriba/internal/pkg/utils"
	"github.com/google/uuid"
)

// Converter converts proprietary audio containers
type Converter interface {
	Convert(ctx context.Context, fileName string, onProgress func(int)) error
}

// TranscriberProvider returns an active transcription backend
type TranscriberProvider interface {
	Get(srv string, allowNew bool) (tapi.Transcriber, string, error)
}

// DB persists job records and provides learned style context
type DB interface {
	SaveJob(ctx context.Context, job *persistence.JobRecord) (*persistence.JobRecord, error)
	LearningContext(ctx context.Context, ownerID string) (string, error)
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(context.Context, amessages.Message, string) error
}

const (
	// DefaultMaxConcurrent bounds items simultaneously in an active processing state
	DefaultMaxConcurrent = 3

	progressTick = 500 * time.Millisecond
	// cosmetic progress never reaches 100 before the real result arrives
	progressCap = 90

	errConversionFailed = "Conversion Failed"
	errAuthFailed       = "API key invalid or missing"
	errNoService        = "No transcription service available"
)

// Item is one submitted audio file moving through the pipeline
type Item struct {
	ID        string
	FileName  string
	Size      int64
	Duration  int
	OwnerID   string
	OwnerName string
	UserID    string
	Mime      string

	Status     status.Status
	Progress   int
	Transcript string
	Error      string
}

// Event notifies subscribers about an item change
type Event struct {
	ID       string
	Status   status.Status
	Progress int
	Removed  bool
}

type itemRec struct {
	Item
	audio  []byte
	cancel context.CancelFunc
}

// SubmitData keeps one file submission
type SubmitData struct {
	FileName  string
	Audio     []byte
	Duration  int
	OwnerID   string
	OwnerName string
	UserID    string
}

// ServiceData keeps data required for queue work
type ServiceData struct {
	MaxConcurrent int
	Converter     Converter
	TranscriberPr TranscriberProvider
	DB            DB
	MsgSender     MsgSender
	// TickerF drives cosmetic transcription progress, injectable for tests
	TickerF func(d time.Duration) (<-chan time.Time, func())
	// RandF returns a pseudo-random int in [0, n), injectable for tests
	RandF func(n int) int
}

// Queue owns the batch item list and is the sole driver of state transitions
type Queue struct {
	data *ServiceData

	lock      sync.Mutex
	items     []*itemRec
	listeners []func(Event)
	evalCh    chan struct{}
}

// StartQueue starts the queue scheduler loop.
// Returns the queue and a channel for tracking if the loop has finished
func StartQueue(ctx context.Context, data *ServiceData) (*Queue, chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, nil, err
	}
	if data.MaxConcurrent < 1 {
		data.MaxConcurrent = DefaultMaxConcurrent
	}
	if data.TickerF == nil {
		data.TickerF = defaultTicker
	}
	if data.RandF == nil {
		data.RandF = defaultRand
	}
	q := &Queue{data: data, evalCh: make(chan struct{}, 1)}
	goapp.Log.Info().Int("maxConcurrent", data.MaxConcurrent).Msg("Starting batch queue")
	res := make(chan struct{}, 1)
	go func() {
		q.run(ctx)
		res <- struct{}{}
	}()
	return q, res, nil
}

func validate(data *ServiceData) error {
	if data.Converter == nil {
		return fmt.Errorf("no converter")
	}
	if data.TranscriberPr == nil {
		return fmt.Errorf("no transcriber provider")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.MsgSender == nil {
		return fmt.Errorf("no msg sender")
	}
	return nil
}

func (q *Queue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			goapp.Log.Info().Msg("exit queue loop")
			return
		case <-q.evalCh:
			q.schedule(ctx)
		}
	}
}

// signal asks the scheduler loop to re-evaluate eligibility.
// Never blocks - a pending signal covers any number of changes
func (q *Queue) signal() {
	select {
	case q.evalCh <- struct{}{}:
	default:
	}
}

// Submit adds a new item in QUEUED state
func (q *Queue) Submit(in *SubmitData) (Item, error) {
	if in.FileName == "" {
		return Item{}, fmt.Errorf("no file name")
	}
	ext := strings.ToLower(filepath.Ext(in.FileName))
	if !utils.SupportAudioExt(ext) {
		return Item{}, fmt.Errorf("wrong file extension: %s", ext)
	}
	if len(in.Audio) == 0 {
		return Item{}, fmt.Errorf("no audio data")
	}
	rec := &itemRec{Item: Item{ID: uuid.New().String(), FileName: in.FileName,
		Size: int64(len(in.Audio)), Duration: in.Duration,
		OwnerID: in.OwnerID, OwnerName: in.OwnerName, UserID: in.UserID,
		Mime: utils.AudioMime(ext), Status: status.Queued}}
	rec.audio = in.Audio
	q.lock.Lock()
	q.items = append(q.items, rec)
	res := rec.Item
	q.lock.Unlock()
	goapp.Log.Info().Str("ID", res.ID).Str("file", res.FileName).Msg("item submitted")
	q.notify(Event{ID: res.ID, Status: res.Status})
	q.signal()
	return res, nil
}

// Remove drops an item from the list. An in-flight remote call for the item
// is cancelled, its late result updates become no-ops
func (q *Queue) Remove(id string) bool {
	q.lock.Lock()
	idx := -1
	for i, r := range q.items {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.lock.Unlock()
		return false
	}
	rec := q.items[idx]
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	cancelF := rec.cancel
	q.lock.Unlock()
	if cancelF != nil {
		cancelF()
	}
	goapp.Log.Info().Str("ID", id).Msg("item removed")
	q.notify(Event{ID: id, Removed: true})
	q.signal()
	return true
}

// Start triggers scheduling for a submitted item
func (q *Queue) Start(id string) error {
	if _, found := q.Get(id); !found {
		return fmt.Errorf("no item '%s'", id)
	}
	q.signal()
	return nil
}

// Items returns a snapshot of all items in submission order
func (q *Queue) Items() []Item {
	q.lock.Lock()
	defer q.lock.Unlock()
	res := make([]Item, 0, len(q.items))
	for _, r := range q.items {
		res = append(res, r.Item)
	}
	return res
}

// Get returns a snapshot of one item
func (q *Queue) Get(id string) (Item, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()
	for _, r := range q.items {
		if r.ID == id {
			return r.Item, true
		}
	}
	return Item{}, false
}

// Subscribe registers a listener for item change events
func (q *Queue) Subscribe(f func(Event)) {
	q.lock.Lock()
	defer q.lock.Unlock()
	q.listeners = append(q.listeners, f)
}

func (q *Queue) notify(ev Event) {
	q.lock.Lock()
	ls := make([]func(Event), len(q.listeners))
	copy(ls, q.listeners)
	q.lock.Unlock()
	for _, f := range ls {
		f(ev)
	}
}

// schedule admits queued items while concurrency slots are free,
// first submitted first started
func (q *Queue) schedule(ctx context.Context) {
	var evs []Event
	q.lock.Lock()
	active := 0
	for _, r := range q.items {
		if r.Status.IsActive() {
			active++
		}
	}
	for _, r := range q.items {
		if active >= q.data.MaxConcurrent {
			break
		}
		if r.Status != status.Queued {
			continue
		}
		itemCtx, cancelF := context.WithCancel(ctx)
		r.cancel = cancelF
		if convert.NeedsConversion(r.FileName) {
			r.Status = status.Converting
		} else {
			r.Status = status.Transcribing
		}
		r.Progress = 0
		active++
		evs = append(evs, Event{ID: r.ID, Status: r.Status})
		go q.process(itemCtx, r.ID)
	}
	q.lock.Unlock()
	for _, ev := range evs {
		q.notify(ev)
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	defer q.signal()
	rec, found := q.Get(id)
	if !found {
		return
	}
	if rec.Status == status.Converting {
		err := q.data.Converter.Convert(ctx, rec.FileName, func(p int) {
			q.setProgress(id, status.Converting, p)
		})
		if err != nil {
			goapp.Log.Error().Err(err).Str("ID", id).Msg("conversion failed")
			q.fail(id, errConversionFailed)
			return
		}
		q.setStatus(id, status.Ready, 0)
		if !q.setStatus(id, status.Transcribing, 0) {
			return
		}
	}
	q.transcribe(ctx, id)
}

func (q *Queue) transcribe(ctx context.Context, id string) {
	stopTick := q.startProgressTicker(id)
	defer stopTick()

	rec, found := q.Get(id)
	if !found {
		return
	}
	audio := q.audio(id)

	styleCtx := ""
	if s, err := q.data.DB.LearningContext(ctx, owner(&rec)); err != nil {
		goapp.Log.Warn().Err(err).Str("ID", id).Msg("can't load learning context")
	} else {
		styleCtx = s
	}

	tr, srv, err := q.data.TranscriberPr.Get("", true)
	if err != nil || tr == nil {
		goapp.Log.Error().Err(err).Str("ID", id).Msg("no transcriber")
		q.fail(id, errNoService)
		return
	}
	goapp.Log.Info().Str("ID", id).Str("srv", srv).Msg("transcribing")
	text, err := tr.Transcribe(ctx, &tapi.TranscribeData{Audio: audio, Mime: rec.Mime, StyleContext: styleCtx})
	stopTick()
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Msg("transcription failed")
		q.fail(id, classify(err))
		return
	}
	q.complete(ctx, id, textnorm.Normalize(text))
}

func classify(err error) string {
	if utils.IsUnauthenticated(err) {
		return errAuthFailed
	}
	return err.Error()
}

func owner(it *Item) string {
	if it.OwnerID != "" {
		return it.OwnerID
	}
	return it.UserID
}

func (q *Queue) audio(id string) []byte {
	q.lock.Lock()
	defer q.lock.Unlock()
	for _, r := range q.items {
		if r.ID == id {
			return r.audio
		}
	}
	return nil
}

// complete moves the item to COMPLETED and persists the job record.
// No-op if the item was removed while the call was outstanding
func (q *Queue) complete(ctx context.Context, id string, text string) {
	q.lock.Lock()
	var rec *itemRec
	for _, r := range q.items {
		if r.ID == id {
			rec = r
			break
		}
	}
	if rec == nil {
		q.lock.Unlock()
		goapp.Log.Info().Str("ID", id).Msg("item gone, skip result")
		return
	}
	rec.Status = status.Completed
	rec.Progress = 100
	rec.Transcript = text
	rec.Error = ""
	it := rec.Item
	q.lock.Unlock()
	defer q.notify(Event{ID: id, Status: status.Completed, Progress: 100})

	job := &persistence.JobRecord{OwnerID: owner(&it), OwnerName: it.OwnerName,
		FileName: it.FileName, Uploaded: time.Now(), DurationSecs: it.Duration,
		CharCount: len([]rune(text)), WordCount: len(strings.Fields(text)),
		Status: status.Pending.String(), OriginalText: text, FinalText: text}
	saved, err := q.data.DB.SaveJob(ctx, job)
	if err != nil {
		goapp.Log.Error().Err(err).Str("ID", id).Msg("can't save job record")
		return
	}
	goapp.Log.Info().Str("ID", id).Str("job", saved.JobNumber).Msg("job record saved")
	// post-completion hooks are best-effort, they never fail the item
	msg := messages.NewJobMessage(id, saved.ID, saved.OwnerID)
	for _, queue := range []string{messages.Export, messages.Inform} {
		if err := q.data.MsgSender.SendMessage(ctx, msg, queue); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", id).Str("queue", queue).Msg("can't send msg")
		}
	}
}

// fail moves the item to ERROR. No-op if the item was removed
func (q *Queue) fail(id, msg string) {
	q.lock.Lock()
	var ev *Event
	for _, r := range q.items {
		if r.ID == id {
			r.Status = status.Error
			r.Error = msg
			ev = &Event{ID: id, Status: status.Error, Progress: r.Progress}
			break
		}
	}
	q.lock.Unlock()
	if ev != nil {
		q.notify(*ev)
	}
}

// setProgress applies monotonic progress within one status phase
func (q *Queue) setProgress(id string, st status.Status, p int) {
	q.lock.Lock()
	var ev *Event
	for _, r := range q.items {
		if r.ID == id {
			if r.Status != st || p <= r.Progress {
				break
			}
			if p > 100 {
				p = 100
			}
			r.Progress = p
			ev = &Event{ID: id, Status: r.Status, Progress: p}
			break
		}
	}
	q.lock.Unlock()
	if ev != nil {
		q.notify(*ev)
	}
}

// setStatus enters a new phase with progress reset
func (q *Queue) setStatus(id string, st status.Status, progress int) bool {
	q.lock.Lock()
	var ev *Event
	for _, r := range q.items {
		if r.ID == id {
			r.Status = st
			r.Progress = progress
			ev = &Event{ID: id, Status: st, Progress: progress}
			break
		}
	}
	q.lock.Unlock()
	if ev != nil {
		q.notify(*ev)
	}
	return ev != nil
}

// startProgressTicker advances cosmetic progress while the remote call
// is outstanding. Returned stop func is safe to call multiple times
func (q *Queue) startProgressTicker(id string) func() {
	tickCh, stop := q.data.TickerF(progressTick)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case _, ok := <-tickCh:
				if !ok {
					return
				}
				q.bumpProgress(id)
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			stop()
		})
	}
}

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

func defaultRand(n int) int {
	return rand.Intn(n)
}

func (q *Queue) bumpProgress(id string) {
	q.lock.Lock()
	var ev *Event
	for _, r := range q.items {
		if r.ID == id {
			if r.Status != status.Transcribing {
				break
			}
			p := r.Progress + 1 + q.data.RandF(9)
			if p > progressCap {
				p = progressCap
			}
			if p <= r.Progress {
				break
			}
			r.Progress = p
			ev = &Event{ID: id, Status: r.Status, Progress: p}
			break
		}
	}
	q.lock.Unlock()
	if ev != nil {
		q.notify(*ev)
	}
}
