// Package pipeline turns raw player state-change events into history-log
// inserts via a two-phase confirmation: a track only counts as listened if it
// is still playing, unchanged, after the confirmation delay.
package pipeline

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mpetrov/music-tracker/internal/debounce"
	"github.com/mpetrov/music-tracker/internal/normalize"
	"github.com/mpetrov/music-tracker/internal/store"
)

// Titles never worth recording, matched case-insensitively at confirmation.
var blockedTitles = map[string]bool{
	"tv":            true,
	"unknown":       true,
	"advertisement": true,
}

// Event is one media-player state change.
type Event struct {
	EntityID string
	State    string
	Artist   string
	Title    string
	Album    string
	Channel  string
}

// StateFunc re-reads the live state of an entity at confirmation time.
type StateFunc func(entityID string) (Event, bool)

type Pipeline struct {
	store        *store.Store
	debouncer    *debounce.Debouncer
	liveState    StateFunc
	confirmAfter time.Duration
	log          *zap.Logger
	now          func() time.Time

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(st *store.Store, deb *debounce.Debouncer, liveState StateFunc, confirmAfter time.Duration, log *zap.Logger) *Pipeline {
	return &Pipeline{
		store:        st,
		debouncer:    deb,
		liveState:    liveState,
		confirmAfter: confirmAfter,
		log:          log,
		now:          time.Now,
		pending:      make(map[string]*time.Timer),
	}
}

// Handle advances the per-entity state machine. A playing event with artist
// and title present (re)starts the entity's confirmation timer, carrying a
// snapshot of the attributes; anything else cancels a pending confirmation.
func (p *Pipeline) Handle(ev Event) {
	if ev.State == "playing" && ev.Artist != "" && ev.Title != "" {
		p.schedule(ev)
		return
	}
	p.cancel(ev.EntityID)
}

func (p *Pipeline) schedule(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timer, ok := p.pending[ev.EntityID]; ok {
		timer.Stop()
	}
	// The fired callback removes only its own pending entry: a new playing
	// event can replace the entry between the timer firing and the callback
	// running, and that newer confirmation must stay pending.
	var timer *time.Timer
	timer = time.AfterFunc(p.confirmAfter, func() {
		p.mu.Lock()
		if p.pending[ev.EntityID] == timer {
			delete(p.pending, ev.EntityID)
		}
		p.mu.Unlock()
		p.confirm(ev)
	})
	p.pending[ev.EntityID] = timer
}

func (p *Pipeline) cancel(entityID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if timer, ok := p.pending[entityID]; ok {
		timer.Stop()
		delete(p.pending, entityID)
	}
}

// Stop cancels all pending confirmations.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, timer := range p.pending {
		timer.Stop()
		delete(p.pending, id)
	}
}

// confirm fires after the confirmation delay. The track is recorded only if
// the entity is still playing the same artist and title; otherwise it was a
// short play or a source switch and is discarded silently.
func (p *Pipeline) confirm(snapshot Event) {
	live, ok := p.liveState(snapshot.EntityID)
	if !ok || live.State != "playing" ||
		live.Artist != snapshot.Artist || live.Title != snapshot.Title {
		return
	}

	if blockedTitles[strings.ToLower(snapshot.Title)] {
		return
	}

	title := normalize.Clean(snapshot.Title)
	identity := normalize.Identity(snapshot.Artist, snapshot.Title)
	if p.debouncer.CheckAndRecord(identity) {
		return
	}

	album := snapshot.Album
	if album != "" {
		album = normalize.Clean(album)
	}
	// Album must never be empty in storage: fall back to a channel-derived
	// label, then to the title itself.
	if album == "" && snapshot.Channel != "" {
		album = snapshot.Channel + " / " + snapshot.Artist
	}
	if album == "" {
		album = title
	}

	err := p.store.InsertPlay(snapshot.Artist, title, album, snapshot.Channel, p.now())
	if err != nil {
		// Transient storage error: abandon this play, keep running.
		p.log.Error("storing track failed",
			zap.String("artist", snapshot.Artist),
			zap.String("title", title),
			zap.Error(err))
		return
	}

	p.log.Info("stored track",
		zap.String("entity", snapshot.EntityID),
		zap.String("artist", snapshot.Artist),
		zap.String("title", title),
		zap.String("album", album))
}
