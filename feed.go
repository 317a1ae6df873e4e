package main

import (
	"log"
	"sync"
)

type FeedEventType string

const (
	FeedInsert FeedEventType = "insert"
	FeedUpdate FeedEventType = "update"
	FeedDelete FeedEventType = "delete"
)

// FeedEvent is one push notification from the row-store: the event type
// and the full row as of that revision.
type FeedEvent struct {
	Type FeedEventType
	Item ReviewItem
}

const feedBufferSize = 256

type feedSub struct {
	events chan FeedEvent
	done   chan struct{}
}

// FeedHub fans row-store mutations out to subscribers. Delivery is
// asynchronous per subscriber, so events can reach different observers in
// different orders; consumers must merge by identity and revision, not by
// arrival order. A slow subscriber overflows its buffer and loses events,
// which is why observers re-fetch on resubscribe instead of assuming the
// feed is gapless.
type FeedHub struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*feedSub
}

func NewFeedHub() *FeedHub {
	return &FeedHub{subs: make(map[int]*feedSub)}
}

// Subscribe registers a callback for feed events and returns a cancel
// function. The callback runs on a dedicated goroutine.
func (h *FeedHub) Subscribe(onEvent func(FeedEvent)) (unsubscribe func()) {
	sub := &feedSub{
		events: make(chan FeedEvent, feedBufferSize),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case evt := <-sub.events:
				onEvent(evt)
			case <-sub.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.done)
		})
	}
}

func (h *FeedHub) Publish(evt FeedEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.events <- evt:
		default:
			log.Printf("feed subscriber %d overflowed, dropping %s event for %s", id, evt.Type, evt.Item.ID)
		}
	}
}
