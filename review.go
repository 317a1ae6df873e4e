package main

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InvalidTransitionError reports an attempt to move a review item out of
// a state that does not allow it. Terminal states never transition.
type InvalidTransitionError struct {
	ID   string
	From ReviewStatus
	To   ReviewStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("review item %s: invalid transition %s -> %s", e.ID, e.From, e.To)
}

// validTransitions is the full review lifecycle:
// assigned -> in_review -> completed | flagged.
var validTransitions = map[ReviewStatus][]ReviewStatus{
	ReviewAssigned: {ReviewInReview},
	ReviewInReview: {ReviewCompleted, ReviewFlagged},
}

func canTransition(from, to ReviewStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// DeployDirective selects claims for review: either a specific age bucket
// or a named filter, plus the assignee. Matching is capped by the
// configured batch ceiling so a directive can never trigger unbounded
// inserts.
type DeployDirective struct {
	Bucket   AgeBucket // empty means "use Filter"
	Filter   string    // "litigation", "tendered", "no_evaluation"
	Assignee string
}

func (d DeployDirective) matches(rec *ClaimRecord) bool {
	if d.Bucket != "" {
		return BucketForAge(rec.AgeDays) == d.Bucket
	}
	switch d.Filter {
	case "litigation":
		return rec.Litigation
	case "tendered":
		return rec.Tendered
	case "no_evaluation":
		return rec.Eval == nil
	default:
		return false
	}
}

type ReviewSummary struct {
	ByStatus     map[ReviewStatus]int
	TotalItems   int
	TotalReserve Cents
	OpenReserve  Cents // assigned + in_review
}

// ReviewManager owns the review-item lifecycle and the in-memory view of
// the review collection. The view is reconciled from the store's change
// feed; all other components read it through the manager's accessors.
type ReviewManager struct {
	store    *ReviewStore
	feed     *FeedHub
	batchCap int
	assignee string
	now      func() time.Time

	mu          sync.RWMutex
	view        reviewView
	unsubscribe func()
}

func NewReviewManager(store *ReviewStore, feed *FeedHub, cfg Config) *ReviewManager {
	return &ReviewManager{
		store:    store,
		feed:     feed,
		batchCap: cfg.ReviewBatchCap,
		assignee: cfg.DefaultAssignee,
		now:      time.Now,
		view:     newReviewView(),
	}
}

// Start subscribes to the change feed and then loads the current review
// collection, in that order: a mutation committed while the fetch is in
// flight arrives as an event and merges by revision instead of being
// lost. Safe to call again after Stop; each Start does a full re-fetch
// rather than assuming the feed was gapless while disconnected.
func (m *ReviewManager) Start() error {
	unsub := m.feed.Subscribe(m.onFeedEvent)
	if err := m.Resync(); err != nil {
		unsub()
		return fmt.Errorf("initial review fetch: %v", err)
	}
	m.mu.Lock()
	m.unsubscribe = unsub
	m.mu.Unlock()
	return nil
}

func (m *ReviewManager) Stop() {
	m.mu.Lock()
	unsub := m.unsubscribe
	m.unsubscribe = nil
	m.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// Resync rebuilds the in-memory view from a full fetch. The fetched rows
// merge through the same revision path as live events, so a row mutated
// while the fetch was in flight keeps whichever state carries the later
// revision.
func (m *ReviewManager) Resync() error {
	m.mu.Lock()
	m.view = newReviewView()
	m.mu.Unlock()

	items, err := m.store.ListItems()
	if err != nil {
		return err
	}
	m.mu.Lock()
	for _, item := range items {
		m.view = applyChange(m.view, FeedEvent{Type: FeedUpdate, Item: item})
	}
	m.mu.Unlock()
	return nil
}

func (m *ReviewManager) onFeedEvent(evt FeedEvent) {
	m.mu.Lock()
	m.view = applyChange(m.view, evt)
	m.mu.Unlock()
}

// reviewView is the manager's reconciled picture of the review
// collection. deleted holds a tombstone revision per removed ID so a
// stale insert/update notification arriving after the delete cannot
// resurrect the row.
type reviewView struct {
	items   map[string]ReviewItem
	deleted map[string]int64
}

func newReviewView() reviewView {
	return reviewView{
		items:   make(map[string]ReviewItem),
		deleted: make(map[string]int64),
	}
}

// applyChange merges one feed event into a view and returns the new view,
// leaving the input untouched. Merging is by item identity with
// last-write-wins on the store revision: whatever order notifications
// arrive in, the state with the later server-assigned revision wins,
// deletes included.
func applyChange(view reviewView, evt FeedEvent) reviewView {
	next := reviewView{
		items:   make(map[string]ReviewItem, len(view.items)+1),
		deleted: make(map[string]int64, len(view.deleted)),
	}
	for id, item := range view.items {
		next.items[id] = item
	}
	for id, rev := range view.deleted {
		next.deleted[id] = rev
	}

	switch evt.Type {
	case FeedInsert, FeedUpdate:
		if rev, ok := next.deleted[evt.Item.ID]; ok && rev >= evt.Item.Rev {
			return next
		}
		if existing, ok := next.items[evt.Item.ID]; ok && existing.Rev >= evt.Item.Rev {
			return next
		}
		next.items[evt.Item.ID] = evt.Item
		delete(next.deleted, evt.Item.ID)
	case FeedDelete:
		if existing, ok := next.items[evt.Item.ID]; ok && existing.Rev > evt.Item.Rev {
			return next
		}
		delete(next.items, evt.Item.ID)
		if evt.Item.Rev > next.deleted[evt.Item.ID] {
			next.deleted[evt.Item.ID] = evt.Item.Rev
		}
	}
	return next
}

// Deploy materializes review items for the records matching the
// directive, capped at the batch ceiling, all with status "assigned".
func (m *ReviewManager) Deploy(directive DeployDirective, records []ClaimRecord) ([]ReviewItem, error) {
	assignee := directive.Assignee
	if assignee == "" {
		assignee = m.assignee
	}
	if directive.Bucket == "" && directive.Filter == "" {
		return nil, fmt.Errorf("deploy directive needs an age bucket or a named filter")
	}

	assignedAt := m.now()
	var items []ReviewItem
	for i := range records {
		rec := &records[i]
		if !directive.matches(rec) {
			continue
		}
		item := ReviewItem{
			ID:         uuid.NewString(),
			ClaimID:    rec.ClaimID,
			Area:       rec.Coverage,
			LossDesc:   fmt.Sprintf("%s / %s, %d days open", rec.Severity, rec.Venue, rec.AgeDays),
			Reserve:    rec.Reserve,
			AgeBucket:  BucketForAge(rec.AgeDays),
			Status:     ReviewAssigned,
			Assignee:   assignee,
			AssignedAt: assignedAt,
		}
		if rec.Eval != nil {
			item.LowEval = rec.Eval.Low
			item.HighEval = rec.Eval.High
		}
		items = append(items, item)
		if len(items) >= m.batchCap {
			break
		}
	}
	if len(items) == 0 {
		return nil, nil
	}

	inserted, err := m.store.InsertItems(items)
	if err != nil {
		return nil, fmt.Errorf("deploy review items: %v", err)
	}
	log.Printf("deployed %d review items to %s", inserted, assignee)
	return items, nil
}

// StartReview moves an assigned item into in_review.
func (m *ReviewManager) StartReview(id string) (ReviewItem, error) {
	return m.transition(id, ReviewInReview, "")
}

// Complete finishes an in-review item and stamps the completion time.
func (m *ReviewManager) Complete(id, notes string) (ReviewItem, error) {
	return m.transition(id, ReviewCompleted, notes)
}

// Flag marks an in-review item for escalation. Terminal, like Complete.
func (m *ReviewManager) Flag(id, notes string) (ReviewItem, error) {
	return m.transition(id, ReviewFlagged, notes)
}

func (m *ReviewManager) transition(id string, to ReviewStatus, notes string) (ReviewItem, error) {
	item, err := m.store.GetItem(id)
	if err != nil {
		return ReviewItem{}, fmt.Errorf("load review item %s: %v", id, err)
	}
	if !canTransition(item.Status, to) {
		return ReviewItem{}, &InvalidTransitionError{ID: id, From: item.Status, To: to}
	}
	item.Status = to
	if notes != "" {
		item.Notes = notes
	}
	if to == ReviewCompleted {
		t := m.now()
		item.CompletedAt = &t
	}
	updated, err := m.store.UpdateItem(item)
	if err != nil {
		return ReviewItem{}, fmt.Errorf("update review item %s: %v", id, err)
	}
	return updated, nil
}

// Items returns a stable-ordered copy of the current view.
func (m *ReviewManager) Items() []ReviewItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]ReviewItem, 0, len(m.view.items))
	for _, item := range m.view.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

// Summary recomputes status counts and reserve totals from the current
// view. Always derived fresh, never incrementally patched.
func (m *ReviewManager) Summary() ReviewSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := ReviewSummary{ByStatus: make(map[ReviewStatus]int)}
	for _, item := range m.view.items {
		s.ByStatus[item.Status]++
		s.TotalItems++
		s.TotalReserve += item.Reserve
		if item.Status == ReviewAssigned || item.Status == ReviewInReview {
			s.OpenReserve += item.Reserve
		}
	}
	return s
}
