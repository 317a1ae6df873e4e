package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS review_items (
		id            TEXT PRIMARY KEY,
		claim_id      TEXT NOT NULL,
		area          TEXT DEFAULT '',
		loss_desc     TEXT DEFAULT '',
		reserve_cents INTEGER NOT NULL DEFAULT 0,
		low_cents     INTEGER NOT NULL DEFAULT 0,
		high_cents    INTEGER NOT NULL DEFAULT 0,
		age_bucket    TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'assigned',
		assignee      TEXT NOT NULL,
		assigned_at   DATETIME NOT NULL,
		completed_at  DATETIME,
		notes         TEXT DEFAULT '',
		rev           INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_review_items_status ON review_items(status);
	CREATE INDEX IF NOT EXISTS idx_review_items_assignee ON review_items(assignee);

	CREATE TABLE IF NOT EXISTS snapshots (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at     DATETIME NOT NULL,
		record_count INTEGER NOT NULL,
		no_eval      INTEGER NOT NULL,
		aggregates   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// --- Snapshot history (read back only for delta computation) ---

func SaveSnapshot(db *sql.DB, snap *Snapshot) (int64, error) {
	blob, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %v", err)
	}
	res, err := db.Exec(
		`INSERT INTO snapshots (taken_at, record_count, no_eval, aggregates) VALUES (?, ?, ?, ?)`,
		snap.TakenAt, snap.RecordCount, snap.NoEvalCount, string(blob),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestSnapshot returns the most recent persisted snapshot, or nil when
// none exists yet (first run).
func LatestSnapshot(db *sql.DB) (*Snapshot, error) {
	var id int64
	var blob string
	err := db.QueryRow(
		`SELECT id, aggregates FROM snapshots ORDER BY taken_at DESC, id DESC LIMIT 1`,
	).Scan(&id, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %d: %v", id, err)
	}
	snap.ID = id
	return &snap, nil
}

// --- ReviewItem rows ---

// ReviewStore owns the review_items table and publishes every mutation to
// the change feed with the row's server-assigned revision.
type ReviewStore struct {
	db   *sql.DB
	feed *FeedHub
}

func NewReviewStore(db *sql.DB, feed *FeedHub) *ReviewStore {
	return &ReviewStore{db: db, feed: feed}
}

const reviewColumns = `id, claim_id, area, loss_desc, reserve_cents, low_cents, high_cents,
	 age_bucket, status, assignee, assigned_at, completed_at, notes, rev`

func (s *ReviewStore) InsertItems(items []ReviewItem) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO review_items (` + reviewColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for i := range items {
		items[i].Rev = 1
		item := items[i]
		if _, err := stmt.Exec(
			item.ID, item.ClaimID, item.Area, item.LossDesc,
			int64(item.Reserve), int64(item.LowEval), int64(item.HighEval),
			string(item.AgeBucket), string(item.Status), item.Assignee,
			item.AssignedAt, nullableTime(item.CompletedAt), item.Notes, item.Rev,
		); err != nil {
			return inserted, err
		}
		inserted++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	for _, item := range items {
		s.feed.Publish(FeedEvent{Type: FeedInsert, Item: item})
	}
	return inserted, nil
}

// UpdateItem writes the item's mutable fields, bumps the revision, and
// publishes the updated row. The returned item carries the new revision.
func (s *ReviewStore) UpdateItem(item ReviewItem) (ReviewItem, error) {
	res, err := s.db.Exec(
		`UPDATE review_items
		 SET status = ?, completed_at = ?, notes = ?, assignee = ?, rev = rev + 1
		 WHERE id = ?`,
		string(item.Status), nullableTime(item.CompletedAt), item.Notes, item.Assignee, item.ID,
	)
	if err != nil {
		return ReviewItem{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ReviewItem{}, fmt.Errorf("review item %s not found", item.ID)
	}
	updated, err := s.GetItem(item.ID)
	if err != nil {
		return ReviewItem{}, err
	}
	s.feed.Publish(FeedEvent{Type: FeedUpdate, Item: updated})
	return updated, nil
}

func (s *ReviewStore) GetItem(id string) (ReviewItem, error) {
	row := s.db.QueryRow(`SELECT `+reviewColumns+` FROM review_items WHERE id = ?`, id)
	return scanReviewItem(row)
}

func (s *ReviewStore) ListItems() ([]ReviewItem, error) {
	rows, err := s.db.Query(`SELECT ` + reviewColumns + ` FROM review_items ORDER BY assigned_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// DeleteItem removes a row. The core never calls this; it exists for
// administrative cleanup and still feeds observers a delete event.
func (s *ReviewStore) DeleteItem(id string) error {
	item, err := s.GetItem(id)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM review_items WHERE id = ?`, id); err != nil {
		return err
	}
	s.feed.Publish(FeedEvent{Type: FeedDelete, Item: item})
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReviewItem(row rowScanner) (ReviewItem, error) {
	var item ReviewItem
	var reserve, low, high int64
	var bucket, status string
	var completed sql.NullTime
	err := row.Scan(
		&item.ID, &item.ClaimID, &item.Area, &item.LossDesc,
		&reserve, &low, &high,
		&bucket, &status, &item.Assignee,
		&item.AssignedAt, &completed, &item.Notes, &item.Rev,
	)
	if err != nil {
		return ReviewItem{}, err
	}
	item.Reserve = Cents(reserve)
	item.LowEval = Cents(low)
	item.HighEval = Cents(high)
	item.AgeBucket = AgeBucket(bucket)
	item.Status = ReviewStatus(status)
	if completed.Valid {
		t := completed.Time
		item.CompletedAt = &t
	}
	return item, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
