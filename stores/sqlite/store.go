package sqlite

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"portfolio-server/core"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db *sql.DB
}

// NewStore creates a new SQLite-based work store. Insertion order is kept in
// a sequence column so listing can stay newest first.
func NewStore(dataSourceName string) *sqliteStore {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		log.Fatalf("failed to open sqlite database: %v", err)
	}

	tableStmt := `
	CREATE TABLE IF NOT EXISTS works (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT,
		image TEXT,
		thumbnail TEXT,
		date TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		file_size INTEGER,
		file_type TEXT
	);`
	if _, err = db.Exec(tableStmt); err != nil {
		log.Fatalf("failed to create works table: %v", err)
	}

	return &sqliteStore{db}
}

const workColumns = "id, title, description, image, thumbnail, date, created_at, updated_at, file_size, file_type"

func scanWork(row interface{ Scan(...any) error }) (*core.Work, error) {
	var w core.Work
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.Image, &w.Thumbnail, &w.Date,
		&w.CreatedAt, &w.UpdatedAt, &w.FileSize, &w.FileType)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]*core.Work, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+workColumns+" FROM works ORDER BY seq DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	works := []*core.Work{}
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*core.Work, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+workColumns+" FROM works WHERE id = ?", id)
	w, err := scanWork(row)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	return w, err
}

func (s *sqliteStore) Create(ctx context.Context, work *core.Work) error {
	if strings.TrimSpace(work.Title) == "" {
		return core.ErrTitleRequired
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO works ("+workColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		work.ID, work.Title, work.Description, work.Image, work.Thumbnail, work.Date,
		work.CreatedAt, work.UpdatedAt, work.FileSize, work.FileType)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert work")
		return err
	}
	return nil
}

func (s *sqliteStore) Update(ctx context.Context, id, title, description string) (*core.Work, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, core.ErrTitleRequired
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE works SET title = ?, description = ?, updated_at = ? WHERE id = ?",
		title, strings.TrimSpace(description), time.Now(), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, core.ErrNotFound
	}

	return s.Get(ctx, id)
}

func (s *sqliteStore) Delete(ctx context.Context, id string) (*core.Work, error) {
	work, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM works WHERE id = ?", id); err != nil {
		return nil, err
	}
	return work, nil
}
