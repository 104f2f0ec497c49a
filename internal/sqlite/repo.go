package sqlite

import (
	"github.com/jmoiron/sqlx"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

// Ensure Store implements the RecordStore interface
var _ examupdates.RecordStore = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) Store {
	return Store{db: db}
}
