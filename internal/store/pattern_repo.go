package store

import (
	"database/sql"
	"fmt"
	"time"
)

// PatternRepository stores the pattern document in the patterns table.
// It implements Backend.
type PatternRepository struct {
	db *sql.DB
}

// Patterns returns the pattern repository for this store.
func (s *Store) Patterns() *PatternRepository {
	return &PatternRepository{db: s.db}
}

// Load reads every pattern row in insertion order.
func (r *PatternRepository) Load() (Document, error) {
	rows, err := r.db.Query(
		`SELECT word, height, width, area
		 FROM patterns ORDER BY word_rank, position`,
	)
	if err != nil {
		return Document{}, err
	}
	defer rows.Close()

	var doc Document
	index := make(map[string]int)
	for rows.Next() {
		var word string
		var p Pattern
		if err := rows.Scan(&word, &p.Height, &p.Width, &p.Area); err != nil {
			return Document{}, err
		}

		i, ok := index[word]
		if !ok {
			i = len(doc.Entries)
			index[word] = i
			doc.Entries = append(doc.Entries, Entry{Word: word})
		}
		doc.Entries[i].Patterns = append(doc.Entries[i].Patterns, p)
	}

	if err := rows.Err(); err != nil {
		return Document{}, err
	}

	return doc, nil
}

// Save replaces the table contents with doc in a single transaction.
func (r *PatternRepository) Save(doc Document) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM patterns`); err != nil {
		return fmt.Errorf("clear patterns: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO patterns (word, word_rank, position, height, width, area, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for rank, e := range doc.Entries {
		for pos, p := range e.Patterns {
			if _, err := stmt.Exec(e.Word, rank, pos, p.Height, p.Width, p.Area, now); err != nil {
				return fmt.Errorf("insert %q: %w", e.Word, err)
			}
		}
	}

	return tx.Commit()
}

// Count returns the number of stored rows for word.
func (r *PatternRepository) Count(word string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM patterns WHERE word = ?`, word).Scan(&n)
	return n, err
}
