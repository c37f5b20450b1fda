// Package users resolves and persists the User rows the pipeline needs:
// looking up an existing LINE user, or creating a transient guest when no
// LINE id was supplied (§4.2 step 2, §4.8).
package users

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ordering-helper/backend/models"
	"github.com/ordering-helper/backend/pkg/errors"
)

// Repo is the sole writer of User rows.
type Repo struct {
	db *sql.DB
}

// New builds a Repo.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Resolve loads the User for lineUserID, creating it on first sight. An
// empty lineUserID creates a transient guest `temp_guest_<unix_ms>`
// (§4.2 step 2, §GLOSSARY).
func (r *Repo) Resolve(lineUserID, preferredLanguage string) (int64, error) {
	if lineUserID == "" {
		lineUserID = fmt.Sprintf("temp_guest_%d", time.Now().UnixMilli())
		return r.create(lineUserID, preferredLanguage, models.UserStatusGuest)
	}

	var id int64
	err := r.db.QueryRow(`SELECT id FROM users WHERE line_user_id = $1`, lineUserID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.DatabaseError(err.Error())
	}
	return r.create(lineUserID, preferredLanguage, models.UserStatusActive)
}

func (r *Repo) create(lineUserID, preferredLanguage, status string) (int64, error) {
	var id int64
	err := r.db.QueryRow(
		`INSERT INTO users (line_user_id, preferred_language, status) VALUES ($1, $2, $3) RETURNING id`,
		lineUserID, preferredLanguage, status,
	).Scan(&id)
	if err != nil {
		return 0, errors.DatabaseError(err.Error())
	}
	return id, nil
}

// Get fetches a User row by internal id, used by the background pipeline
// to recover the LINE id and preferred language an order's user submitted
// under (§4.7, §4.8).
func (r *Repo) Get(userID int64) (*models.User, error) {
	u := &models.User{ID: userID}
	err := r.db.QueryRow(
		`SELECT line_user_id, preferred_language, status, created_at FROM users WHERE id = $1`, userID,
	).Scan(&u.LineUserID, &u.PreferredLanguage, &u.Status, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("user")
	}
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	return u, nil
}
