package summary

import (
	"database/sql"

	"github.com/ordering-helper/backend/models"
	"github.com/ordering-helper/backend/pkg/errors"
)

// Store persists OrderSummary rows, insert-only and uniquely keyed on
// order_id (C9, §4.9).
type Store struct {
	db *sql.DB
}

// NewStore builds a Store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert writes the OrderSummary exactly once per order, inside the
// pipeline's final transaction (§4.8 step 5, §5 "linearised with the
// processing → completed transition").
func (s *Store) Insert(tx *sql.Tx, orderID int64, r Rendered, userLanguage, voiceURL string, voiceDurationMs int64) error {
	_, err := tx.Exec(
		`INSERT INTO order_summaries
			(order_id, chinese_summary, user_language_summary, user_language, total_amount, voice_url, voice_duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		orderID, r.ChineseSummary, r.UserLanguageSummary, userLanguage, r.Total, nullableString(voiceURL), voiceDurationMs,
	)
	if err != nil {
		return errors.DatabaseError(err.Error())
	}
	return nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Get fetches an Order's rendered summary, preferred over re-rendering by
// status polling and LINE push reconstruction (§4.9).
func (s *Store) Get(orderID int64) (*models.OrderSummary, error) {
	row := &models.OrderSummary{OrderID: orderID}
	var voiceURL sql.NullString
	err := s.db.QueryRow(
		`SELECT id, chinese_summary, user_language_summary, user_language, total_amount,
			COALESCE(voice_url, ''), voice_duration_ms, created_at
		 FROM order_summaries WHERE order_id = $1`, orderID,
	).Scan(&row.ID, &row.ChineseSummary, &row.UserLanguageSummary, &row.UserLanguage, &row.TotalAmount,
		&voiceURL, &row.VoiceDurationMs, &row.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("order summary")
	}
	if err != nil {
		return nil, errors.DatabaseError(err.Error())
	}
	row.VoiceURL = voiceURL.String
	return row, nil
}
