package migrations

import (
	"database/sql"
	"time"
)

// AutoMigrateWebhookEvents creates the webhook_events audit table if it does
// not exist.
func AutoMigrateWebhookEvents(retries int, db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS webhook_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			provider VARCHAR(20) NOT NULL,
			event_id VARCHAR(64) NOT NULL,
			event_type VARCHAR(64) NOT NULL,
			payload LONGTEXT NOT NULL,
			signature_valid BOOLEAN NOT NULL DEFAULT FALSE,
			outcome_code VARCHAR(40) NOT NULL DEFAULT '',
			processing_error TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_webhook_events_event_id (event_id)
		);
	`
	_, err := db.Exec(query)
	if err != nil {
		// Retry creating the table
		for i := 0; i < retries; i++ {
			time.Sleep(1 * time.Second)
			_, err = db.Exec(query)
			if err == nil {
				break
			}
		}
	}
	return err
}
