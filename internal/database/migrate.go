package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order.  Every statement is idempotent.
//
// shows carries a unique key on (movie_id, location, show_time) so a show
// is created at most once, and a CHECK keeping the counter in range.
// bookings.total_price is DECIMAL so totals round-trip exactly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS movies (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT NULL,
		image_url   VARCHAR(1024) NULL,
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_movies_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS shows (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		movie_id        BIGINT UNSIGNED NOT NULL,
		location        VARCHAR(255) NOT NULL,
		show_time       VARCHAR(64) NOT NULL,
		hall_type       VARCHAR(64) NOT NULL,
		total_seats     INT NOT NULL,
		available_seats INT NOT NULL,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_shows_slot (movie_id, location, show_time),
		CONSTRAINT fk_shows_movie FOREIGN KEY (movie_id) REFERENCES movies(id),
		CONSTRAINT chk_shows_seats CHECK (available_seats >= 0 AND available_seats <= total_seats)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		show_id          BIGINT UNSIGNED NOT NULL,
		user_email       VARCHAR(255) NOT NULL,
		ticket_type      VARCHAR(16) NOT NULL,
		ticket_quantity  INT NOT NULL,
		popcorn_quantity INT NOT NULL DEFAULT 0,
		total_price      DECIMAL(10,2) NOT NULL,
		created_at       DATETIME NOT NULL,
		KEY idx_bookings_user (user_email, created_at),
		CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active     TINYINT(1) NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
