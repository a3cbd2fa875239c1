package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup.  Every statement is idempotent.
// holds and bookings are not foreign-keyed to each other: bookings.hold_id
// keeps pointing at the originating hold after that hold is deleted.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS room_types (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name            VARCHAR(120) NOT NULL,
		slug            VARCHAR(120) NOT NULL,
		max_guests      INT NOT NULL DEFAULT 2,
		price_per_night BIGINT NOT NULL,
		total_units     INT UNSIGNED NOT NULL DEFAULT 0,
		is_active       TINYINT(1) NOT NULL DEFAULT 1,
		created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_room_types_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS holds (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_type_id BIGINT UNSIGNED NOT NULL,
		start_date   DATE NOT NULL,
		end_date     DATE NOT NULL,
		expires_at   DATETIME NOT NULL,
		created_at   DATETIME NOT NULL,
		KEY idx_holds_room_range (room_type_id, start_date, end_date),
		KEY idx_holds_expires (expires_at),
		CONSTRAINT fk_holds_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id),
		CONSTRAINT chk_holds_range CHECK (end_date > start_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id                        BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		room_type_id              BIGINT UNSIGNED NOT NULL,
		hold_id                   BIGINT UNSIGNED NULL,
		start_date                DATE NOT NULL,
		end_date                  DATE NOT NULL,
		guest_name                VARCHAR(200) NOT NULL DEFAULT '',
		guest_email               VARCHAR(320) NOT NULL,
		guest_count               INT NOT NULL DEFAULT 1,
		status                    ENUM('pending','paid','cancelled') NOT NULL DEFAULT 'pending',
		amount_total              BIGINT NOT NULL DEFAULT 0,
		payment_session_reference VARCHAR(255) NOT NULL,
		created_at                DATETIME NOT NULL,
		paid_at                   DATETIME NULL,
		cancelled_at              DATETIME NULL,
		UNIQUE KEY uq_bookings_payment_ref (payment_session_reference),
		KEY idx_bookings_room_range (room_type_id, status, start_date, end_date),
		KEY idx_bookings_status_created (status, created_at),
		CONSTRAINT fk_bookings_room_type FOREIGN KEY (room_type_id) REFERENCES room_types (id),
		CONSTRAINT chk_bookings_range CHECK (end_date > start_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
