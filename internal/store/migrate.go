package store

import (
	"context"
	"fmt"
)

// migrate applies each statement in order. Every statement is idempotent.
func migrate(ctx context.Context, c conn, ddl []string) error {
	for i, stmt := range ddl {
		if err := c.exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}

var postgresDDL = []string{
	`CREATE TABLE IF NOT EXISTS library (
		library_id      SERIAL PRIMARY KEY,
		name            VARCHAR(30) NOT NULL,
		campus_location VARCHAR(30) NOT NULL,
		contact_email   VARCHAR(50) NOT NULL UNIQUE,
		phone_number    VARCHAR(20) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS author (
		author_id   SERIAL PRIMARY KEY,
		first_name  VARCHAR(20) NOT NULL,
		last_name   VARCHAR(20) NOT NULL,
		birth_date  DATE,
		nationality VARCHAR(20),
		biography   TEXT,
		CONSTRAINT uq_author_identity UNIQUE (first_name, last_name, birth_date)
	)`,
	`CREATE TABLE IF NOT EXISTS category (
		category_id SERIAL PRIMARY KEY,
		name        VARCHAR(30) NOT NULL UNIQUE,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS book (
		book_id          SERIAL PRIMARY KEY,
		title            VARCHAR(50) NOT NULL,
		isbn             VARCHAR(15) NOT NULL UNIQUE,
		publication_date DATE,
		total_copies     INTEGER NOT NULL,
		available_copies INTEGER NOT NULL,
		library_id       INTEGER NOT NULL REFERENCES library (library_id) ON DELETE CASCADE,
		CONSTRAINT chk_total_copies CHECK (total_copies >= 0),
		CONSTRAINT chk_available_copies_non_negative CHECK (available_copies >= 0),
		CONSTRAINT chk_available_copies CHECK (available_copies <= total_copies)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_book_library_id ON book (library_id)`,
	`CREATE TABLE IF NOT EXISTS member (
		member_id         SERIAL PRIMARY KEY,
		first_name        VARCHAR(20) NOT NULL,
		last_name         VARCHAR(20) NOT NULL,
		contact_email     VARCHAR(50) NOT NULL UNIQUE,
		phone_number      VARCHAR(20) NOT NULL UNIQUE,
		member_type       VARCHAR(20) NOT NULL,
		registration_date DATE NOT NULL,
		CONSTRAINT chk_member_type CHECK (member_type IN ('Student', 'Faculty'))
	)`,
	`CREATE TABLE IF NOT EXISTS book_author (
		book_id   INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		author_id INTEGER NOT NULL REFERENCES author (author_id) ON DELETE CASCADE,
		PRIMARY KEY (book_id, author_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_book_author_author_id ON book_author (author_id)`,
	`CREATE TABLE IF NOT EXISTS book_category (
		book_id     INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES category (category_id) ON DELETE CASCADE,
		PRIMARY KEY (book_id, category_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_book_category_category_id ON book_category (category_id)`,
	`CREATE TABLE IF NOT EXISTS borrowing (
		borrowing_id SERIAL PRIMARY KEY,
		member_id    INTEGER NOT NULL REFERENCES member (member_id) ON DELETE CASCADE,
		book_id      INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		borrow_date  DATE NOT NULL,
		due_date     DATE NOT NULL,
		return_date  DATE,
		late_fee     NUMERIC(10, 2),
		CONSTRAINT chk_late_fee CHECK (late_fee >= 0),
		CONSTRAINT chk_borrow_dates CHECK (due_date >= borrow_date)
	)`,
	`CREATE TABLE IF NOT EXISTS review (
		review_id   SERIAL PRIMARY KEY,
		member_id   INTEGER NOT NULL REFERENCES member (member_id) ON DELETE CASCADE,
		book_id     INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		rating      INTEGER NOT NULL,
		comment     TEXT,
		review_date DATE NOT NULL,
		CONSTRAINT chk_rating CHECK (rating BETWEEN 1 AND 5),
		CONSTRAINT uq_member_book_review UNIQUE (member_id, book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id         VARCHAR(36) PRIMARY KEY,
		source         VARCHAR(10) NOT NULL,
		started_at     TIMESTAMPTZ NOT NULL,
		finished_at    TIMESTAMPTZ NOT NULL,
		inserted       INTEGER NOT NULL DEFAULT 0,
		duplicate      INTEGER NOT NULL DEFAULT 0,
		failed         INTEGER NOT NULL DEFAULT 0,
		target         INTEGER NOT NULL DEFAULT 0,
		target_reached BOOLEAN NOT NULL DEFAULT TRUE
	)`,
}

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS library (
		library_id      INTEGER PRIMARY KEY,
		name            TEXT NOT NULL,
		campus_location TEXT NOT NULL,
		contact_email   TEXT NOT NULL UNIQUE,
		phone_number    TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS author (
		author_id   INTEGER PRIMARY KEY,
		first_name  TEXT NOT NULL,
		last_name   TEXT NOT NULL,
		birth_date  TEXT,
		nationality TEXT,
		biography   TEXT,
		CONSTRAINT uq_author_identity UNIQUE (first_name, last_name, birth_date)
	)`,
	`CREATE TABLE IF NOT EXISTS category (
		category_id INTEGER PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS book (
		book_id          INTEGER PRIMARY KEY,
		title            TEXT NOT NULL,
		isbn             TEXT NOT NULL UNIQUE,
		publication_date TEXT,
		total_copies     INTEGER NOT NULL,
		available_copies INTEGER NOT NULL,
		library_id       INTEGER NOT NULL REFERENCES library (library_id) ON DELETE CASCADE,
		CONSTRAINT chk_total_copies CHECK (total_copies >= 0),
		CONSTRAINT chk_available_copies_non_negative CHECK (available_copies >= 0),
		CONSTRAINT chk_available_copies CHECK (available_copies <= total_copies)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_book_library_id ON book (library_id)`,
	`CREATE TABLE IF NOT EXISTS member (
		member_id         INTEGER PRIMARY KEY,
		first_name        TEXT NOT NULL,
		last_name         TEXT NOT NULL,
		contact_email     TEXT NOT NULL UNIQUE,
		phone_number      TEXT NOT NULL UNIQUE,
		member_type       TEXT NOT NULL,
		registration_date TEXT NOT NULL,
		CONSTRAINT chk_member_type CHECK (member_type IN ('Student', 'Faculty'))
	)`,
	`CREATE TABLE IF NOT EXISTS book_author (
		book_id   INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		author_id INTEGER NOT NULL REFERENCES author (author_id) ON DELETE CASCADE,
		PRIMARY KEY (book_id, author_id)
	)`,
	`CREATE TABLE IF NOT EXISTS book_category (
		book_id     INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES category (category_id) ON DELETE CASCADE,
		PRIMARY KEY (book_id, category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS borrowing (
		borrowing_id INTEGER PRIMARY KEY,
		member_id    INTEGER NOT NULL REFERENCES member (member_id) ON DELETE CASCADE,
		book_id      INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		borrow_date  TEXT NOT NULL,
		due_date     TEXT NOT NULL,
		return_date  TEXT,
		late_fee     NUMERIC CHECK (late_fee >= 0),
		CONSTRAINT chk_borrow_dates CHECK (due_date >= borrow_date)
	)`,
	`CREATE TABLE IF NOT EXISTS review (
		review_id   INTEGER PRIMARY KEY,
		member_id   INTEGER NOT NULL REFERENCES member (member_id) ON DELETE CASCADE,
		book_id     INTEGER NOT NULL REFERENCES book (book_id) ON DELETE CASCADE,
		rating      INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment     TEXT,
		review_date TEXT NOT NULL,
		CONSTRAINT uq_member_book_review UNIQUE (member_id, book_id)
	)`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id         TEXT PRIMARY KEY,
		source         TEXT NOT NULL,
		started_at     TIMESTAMP NOT NULL,
		finished_at    TIMESTAMP NOT NULL,
		inserted       INTEGER NOT NULL DEFAULT 0,
		duplicate      INTEGER NOT NULL DEFAULT 0,
		failed         INTEGER NOT NULL DEFAULT 0,
		target         INTEGER NOT NULL DEFAULT 0,
		target_reached BOOLEAN NOT NULL DEFAULT 1
	)`,
}

// MySQL has no CREATE INDEX IF NOT EXISTS; indexes are declared inline.
var mysqlDDL = []string{
	`CREATE TABLE IF NOT EXISTS library (
		library_id      INT AUTO_INCREMENT PRIMARY KEY,
		name            VARCHAR(30) NOT NULL,
		campus_location VARCHAR(30) NOT NULL,
		contact_email   VARCHAR(50) NOT NULL UNIQUE,
		phone_number    VARCHAR(20) NOT NULL UNIQUE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS author (
		author_id   INT AUTO_INCREMENT PRIMARY KEY,
		first_name  VARCHAR(20) NOT NULL,
		last_name   VARCHAR(20) NOT NULL,
		birth_date  DATE,
		nationality VARCHAR(20),
		biography   TEXT,
		CONSTRAINT uq_author_identity UNIQUE (first_name, last_name, birth_date)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS category (
		category_id INT AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(30) NOT NULL UNIQUE,
		description TEXT
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS book (
		book_id          INT AUTO_INCREMENT PRIMARY KEY,
		title            VARCHAR(50) NOT NULL,
		isbn             VARCHAR(15) NOT NULL UNIQUE,
		publication_date DATE,
		total_copies     INT NOT NULL,
		available_copies INT NOT NULL,
		library_id       INT NOT NULL,
		INDEX idx_book_library_id (library_id),
		CONSTRAINT fk_book_library FOREIGN KEY (library_id) REFERENCES library (library_id) ON DELETE CASCADE,
		CONSTRAINT chk_total_copies CHECK (total_copies >= 0),
		CONSTRAINT chk_available_copies_non_negative CHECK (available_copies >= 0),
		CONSTRAINT chk_available_copies CHECK (available_copies <= total_copies)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS member (
		member_id         INT AUTO_INCREMENT PRIMARY KEY,
		first_name        VARCHAR(20) NOT NULL,
		last_name         VARCHAR(20) NOT NULL,
		contact_email     VARCHAR(50) NOT NULL UNIQUE,
		phone_number      VARCHAR(20) NOT NULL UNIQUE,
		member_type       VARCHAR(20) NOT NULL,
		registration_date DATE NOT NULL,
		CONSTRAINT chk_member_type CHECK (member_type IN ('Student', 'Faculty'))
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS book_author (
		book_id   INT NOT NULL,
		author_id INT NOT NULL,
		PRIMARY KEY (book_id, author_id),
		INDEX idx_book_author_author_id (author_id),
		CONSTRAINT fk_book_author_book FOREIGN KEY (book_id) REFERENCES book (book_id) ON DELETE CASCADE,
		CONSTRAINT fk_book_author_author FOREIGN KEY (author_id) REFERENCES author (author_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS book_category (
		book_id     INT NOT NULL,
		category_id INT NOT NULL,
		PRIMARY KEY (book_id, category_id),
		INDEX idx_book_category_category_id (category_id),
		CONSTRAINT fk_book_category_book FOREIGN KEY (book_id) REFERENCES book (book_id) ON DELETE CASCADE,
		CONSTRAINT fk_book_category_category FOREIGN KEY (category_id) REFERENCES category (category_id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS borrowing (
		borrowing_id INT AUTO_INCREMENT PRIMARY KEY,
		member_id    INT NOT NULL,
		book_id      INT NOT NULL,
		borrow_date  DATE NOT NULL,
		due_date     DATE NOT NULL,
		return_date  DATE,
		late_fee     DECIMAL(10, 2),
		CONSTRAINT fk_borrowing_member FOREIGN KEY (member_id) REFERENCES member (member_id) ON DELETE CASCADE,
		CONSTRAINT fk_borrowing_book FOREIGN KEY (book_id) REFERENCES book (book_id) ON DELETE CASCADE,
		CONSTRAINT chk_late_fee CHECK (late_fee >= 0),
		CONSTRAINT chk_borrow_dates CHECK (due_date >= borrow_date)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS review (
		review_id   INT AUTO_INCREMENT PRIMARY KEY,
		member_id   INT NOT NULL,
		book_id     INT NOT NULL,
		rating      INT NOT NULL,
		comment     TEXT,
		review_date DATE NOT NULL,
		CONSTRAINT fk_review_member FOREIGN KEY (member_id) REFERENCES member (member_id) ON DELETE CASCADE,
		CONSTRAINT fk_review_book FOREIGN KEY (book_id) REFERENCES book (book_id) ON DELETE CASCADE,
		CONSTRAINT chk_rating CHECK (rating BETWEEN 1 AND 5),
		CONSTRAINT uq_member_book_review UNIQUE (member_id, book_id)
	) ENGINE=InnoDB`,
	`CREATE TABLE IF NOT EXISTS ingest_runs (
		run_id         VARCHAR(36) PRIMARY KEY,
		source         VARCHAR(10) NOT NULL,
		started_at     DATETIME NOT NULL,
		finished_at    DATETIME NOT NULL,
		inserted       INT NOT NULL DEFAULT 0,
		duplicate      INT NOT NULL DEFAULT 0,
		failed         INT NOT NULL DEFAULT 0,
		target         INT NOT NULL DEFAULT 0,
		target_reached BOOLEAN NOT NULL DEFAULT TRUE
	) ENGINE=InnoDB`,
}
