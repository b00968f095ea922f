package storage

import (
	"database/sql"
	"fmt"
)

// initializeSchema creates all tables for a new database.
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		creators := []func(*sql.Tx) error{
			createInstructionsTable,
			createArchitecturesTable,
			createOperandsTable,
			createEncodingsTable,
			createRegisterSinglesTable,
			createRegisterRangesTable,
			createRegisterOverridesTable,
		}
		for _, create := range creators {
			if err := create(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// createInstructionsTable creates the canonical instruction table
func createInstructionsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS instructions (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create instructions table: %w", err)
	}
	return nil
}

// createArchitecturesTable creates the instruction/architecture relation
func createArchitecturesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS instruction_architectures (
			instruction TEXT NOT NULL,
			architecture TEXT NOT NULL,

			PRIMARY KEY (instruction, architecture),
			FOREIGN KEY (instruction) REFERENCES instructions(name) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create instruction_architectures table: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_instruction_architectures_architecture ON instruction_architectures(architecture)")
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// createOperandsTable creates the ordered operand table
func createOperandsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS instruction_operands (
			instruction TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			data_type TEXT NOT NULL,

			PRIMARY KEY (instruction, position),
			FOREIGN KEY (instruction) REFERENCES instructions(name) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create instruction_operands table: %w", err)
	}
	return nil
}

// createEncodingsTable creates the instruction/encoding relation
func createEncodingsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS instruction_encodings (
			instruction TEXT NOT NULL,
			encoding TEXT NOT NULL,

			PRIMARY KEY (instruction, encoding),
			FOREIGN KEY (instruction) REFERENCES instructions(name) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create instruction_encodings table: %w", err)
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_instruction_encodings_encoding ON instruction_encodings(encoding)")
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// createRegisterSinglesTable creates the special-register singles table
func createRegisterSinglesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS special_register_singles (
			name TEXT PRIMARY KEY,
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create special_register_singles table: %w", err)
	}
	return nil
}

// createRegisterRangesTable creates the special-register ranges table
func createRegisterRangesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS special_register_ranges (
			prefix TEXT PRIMARY KEY,
			start INTEGER NOT NULL,
			count INTEGER NOT NULL CHECK(count >= 3),
			description TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create special_register_ranges table: %w", err)
	}
	return nil
}

// createRegisterOverridesTable creates the per-index override table
func createRegisterOverridesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS special_register_overrides (
			prefix TEXT NOT NULL,
			idx INTEGER NOT NULL,
			description TEXT NOT NULL,

			PRIMARY KEY (prefix, idx),
			FOREIGN KEY (prefix) REFERENCES special_register_ranges(prefix) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create special_register_overrides table: %w", err)
	}
	return nil
}
