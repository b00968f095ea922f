package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	"gpuasm/internal/isa/snapshot"
)

// ExportSnapshot replaces the database contents with the snapshot's.
// Exporting the same snapshot twice leaves the database unchanged.
func (db *DB) ExportSnapshot(s *snapshot.Snapshot) error {
	return db.WithTx(func(tx *sql.Tx) error {
		// Children first so foreign keys stay satisfied.
		clears := []string{
			"DELETE FROM instruction_operands",
			"DELETE FROM instruction_architectures",
			"DELETE FROM instruction_encodings",
			"DELETE FROM instructions",
			"DELETE FROM special_register_overrides",
			"DELETE FROM special_register_ranges",
			"DELETE FROM special_register_singles",
		}
		for _, stmt := range clears {
			if _, err := tx.Exec(stmt); err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}

		for _, inst := range s.Instructions {
			if _, err := tx.Exec(
				"INSERT INTO instructions (name, description) VALUES (?, ?)",
				inst.Name, inst.Description,
			); err != nil {
				return fmt.Errorf("instruction %q: %w", inst.Name, err)
			}
			for _, tag := range inst.Architectures {
				if _, err := tx.Exec(
					"INSERT INTO instruction_architectures (instruction, architecture) VALUES (?, ?)",
					inst.Name, tag,
				); err != nil {
					return fmt.Errorf("instruction %q architecture %q: %w", inst.Name, tag, err)
				}
			}
			for i := range inst.Args {
				if _, err := tx.Exec(
					"INSERT INTO instruction_operands (instruction, position, name, type, data_type) VALUES (?, ?, ?, ?, ?)",
					inst.Name, i, inst.Args[i], inst.ArgTypes[i], inst.ArgDataTypes[i],
				); err != nil {
					return fmt.Errorf("instruction %q operand %d: %w", inst.Name, i, err)
				}
			}
			for _, enc := range inst.AvailableEncodings {
				if _, err := tx.Exec(
					"INSERT INTO instruction_encodings (instruction, encoding) VALUES (?, ?)",
					inst.Name, enc,
				); err != nil {
					return fmt.Errorf("instruction %q encoding %q: %w", inst.Name, enc, err)
				}
			}
		}

		for _, single := range s.SpecialRegisters.Singles {
			if _, err := tx.Exec(
				"INSERT INTO special_register_singles (name, description) VALUES (?, ?)",
				single.Name, single.Description,
			); err != nil {
				return fmt.Errorf("register %q: %w", single.Name, err)
			}
		}
		for _, r := range s.SpecialRegisters.Ranges {
			if _, err := tx.Exec(
				"INSERT INTO special_register_ranges (prefix, start, count, description) VALUES (?, ?, ?, ?)",
				r.Prefix, r.Start, r.Count, r.Description,
			); err != nil {
				return fmt.Errorf("register range %q: %w", r.Prefix, err)
			}
			for _, o := range r.Overrides {
				if _, err := tx.Exec(
					"INSERT INTO special_register_overrides (prefix, idx, description) VALUES (?, ?, ?)",
					r.Prefix, o.Index, o.Description,
				); err != nil {
					return fmt.Errorf("register range %q override %d: %w", r.Prefix, o.Index, err)
				}
			}
		}
		return nil
	})
}

// Export opens (or creates) the database at path, writes the snapshot,
// and closes it.
func Export(path string, s *snapshot.Snapshot, logger *slog.Logger) error {
	db, err := Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ExportSnapshot(s); err != nil {
		return err
	}
	stats := s.Stats()
	db.logger.Info("exported snapshot to sqlite",
		"path", path,
		"instructions", stats.Instructions,
		"register_singles", stats.Singles,
		"register_ranges", stats.Ranges)
	return nil
}
