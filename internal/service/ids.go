package service

import "github.com/google/uuid"

// validID reports whether id can address a row. Every table is keyed by UUID, so any other
// value can never match and must not reach the database.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
