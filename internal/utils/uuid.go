package utils

import (
	"github.com/google/uuid"
)

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(u string) bool {
	_, err := uuid.Parse(u)
	return err == nil
}

// NewRunID returns the identifier attached to every log line and metric of one sync run.
func NewRunID() string {
	return uuid.New().String()
}
