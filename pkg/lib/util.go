package lib

import (
	"github.com/google/uuid"
)

// NewRunID generates a UUID version 4 string identifying one backend launch.
func NewRunID() string {
	return uuid.NewString()
}
