package service

import (
	"github.com/google/uuid"
)

func newChunkID() string {
	return uuid.NewString()
}

func newMessageID() string {
	return uuid.NewString()
}

func newSessionID() string {
	return uuid.NewString()
}

// NewSessionID mints an id for a caller that arrived without one.
func NewSessionID() string {
	return newSessionID()
}
