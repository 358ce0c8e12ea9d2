// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the IDs hookwatch hands out.
const (
	RequestPrefix = "req-"
	JobPrefix     = "job-"
)

// Alphabet defines the character set used for the random portion of the ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
const Length = 12

// New returns a new unique ID with the given prefix.
func New(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// RequestID returns an ID for tagging an inbound HTTP request. It falls back
// to the bare prefix if the random source fails, so callers never need to
// handle an error for what is only a log correlation key.
func RequestID() string {
	id, err := New(RequestPrefix)
	if err != nil {
		return RequestPrefix + "unknown"
	}
	return id
}

// JobID returns an ID for a relay forwarding job.
func JobID() string {
	id, err := New(JobPrefix)
	if err != nil {
		return JobPrefix + "unknown"
	}
	return id
}
