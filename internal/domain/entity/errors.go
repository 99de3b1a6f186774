package entity

import "errors"

// Domain-level sentinel errors shared across pipeline stages.
var (
	// ErrNotFound indicates a record id that no store directory contains.
	ErrNotFound = errors.New("record not found")

	// ErrBlocked indicates the site returned an anti-bot interstitial instead
	// of the article. The record is still written, with BlockedErrorMessage as
	// its Error field.
	ErrBlocked = errors.New("blocked by site")

	// ErrNoEmbedding indicates a record id with no entry in the embedding cache.
	ErrNoEmbedding = errors.New("no cached embedding for record")
)

// BlockedErrorMessage is the error string stored on records for blocked pages.
const BlockedErrorMessage = "Blocked by site"
