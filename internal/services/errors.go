// Package services defines the business logic for articles, replies, AI-reply
// generation, and authentication. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrArticleNotFound indicates that the requested article does not exist.
	ErrArticleNotFound = errors.New("article not found")

	// ErrReplyNotFound indicates that the requested reply does not exist.
	ErrReplyNotFound = errors.New("reply not found")

	// ErrEmptyText is returned when a request to create an article or reply
	// contains no text after normalization.
	ErrEmptyText = errors.New("text is empty")

	// ErrTooLong is returned when submitted text exceeds the maximum
	// configured length limit.
	ErrTooLong = errors.New("text too long")

	// ErrInvalidReplyType is returned when a reply type is outside the
	// allowed classification set.
	ErrInvalidReplyType = errors.New("invalid reply type")

	// ErrDuplicateArticleReply is returned when a user attempts to connect
	// the same reply to the same article twice.
	ErrDuplicateArticleReply = errors.New("reply already connected to article")

	// ErrUnauthorized is returned when an operation requires an
	// authenticated user and none is present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrWaitTimeout is returned when a caller gave up waiting for another
	// in-flight AI-reply generation to finish.
	ErrWaitTimeout = errors.New("timed out waiting for ai reply generation")
)
