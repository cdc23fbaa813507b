package server

import "errors"

// ErrRoomNotFound indicates that the requested room does not exist or has
// already expired. It covers the upload-vs-sweep race: an operation that
// arrives after the room was reclaimed fails with this error.
var ErrRoomNotFound = errors.New("room not found")

// ErrAuthFailed indicates failed room authentication: a wrong password or
// an invalid session token.
var ErrAuthFailed = errors.New("authentication failed")

// ErrFileNotFound indicates that the requested file is not present in the
// room's namespace.
var ErrFileNotFound = errors.New("file not found")

// ErrStorage wraps failures at the blob store boundary (namespace or blob
// creation, write, read, delete). Callers match it with errors.Is.
var ErrStorage = errors.New("storage error")
