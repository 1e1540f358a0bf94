package domain

import "errors"

var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidCategory = errors.New("unknown category")
	ErrNoSourceFile    = errors.New("video has no source file")
)
