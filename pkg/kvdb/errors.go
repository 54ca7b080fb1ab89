// Copyright 2025 Certen Protocol

package kvdb

import "errors"

var (
	// ErrNoStagedVersion is returned by Commit when FlushButNotCommit has not
	// been called since the last Commit.
	ErrNoStagedVersion = errors.New("kvdb: no staged version to commit")

	// ErrVersionNotFound is returned by Read/Prove (and RootHash/Scan) when
	// asked about a version that has never been committed.
	ErrVersionNotFound = errors.New("kvdb: version not found")
)
