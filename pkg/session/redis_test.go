package session

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestTranslateWatchErr(t *testing.T) {
	// An aborted WATCH transaction is a lost write race; callers retry it
	// exactly like a version mismatch.
	assert.ErrorIs(t, translateWatchErr(redis.TxFailedErr), ErrVersionConflict)

	assert.NoError(t, translateWatchErr(nil))
	assert.ErrorIs(t, translateWatchErr(ErrNotFound), ErrNotFound)
	assert.ErrorIs(t, translateWatchErr(ErrVersionConflict), ErrVersionConflict)
}
