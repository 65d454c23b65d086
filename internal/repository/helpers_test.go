package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("database is locked (5) (SQLITE_BUSY)")))
	assert.True(t, IsTransient(errors.New("database table is locked")))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(ErrAppendOnly))
	assert.False(t, IsTransient(fmt.Errorf("marshaling nested result: %w", errors.New("bad json"))))
	assert.False(t, IsTransient(errors.New("UNIQUE constraint failed: ledger_entries.id")))
}
