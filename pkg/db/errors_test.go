package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("duplicate")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"BadConn", driver.ErrBadConn, true},
		{"SerializationFailure", &pq.Error{Code: "40001"}, true},
		{"Deadlock", fmt.Errorf("lock wallet: %w", &pq.Error{Code: "40P01"}), true},
		{"LockTimeout", &pq.Error{Code: "55P03"}, true},
		{"ConnectionException", &pq.Error{Code: "08006"}, true},
		{"AdminShutdown", &pq.Error{Code: "57P01"}, true},
		{"UniqueViolation", &pq.Error{Code: "23505"}, false},
		{"SyntaxError", &pq.Error{Code: "42601"}, false},
		{"Plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestCommitRolledBack(t *testing.T) {
	assert.True(t, CommitRolledBack(&pq.Error{Code: "40001"}))
	assert.True(t, CommitRolledBack(fmt.Errorf("commit: %w", &pq.Error{Code: "40P01"})))
	assert.False(t, CommitRolledBack(driver.ErrBadConn))
	assert.False(t, CommitRolledBack(&pq.Error{Code: "08006"}))
	assert.False(t, CommitRolledBack(&pq.Error{Code: "57P01"}))
	assert.False(t, CommitRolledBack(nil))
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "tcoin", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=tcoin sslmode=require", cfg.DSN())
}
