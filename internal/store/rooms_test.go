package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateField(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{`E11000 duplicate key error collection: lobby.rooms index: name_1 dup key: { name: "Alpha" }`, "name"},
		{`E11000 duplicate key error collection: lobby.rooms index: code_1 dup key: { code: "ABCDE" }`, "code"},
		{`E11000 duplicate key error collection: lobby.rooms index: players.userId_1 dup key: { players.userId: "user-1" }`, "player"},
		{`E11000 duplicate key error collection: lobby.rooms index: something_else`, "room"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, duplicateField(errors.New(tt.msg)))
	}
}
