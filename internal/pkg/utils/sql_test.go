package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSQLStr(t *testing.T) {
	assert.True(t, ToSQLStr("olia").Valid)
	assert.Equal(t, "olia", ToSQLStr("olia").String)
	assert.False(t, ToSQLStr("").Valid)
}

func TestFromSQLStr(t *testing.T) {
	assert.Equal(t, "olia", FromSQLStr(ToSQLStr("olia")))
	assert.Equal(t, "", FromSQLStr(ToSQLStr("")))
}
