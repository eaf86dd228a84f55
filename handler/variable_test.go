package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariables(t *testing.T) {
	assert := assert.New(t)

	variables := Variables{}
	assert.Nil(variables.copy())

	// when
	variables.Put("a", "va")
	variables.Put("", "ignored")
	variables.PutAll(map[string]any{"b": 1, "c": true})

	// then
	assert.Equal(map[string]any{"a": "va", "b": 1, "c": true}, variables.copy())
	assert.False(variables.IsDeleted("a"))
	assert.False(variables.IsDeleted("d"))

	// when
	variables.Delete("a")

	// then
	assert.True(variables.IsDeleted("a"))

	copied := variables.copy()
	copied["b"] = 2
	assert.Equal(1, variables["b"])
}
