package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_IsIndexable(t *testing.T) {
	tooShort := "short"
	justOver := strings.Repeat("x", MinIndexableDescriptionLen+1)

	assert.False(t, (&Event{}).IsIndexable(), "nil description is never indexable")
	assert.False(t, (&Event{Description: &tooShort}).IsIndexable())
	assert.True(t, (&Event{Description: &justOver}).IsIndexable())
}

func TestUser_IsIndexable(t *testing.T) {
	tooShort := "short"
	justOver := strings.Repeat("x", MinIndexableUserDescriptionLen+1)

	assert.False(t, (&User{}).IsIndexable())
	assert.False(t, (&User{Description: &tooShort}).IsIndexable())
	assert.True(t, (&User{Description: &justOver}).IsIndexable())
}
