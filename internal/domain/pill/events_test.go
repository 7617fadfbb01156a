package pill

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	e := NewEvent(EventIdentified, "M71", "Allopurinol")
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.OccurredAt.IsZero())
	assert.Equal(t, EventIdentified, e.Type)
	assert.Equal(t, "M71:Allopurinol", e.Key())

	other := NewEvent(EventIdentified, "M71", "Allopurinol")
	assert.NotEqual(t, e.ID, other.ID)
}

//Personal.AI order the ending
