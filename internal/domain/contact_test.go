package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContact_Valid(t *testing.T) {
	row, err := NewRowReference(5)
	require.NoError(t, err)

	c, err := NewContact("contact-1", "Leads", row, "Jordan Lee", "example.com", "555-0100")
	require.NoError(t, err)
	assert.Equal(t, "contact-1", c.ID)
	assert.Equal(t, "Leads", c.SheetTitle)
}

func TestNewContact_RequiresIDAndSheetTitle(t *testing.T) {
	row, err := NewRowReference(5)
	require.NoError(t, err)

	_, err = NewContact("", "Leads", row, "", "", "")
	assert.Error(t, err)

	_, err = NewContact("contact-1", "", row, "", "", "")
	assert.Error(t, err)
}

func TestNewContact_RequiresRowReference(t *testing.T) {
	col, err := NewColumnReference("A")
	require.NoError(t, err)

	_, err = NewContact("contact-1", "Leads", col, "", "", "")
	assert.Error(t, err)
}
