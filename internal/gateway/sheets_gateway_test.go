package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiedRange(t *testing.T) {
	assert.Equal(t, "Leads!A1:A", qualifiedRange("Leads", "A1:A"))
}

func TestFirstNonEmptyCell(t *testing.T) {
	assert.Equal(t, "", firstNonEmptyCell(nil))
	assert.Equal(t, "", firstNonEmptyCell([][]interface{}{{}, {""}}))
	assert.Equal(t, "Acme Corp", firstNonEmptyCell([][]interface{}{{""}, {"Acme Corp"}, {"Ignored"}}))
}
