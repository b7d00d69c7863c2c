package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRange(t *testing.T) {
	ref, err := ParseRange("A1:B2")
	require.NoError(t, err)
	assert.Equal(t, ReferenceKindRange, ref.Kind())

	_, err = ParseRange("A1:B")
	assert.Error(t, err)
}

func TestColumnRangeRequiresSharedColumn(t *testing.T) {
	_, err := NewColumnRange("A1", "B5")
	assert.Error(t, err)

	ref, err := NewColumnRange("A1", "A5")
	require.NoError(t, err)
	assert.Equal(t, ReferenceKindColumnRange, ref.Kind())
}

func TestRowRangeRequiresSharedRow(t *testing.T) {
	_, err := NewRowRange("A1", "B5")
	assert.Error(t, err)

	ref, err := NewRowRange("A1", "C1")
	require.NoError(t, err)
	assert.Equal(t, ReferenceKindRowRange, ref.Kind())
}

func TestCellExtractors(t *testing.T) {
	ref, err := ParseCellReference("B7")
	require.NoError(t, err)

	col, err := ref.Column()
	require.NoError(t, err)
	assert.Equal(t, "B", col)

	row, err := ref.Row()
	require.NoError(t, err)
	assert.Equal(t, 7, row)
}

func TestRangeExtractorsReturnLeftEndpoint(t *testing.T) {
	ref, err := ParseRange("C3:C9")
	require.NoError(t, err)

	col, err := ref.Column()
	require.NoError(t, err)
	assert.Equal(t, "C", col)

	row, err := ref.Row()
	require.NoError(t, err)
	assert.Equal(t, 3, row)
}

func TestColumnIndex(t *testing.T) {
	idx, err := ColumnIndex("A")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = ColumnIndex("Z")
	require.NoError(t, err)
	assert.Equal(t, 25, idx)

	idx, err = ColumnIndex("AA")
	require.NoError(t, err)
	assert.Equal(t, 26, idx)

	_, err = ColumnIndex("1a")
	assert.Error(t, err)
}

func TestA1Rendering(t *testing.T) {
	col, err := NewColumnReference("A")
	require.NoError(t, err)
	a1, err := col.A1()
	require.NoError(t, err)
	assert.Equal(t, "A:A", a1)

	row, err := NewRowReference(3)
	require.NoError(t, err)
	a1, err = row.A1()
	require.NoError(t, err)
	assert.Equal(t, "3:3", a1)

	cell, err := NewCellReference("B", 7)
	require.NoError(t, err)
	a1, err = cell.A1()
	require.NoError(t, err)
	assert.Equal(t, "B7:B7", a1)

	rng, err := ParseRange("A1:B2")
	require.NoError(t, err)
	a1, err = rng.A1()
	require.NoError(t, err)
	assert.Equal(t, "A1:B2", a1)
}

func TestInvalidColumnReference(t *testing.T) {
	_, err := NewColumnReference("1A")
	assert.Error(t, err)
}

func TestInvalidRowReference(t *testing.T) {
	_, err := NewRowReference(0)
	assert.Error(t, err)
	_, err = NewRowReference(-1)
	assert.Error(t, err)
}
