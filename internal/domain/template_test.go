package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	resolved map[string]string
}

func (f *fakeResolver) Resolve(ctx context.Context, store *PlaceholderStore, text string, recipientID string) (string, error) {
	if v, ok := f.resolved[text]; ok {
		return v, nil
	}
	return text, nil
}

func mustStore(t *testing.T) *PlaceholderStore {
	t.Helper()
	s, err := NewPlaceholderStore("{", "}")
	require.NoError(t, err)
	return s
}

func TestNewTemplate_Valid(t *testing.T) {
	store := mustStore(t)
	require.NoError(t, store.AddString("name", "Jordan"))

	tmpl, err := NewTemplate("tmpl-1", TemplateTypeInitial, "Hi {name}", "Body {name}", store)
	require.NoError(t, err)
	assert.Equal(t, TemplateTypeInitial, tmpl.Type)
}

func TestNewTemplate_BlankSubjectOrBodyRejected(t *testing.T) {
	store := mustStore(t)
	_, err := NewTemplate("tmpl-1", TemplateTypeInitial, "   ", "body", store)
	assert.Error(t, err)

	_, err = NewTemplate("tmpl-1", TemplateTypeInitial, "subject", "   ", store)
	assert.Error(t, err)
}

func TestNewTemplate_UnbalancedDelimitersRejected(t *testing.T) {
	store := mustStore(t)
	_, err := NewTemplate("tmpl-1", TemplateTypeInitial, "Hi {name", "body", store)
	assert.Error(t, err)

	_, err = NewTemplate("tmpl-1", TemplateTypeInitial, "Hi name}", "body", store)
	assert.Error(t, err)
}

func TestNewTemplate_InvalidTypeRejected(t *testing.T) {
	store := mustStore(t)
	_, err := NewTemplate("tmpl-1", TemplateType("BOGUS"), "subject", "body", store)
	assert.Error(t, err)
}

func TestNewTemplate_NilStoreDefaultsToCurlyBraces(t *testing.T) {
	tmpl, err := NewTemplate("tmpl-1", TemplateTypeInitial, "Hi {name}", "body", nil)
	require.NoError(t, err)
	open, close := tmpl.Store.Delimiters()
	assert.Equal(t, "{", open)
	assert.Equal(t, "}", close)
}

func TestTemplate_Resolve(t *testing.T) {
	store := mustStore(t)
	tmpl, err := NewTemplate("tmpl-1", TemplateTypeInitial, "Hi {name}", "Body {name}", store)
	require.NoError(t, err)

	resolver := &fakeResolver{resolved: map[string]string{
		"Hi {name}":   "Hi Jordan",
		"Body {name}": "Body Jordan",
	}}
	subject, body, err := tmpl.Resolve(context.Background(), "recipient-1", resolver)
	require.NoError(t, err)
	assert.Equal(t, "Hi Jordan", subject)
	assert.Equal(t, "Body Jordan", body)
}
