package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocuments_AppendAndList(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := Document{
		ID:      "doc-1",
		Date:    date,
		Text:    "hola",
		Answer:  "hola, ¿qué tal?",
		Status:  "200",
		Tricks:  []int{0, 2},
		Request: json.RawMessage(`{"root":{"id":1,"form":"hola"}}`),
	}
	second := Document{
		ID:     "doc-2",
		Date:   date.Add(time.Minute),
		Text:   "adiós",
		Status: "600",
	}
	require.NoError(t, s.AppendDocument(ctx, first))
	require.NoError(t, s.AppendDocument(ctx, second))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, first, docs[0])
	assert.Equal(t, "doc-2", docs[1].ID)
	assert.Equal(t, []int{}, docs[1].Tricks)
	assert.Nil(t, docs[1].Request)
}

func TestDocuments_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	doc := Document{ID: "same", Date: time.Now(), Text: "uno", Status: "200"}

	require.NoError(t, s.AppendDocument(ctx, doc))
	doc.Text = "dos"
	require.NoError(t, s.AppendDocument(ctx, doc))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "uno", docs[0].Text)
}

func TestDocuments_EmptyList(t *testing.T) {
	s := createTestStore(t)
	docs, err := s.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestMarshalJSON_NoHTMLEscape(t *testing.T) {
	got, err := marshalJSON([]string{"<a>"})
	require.NoError(t, err)
	assert.Equal(t, `["<a>"]`, got)
}
