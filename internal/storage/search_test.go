package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSearchDocs(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	docs := []*Document{
		testDocument("romashka.pdf", "Разработка системы учета договоров в ООО Ромашка. Ведение отчетности по проектам.", "romashka"),
		testDocument("vasilek.pdf", "Сопровождение системы документооборота. Подбор персонала в call-центр компании Василек.", "vasilek"),
		testDocument("english.pdf", "Developed a billing platform for enterprise clients. Maintained payment integrations.", "english"),
	}
	for _, doc := range docs {
		require.NoError(t, store.UpsertDocument(ctx, doc))
	}
}

func TestSearchPhrase_ExactMatch(t *testing.T) {
	store := setupTestStore(t)
	seedSearchDocs(t, store)

	hits, err := store.SearchPhrase(context.Background(), "Разработка системы учета договоров", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "romashka.pdf", hits[0].Filename)
	assert.Equal(t, "romashka", hits[0].CandidateName)
	assert.Contains(t, hits[0].Content, "ООО Ромашка")
	assert.NotEmpty(t, hits[0].Snippet)
}

func TestSearchPhrase_NoMatch(t *testing.T) {
	store := setupTestStore(t)
	seedSearchDocs(t, store)

	hits, err := store.SearchPhrase(context.Background(), "совершенно отсутствующая фраза", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchPhrase_EmbeddedQuotes(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertDocument(ctx,
		testDocument("quoted.pdf", `Работа в компании "Альфа" над проектом биллинга`, "quoted")))

	// Quotes inside the phrase must not break FTS5 query syntax
	hits, err := store.SearchPhrase(ctx, `компании "Альфа"`, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "quoted.pdf", hits[0].Filename)
}

func TestSearchPhrase_Limit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		require.NoError(t, store.UpsertDocument(ctx,
			testDocument(name, "мониторинг рынка недвижимости", name)))
	}

	hits, err := store.SearchPhrase(ctx, "мониторинг рынка", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchAnyWord(t *testing.T) {
	store := setupTestStore(t)
	seedSearchDocs(t, store)

	hits, err := store.SearchAnyWord(context.Background(), []string{"биллинг", "персонала", "договоров"}, 10)
	require.NoError(t, err)

	filenames := make([]string, 0, len(hits))
	for _, hit := range hits {
		filenames = append(filenames, hit.Filename)
	}
	assert.Contains(t, filenames, "romashka.pdf")
	assert.Contains(t, filenames, "vasilek.pdf")
}

func TestSearchAnyWord_Empty(t *testing.T) {
	store := setupTestStore(t)

	hits, err := store.SearchAnyWord(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchAnyWord_Stemming(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertDocument(ctx,
		testDocument("stem.pdf", "Maintained several payment integrations", "stem")))

	// porter tokenizer matches morphological variants of English terms
	hits, err := store.SearchAnyWord(ctx, []string{"maintaining"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "stem.pdf", hits[0].Filename)
}

func TestSearchSubstring(t *testing.T) {
	store := setupTestStore(t)
	seedSearchDocs(t, store)

	hits, err := store.SearchSubstring(context.Background(), "документооборот", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "vasilek.pdf", hits[0].Filename)
}

func TestSearchSubstring_EscapesWildcards(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertDocument(ctx, testDocument("wild.pdf", "plain text without percent", "wild")))

	hits, err := store.SearchSubstring(ctx, "100%", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
