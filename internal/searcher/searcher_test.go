package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Juliaess/resume-searcher-bot/internal/cache"
	"github.com/Juliaess/resume-searcher-bot/internal/storage"
)

type memCache struct {
	m map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{m: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, ok := c.m[key]; ok {
		return v, nil
	}
	return nil, cache.ErrMiss
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	delete(c.m, key)
	return nil
}

func (c *memCache) Close() {}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCache) Delete(ctx context.Context, key string) error {
	return errors.New("connection refused")
}

func (brokenCache) Close() {}

func setupEngine(t *testing.T, cch cache.Store) (*Engine, storage.Store) {
	t.Helper()

	store, err := storage.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	if cch == nil {
		cch = cache.Noop{}
	}
	engine := New(store, cch, zap.NewNop(), Config{ResumesDir: "/resumes"})
	return engine, store
}

func seedDoc(t *testing.T, store storage.Store, filename, content, candidate string) {
	t.Helper()
	require.NoError(t, store.UpsertDocument(context.Background(), &storage.Document{
		Filename:      filename,
		Content:       content,
		CandidateName: candidate,
		FileSize:      1024,
	}))
}

func TestSearch_ExactPhrase(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, nil)

	seedDoc(t, store, "ivanov.pdf",
		"Менеджер проектов. Разработка системы учета договоров в ООО Ромашка. Десять лет опыта.",
		"Иванов Иван")
	seedDoc(t, store, "petrova.pdf",
		"Бухгалтер. Ведение отчетности и налоговый учет на предприятии.",
		"Петрова Анна")

	results, err := engine.Search(ctx, "Разработка системы учета договоров в ООО Ромашка", 20)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "ivanov.pdf", top.Filename)
	assert.Equal(t, LevelExactPhrase, top.SearchLevel)
	assert.True(t, top.HasExactMatch)
	assert.Greater(t, top.RelevanceScore, 0.3)
	assert.Equal(t, "/resumes/ivanov.pdf", top.FilePath)
	assert.NotEmpty(t, top.MatchedPhrase)
}

func TestSearch_NoMatches(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, nil)

	seedDoc(t, store, "ivanov.pdf", "Водитель категории B, стаж пятнадцать лет", "Иванов")

	results, err := engine.Search(ctx, "Проектирование мостовых переходов из клееного бруса", 20)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_FallbackTier(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, nil)

	seedDoc(t, store, "smenshik.pdf",
		"Сменный график на производстве, посменное дежурство в цехе",
		"Сменщик")

	// Boilerplate only: phrase extraction yields nothing.
	results, err := engine.Search(ctx, "Опыт работы. График работы. Образование и занятость.", 20)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "smenshik.pdf", results[0].Filename)
	assert.Equal(t, LevelFallbackWord, results[0].SearchLevel)
	assert.InDelta(t, 0.3, results[0].RelevanceScore, 1e-9)
	assert.NotEmpty(t, results[0].MatchedWord)
}

func TestSearch_WordComboTier(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, nil)

	seedDoc(t, store, "combo.pdf",
		"Проводил внедрение и настройку новых систем хранения данных",
		"Комбинаторов")

	results, err := engine.Search(ctx, "Внедрение новых CRM систем и обучение пользователей", 20)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "combo.pdf", top.Filename)
	assert.Equal(t, LevelWordCombo, top.SearchLevel)
	assert.False(t, top.HasExactMatch)
	assert.GreaterOrEqual(t, top.MatchedWords, 2)
	assert.InDelta(t, 0.6, top.RelevanceScore, 1e-9)
}

func TestSearch_LimitTruncates(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, nil)

	line := "Ведение складского учета на базе автоматизированной системы"
	seedDoc(t, store, "first.pdf", "Кладовщик. "+line+".", "Первый")
	seedDoc(t, store, "second.pdf", "Логист. "+line+".", "Второй")

	results, err := engine.Search(ctx, line, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_CacheSkipsSecondPass(t *testing.T) {
	ctx := context.Background()
	mem := newMemCache()
	engine, store := setupEngine(t, mem)

	seedDoc(t, store, "ivanov.pdf",
		"Разработка системы учета договоров в ООО Ромашка",
		"Иванов")

	query := "Разработка системы учета договоров в ООО Ромашка"
	first, err := engine.Search(ctx, query, 20)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	assert.EqualValues(t, 1, engine.scoringPasses.Load())

	second, err := engine.Search(ctx, query, 20)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Filename, second[0].Filename)
	assert.Equal(t, first[0].RelevanceScore, second[0].RelevanceScore)

	// Served from cache, no second scoring pass.
	assert.EqualValues(t, 1, engine.scoringPasses.Load())
}

func TestSearch_DifferentLimitMissesCache(t *testing.T) {
	ctx := context.Background()
	mem := newMemCache()
	engine, store := setupEngine(t, mem)

	seedDoc(t, store, "ivanov.pdf",
		"Разработка системы учета договоров в ООО Ромашка",
		"Иванов")

	query := "Разработка системы учета договоров в ООО Ромашка"
	_, err := engine.Search(ctx, query, 20)
	require.NoError(t, err)
	_, err = engine.Search(ctx, query, 5)
	require.NoError(t, err)

	assert.EqualValues(t, 2, engine.scoringPasses.Load())
}

func TestSearch_CacheFailuresSwallowed(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, brokenCache{})

	seedDoc(t, store, "ivanov.pdf",
		"Разработка системы учета договоров в ООО Ромашка",
		"Иванов")

	results, err := engine.Search(ctx, "Разработка системы учета договоров в ООО Ромашка", 20)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSearch_DropsLowScores(t *testing.T) {
	ctx := context.Background()
	engine, store := setupEngine(t, nil)

	// Content matches the FTS phrase via stemming but contains no extracted
	// phrase verbatim, so only the preliminary score survives scoring.
	seedDoc(t, store, "stemmed.pdf",
		"Управлял складской логистикой филиала компании",
		"Складов")

	results, err := engine.Search(ctx, "Управление складской логистикой филиала региона", 20)
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.RelevanceScore, 0.1)
	}
}

func TestRelevance_MultiPhraseBonus(t *testing.T) {
	engine, _ := setupEngine(t, nil)

	phrases := []string{
		"руководство отделом продаж северо-западного региона",
		"формирование бюджета отдела маркетинга",
	}
	r := Result{
		RelevanceScore: 0.8,
		content: "Руководство отделом продаж северо-западного региона. " +
			"Формирование бюджета отдела маркетинга.",
	}

	// 0.5 cap + 0.38 + 0.2 bonus, clamped to 1.0
	score := engine.relevance(r, phrases)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestRelevance_KeepsPreliminaryWithoutContent(t *testing.T) {
	engine, _ := setupEngine(t, nil)

	r := Result{RelevanceScore: 0.42}
	assert.InDelta(t, 0.42, engine.relevance(r, []string{"любая фраза для проверки"}), 1e-9)
}
