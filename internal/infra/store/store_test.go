package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas-scraper/internal/domain/entity"
)

func testArticle(source, title string) entity.RawArticle {
	return entity.NewRawArticle(source,
		"https://example.com/gundem/"+entity.SlugifyTitle(title),
		title, "yeterince uzun bir gövde metni", "gundem",
		"2025-03-14T08:00:00Z", "", time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC))
}

func TestArticleStore_SaveAndRead_RoundTrip(t *testing.T) {
	s, err := NewArticleStore(t.TempDir())
	require.NoError(t, err)

	a := testArticle("sozcu", "Başlıklı haber")
	path, err := s.Save(a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Dir(), a.RecordID()), path)

	got, err := s.Read(a.RecordID())
	require.NoError(t, err)
	if diff := cmp.Diff(a, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestArticleStore_Count_IgnoresLedgerFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewArticleStore(dir)
	require.NoError(t, err)

	_, err = s.Save(testArticle("sozcu", "Bir"))
	require.NoError(t, err)
	_, err = s.Save(testArticle("ntv", "İki"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sozcu_urls.txt"), []byte("x\n"), 0o644))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestArticleStore_SaveIsIdempotent(t *testing.T) {
	s, err := NewArticleStore(t.TempDir())
	require.NoError(t, err)

	a := testArticle("diken", "Aynı haber")
	_, err = s.Save(a)
	require.NoError(t, err)
	_, err = s.Save(a)
	require.NoError(t, err)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSafeSourceFilename(t *testing.T) {
	assert.Equal(t, "haber_sol", SafeSourceFilename("haber_sol"))
	assert.Equal(t, "s_zc_", SafeSourceFilename("sözcü"))
	assert.Equal(t, "a_b_c", SafeSourceFilename("a.b/c"))
}

func TestURLLedger_LoadAppendFilter(t *testing.T) {
	l, err := NewURLLedger(t.TempDir())
	require.NoError(t, err)

	seen, err := l.Load("sozcu")
	require.NoError(t, err)
	assert.Empty(t, seen)

	require.NoError(t, l.Append("sozcu", []string{
		"https://example.com/a",
		"https://example.com/b",
	}))
	require.NoError(t, l.Append("sozcu", []string{"https://example.com/c"}))

	seen, err = l.Load("sozcu")
	require.NoError(t, err)
	assert.Len(t, seen, 3)

	fresh, err := l.Filter("sozcu", []string{
		"https://example.com/b",
		"https://example.com/d",
		"https://example.com/a",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/d"}, fresh)
}

func TestURLLedger_PerSourceIsolation(t *testing.T) {
	l, err := NewURLLedger(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, l.Append("sozcu", []string{"https://example.com/a"}))

	seen, err := l.Load("ntv")
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestGroupStore_LayoutAndIDs(t *testing.T) {
	g, err := NewGroupStore(t.TempDir())
	require.NoError(t, err)

	// Fresh store: unmatched pool exists, no groups.
	has, err := g.HasGroups()
	require.NoError(t, err)
	assert.False(t, has)

	next, err := g.NextGroupID()
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	_, err = g.GroupDir(1)
	require.NoError(t, err)
	_, err = g.GroupDir(5)
	require.NoError(t, err)

	next, err = g.NextGroupID()
	require.NoError(t, err)
	assert.Equal(t, 6, next)

	groups, err := g.Groups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].ID)
	assert.Equal(t, 5, groups[1].ID)
}

func TestGroupStore_MoveSemantics(t *testing.T) {
	base := t.TempDir()
	g, err := NewGroupStore(filepath.Join(base, "grouped"))
	require.NoError(t, err)

	pulled, err := NewArticleStore(filepath.Join(base, "pulled"))
	require.NoError(t, err)

	a := testArticle("cumhuriyet", "Taşınacak haber")
	src, err := pulled.Save(a)
	require.NoError(t, err)

	require.NoError(t, g.MoveIntoGroup(3, src))

	// Source is gone, group holds the record under the same id.
	_, statErr := os.Stat(src)
	assert.True(t, os.IsNotExist(statErr))

	records, err := g.GroupRecords(3)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, a.RecordID(), filepath.Base(records[0]))

	// Re-moving the already-moved source path is a no-op, not an error.
	require.NoError(t, g.MoveIntoGroup(3, src))

	// Moving a record onto itself is a no-op.
	require.NoError(t, g.MoveIntoGroup(3, records[0]))
}

func TestGroupStore_MoveToUnmatched(t *testing.T) {
	base := t.TempDir()
	g, err := NewGroupStore(filepath.Join(base, "grouped"))
	require.NoError(t, err)
	pulled, err := NewArticleStore(filepath.Join(base, "pulled"))
	require.NoError(t, err)

	a := testArticle("birgun", "Eşleşmeyen haber")
	src, err := pulled.Save(a)
	require.NoError(t, err)

	require.NoError(t, g.MoveToUnmatched(src))

	unmatched, err := g.UnmatchedRecords()
	require.NoError(t, err)
	require.Len(t, unmatched, 1)
	assert.Equal(t, a.RecordID(), filepath.Base(unmatched[0]))
}

func TestEmbeddingCache_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedding_cache.json")

	c, err := OpenEmbeddingCache(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	c.Put("rec_a.json", []float32{0.1, 0.2, 0.3})
	c.Put("rec_b.json", []float32{0.4, 0.5, 0.6})
	require.NoError(t, c.Flush())

	reopened, err := OpenEmbeddingCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Len())

	v, ok := reopened.Get("rec_a.json")
	require.True(t, ok)
	assert.InDelta(t, 0.2, float64(v[1]), 1e-6)
	assert.False(t, reopened.Has("rec_missing.json"))
}

func TestEmbeddingCache_CleanFlushDoesNotRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embedding_cache.json")
	c, err := OpenEmbeddingCache(path)
	require.NoError(t, err)

	c.Put("rec.json", []float32{1})
	require.NoError(t, c.Flush())

	info1, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, c.Flush())
	info2, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, info1.ModTime(), info2.ModTime())
}

func TestScraperLog_Lines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraper_log.txt")
	l := NewScraperLog(path)

	at := time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)
	require.NoError(t, l.LogCycle(7, at))
	require.NoError(t, l.LogCycle(0, at))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(raw)
	assert.Contains(t, content, "[2025-03-14 10:30:00] 7 new articles found and saved.")
	assert.Contains(t, content, "[2025-03-14 10:30:00] 0 new articles found and saved.")
}

func TestNewArticlesLog_ResetAppendPaths(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "new_articles_log.txt")
	l := NewNewArticlesLog(logPath)

	existing := filepath.Join(dir, "exists.json")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o644))
	vanished := filepath.Join(dir, "vanished.json")

	require.NoError(t, l.Reset())
	require.NoError(t, l.Append([]string{existing, vanished}))

	paths, err := l.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{existing}, paths)

	require.NoError(t, l.Reset())
	paths, err = l.Paths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}
