// Package cluster implements the incremental clustering engine. Eligible
// records are embedded with the sentence encoder, grouped by cosine
// similarity, and persisted in the group store. The engine runs in two modes
// with identical post-conditions: an initial union-find pass when no groups
// exist yet, and an incremental attach-or-pair pass afterwards.
package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"veritas-scraper/internal/infra/encoder"
	"veritas-scraper/internal/infra/store"
	"veritas-scraper/internal/observability/metrics"
)

// Engine clusters eligible records into event groups.
type Engine struct {
	pulled  *store.ArticleStore
	groups  *store.GroupStore
	encoder *encoder.CachingEncoder
	newLog  *store.NewArticlesLog

	// matchThreshold is the attachment similarity threshold.
	matchThreshold float64
	// internalThreshold is the minimum pairwise similarity a persisted group
	// must satisfy internally.
	internalThreshold float64
}

// Stats summarizes one clustering pass.
type Stats struct {
	Mode       string
	Candidates int
	NewGroups  int
	Attached   int
	Unmatched  int
	Duration   time.Duration
}

// New creates an Engine.
func New(pulled *store.ArticleStore, groups *store.GroupStore, enc *encoder.CachingEncoder,
	newLog *store.NewArticlesLog, matchThreshold, internalThreshold float64) *Engine {
	return &Engine{
		pulled:            pulled,
		groups:            groups,
		encoder:           enc,
		newLog:            newLog,
		matchThreshold:    matchThreshold,
		internalThreshold: internalThreshold,
	}
}

// candidate is one eligible record staged for clustering.
type candidate struct {
	path   string
	id     string
	text   string
	vector []float32
}

// Run executes one clustering pass. The mode is selected by the presence of
// group directories in the store.
func (e *Engine) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()

	hasGroups, err := e.groups.HasGroups()
	if err != nil {
		return nil, err
	}

	var stats *Stats
	if hasGroups {
		stats, err = e.runIncremental(ctx)
	} else {
		stats, err = e.runInitial(ctx)
	}
	if err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	metrics.RecordClusterPass(stats.Duration, stats.NewGroups, stats.Attached)

	slog.Info("clustering pass completed",
		slog.String("mode", stats.Mode),
		slog.Int("candidates", stats.Candidates),
		slog.Int("new_groups", stats.NewGroups),
		slog.Int("attached", stats.Attached),
		slog.Int("unmatched", stats.Unmatched),
		slog.Duration("duration", stats.Duration))

	return stats, nil
}

// runInitial performs the full pairwise union-find pass over the pulled store.
func (e *Engine) runInitial(ctx context.Context) (*Stats, error) {
	stats := &Stats{Mode: "initial"}

	paths, err := e.pulled.List()
	if err != nil {
		return nil, err
	}

	cands, err := e.stage(ctx, paths, nil)
	if err != nil {
		return nil, err
	}
	stats.Candidates = len(cands)
	if len(cands) == 0 {
		return stats, nil
	}

	sims, err := e.similarityMatrix(ctx, cands)
	if err != nil {
		return nil, err
	}

	uf := newUnionFind(len(cands))
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			if sims[i][j] < e.matchThreshold {
				continue
			}
			// Identical texts are re-published clones, not two reports of one
			// event; they must not form a group of themselves.
			if strings.TrimSpace(cands[i].text) == strings.TrimSpace(cands[j].text) {
				continue
			}
			uf.union(i, j)
		}
	}

	clustered := make([]bool, len(cands))
	for _, members := range uf.components() {
		if len(members) < 2 {
			continue
		}
		// A component chains A~B~C even when cos(A,C) is low; the internal
		// minimum guards against persisting such chains.
		if componentMin(sims, members) < e.internalThreshold {
			continue
		}

		gid, err := e.groups.NextGroupID()
		if err != nil {
			return nil, err
		}
		for _, idx := range members {
			if err := e.groups.MoveIntoGroup(gid, cands[idx].path); err != nil {
				return nil, err
			}
			clustered[idx] = true
		}
		stats.NewGroups++
	}

	for idx, c := range cands {
		if clustered[idx] {
			continue
		}
		if err := e.groups.MoveToUnmatched(c.path); err != nil {
			return nil, err
		}
		stats.Unmatched++
	}

	return stats, nil
}

// runIncremental attaches candidates to existing groups by minimum member
// similarity, then pairs the leftovers into new groups.
func (e *Engine) runIncremental(ctx context.Context) (*Stats, error) {
	stats := &Stats{Mode: "incremental"}

	groupVectors, err := e.loadGroupVectors(ctx)
	if err != nil {
		return nil, err
	}

	unmatched, err := e.groups.UnmatchedRecords()
	if err != nil {
		return nil, err
	}
	fresh, err := e.newLog.Paths()
	if err != nil {
		return nil, err
	}

	cands, err := e.stage(ctx, unmatched, fresh)
	if err != nil {
		return nil, err
	}
	stats.Candidates = len(cands)
	if len(cands) == 0 {
		return stats, nil
	}

	gids := sortedGroupIDs(groupVectors)
	attached := make([]bool, len(cands))

	for i, cand := range cands {
		// Pass 1: best existing group by minimum member similarity. Equal
		// scores resolve to the smallest group id for determinism.
		bestGID, bestScore := 0, 0.0
		for _, gid := range gids {
			if score := minSimilarity(cand.vector, groupVectors[gid]); score > bestScore {
				bestScore = score
				bestGID = gid
			}
		}

		if bestScore >= e.matchThreshold {
			if err := e.groups.MoveIntoGroup(bestGID, cand.path); err != nil {
				return nil, err
			}
			groupVectors[bestGID] = append(groupVectors[bestGID], cand.vector)
			attached[i] = true
			stats.Attached++
			continue
		}

		// Pass 2: pair with a later unattached candidate. Identical texts are
		// skipped so re-published clones cannot form a group of themselves.
		for j := i + 1; j < len(cands); j++ {
			if attached[j] {
				continue
			}
			if strings.TrimSpace(cand.text) == strings.TrimSpace(cands[j].text) {
				continue
			}
			if Cosine(cand.vector, cands[j].vector) < e.matchThreshold {
				continue
			}

			gid, err := e.groups.NextGroupID()
			if err != nil {
				return nil, err
			}
			if err := e.groups.MoveIntoGroup(gid, cand.path); err != nil {
				return nil, err
			}
			if err := e.groups.MoveIntoGroup(gid, cands[j].path); err != nil {
				return nil, err
			}
			groupVectors[gid] = [][]float32{cand.vector, cands[j].vector}
			gids = append(gids, gid)
			attached[i], attached[j] = true, true
			stats.NewGroups++
			break
		}
	}

	for i, cand := range cands {
		if attached[i] {
			continue
		}
		if err := e.groups.MoveToUnmatched(cand.path); err != nil {
			return nil, err
		}
		stats.Unmatched++
	}

	return stats, nil
}

// stage reads, filters and embeds the records at the given paths. The two path
// lists are concatenated and deduplicated by record id; ineligible records are
// dropped (they stay where they are), as are records the encoder could not
// embed.
func (e *Engine) stage(ctx context.Context, primary, extra []string) ([]candidate, error) {
	seen := make(map[string]struct{})
	var cands []candidate

	for _, path := range append(append([]string{}, primary...), extra...) {
		id := filepath.Base(path)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		a, err := store.ReadArticleFile(path)
		if err != nil {
			slog.Warn("skipping unreadable record", slog.String("path", path), slog.Any("error", err))
			continue
		}
		if !a.Eligible() {
			continue
		}
		cands = append(cands, candidate{path: path, id: id, text: a.EmbedText()})
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].id < cands[j].id })

	ids := make([]string, len(cands))
	texts := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.id
		texts[i] = c.text
	}
	if err := e.encoder.EnsureCached(ctx, ids, texts); err != nil {
		return nil, err
	}

	embedded := cands[:0]
	for _, c := range cands {
		v, ok := e.encoder.Vector(c.id)
		if !ok {
			slog.Warn("record has no embedding after encode, leaving for next cycle",
				slog.String("record_id", c.id))
			continue
		}
		c.vector = v
		embedded = append(embedded, c)
	}

	return embedded, nil
}

// loadGroupVectors loads the member vectors of every existing group, encoding
// any member that is missing from the cache.
func (e *Engine) loadGroupVectors(ctx context.Context) (map[int][][]float32, error) {
	groups, err := e.groups.Groups()
	if err != nil {
		return nil, err
	}

	vectors := make(map[int][][]float32, len(groups))
	for _, g := range groups {
		paths, err := e.groups.GroupRecords(g.ID)
		if err != nil {
			return nil, err
		}

		var ids, texts []string
		for _, path := range paths {
			a, err := store.ReadArticleFile(path)
			if err != nil {
				slog.Warn("skipping unreadable group member",
					slog.String("path", path), slog.Any("error", err))
				continue
			}
			ids = append(ids, filepath.Base(path))
			texts = append(texts, a.EmbedText())
		}
		if err := e.encoder.EnsureCached(ctx, ids, texts); err != nil {
			return nil, err
		}

		var members [][]float32
		for _, id := range ids {
			if v, ok := e.encoder.Vector(id); ok {
				members = append(members, v)
			}
		}
		if len(members) > 0 {
			vectors[g.ID] = members
		}
	}

	return vectors, nil
}

// similarityMatrix computes the full pairwise cosine matrix in parallel row
// blocks. The matrix is symmetric with a unit diagonal.
func (e *Engine) similarityMatrix(ctx context.Context, cands []candidate) ([][]float64, error) {
	n := len(cands)
	sims := make([][]float64, n)
	for i := range sims {
		sims[i] = make([]float64, n)
		sims[i][i] = 1
	}

	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}

	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		row := i
		eg.Go(func() error {
			for j := row + 1; j < n; j++ {
				sims[row][j] = Cosine(cands[row].vector, cands[j].vector)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// Mirror below the diagonal after the parallel scan.
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sims[j][i] = sims[i][j]
		}
	}

	return sims, nil
}

// componentMin returns the minimum pairwise similarity within a component.
func componentMin(sims [][]float64, members []int) float64 {
	min := 1.0
	for a := 0; a < len(members); a++ {
		for b := a + 1; b < len(members); b++ {
			if s := sims[members[a]][members[b]]; s < min {
				min = s
			}
		}
	}
	return min
}

func sortedGroupIDs(groupVectors map[int][][]float32) []int {
	gids := make([]int, 0, len(groupVectors))
	for gid := range groupVectors {
		gids = append(gids, gid)
	}
	sort.Ints(gids)
	return gids
}

// String implements fmt.Stringer for cycle logs.
func (s *Stats) String() string {
	return fmt.Sprintf("%s: %d candidates, %d new groups, %d attached, %d unmatched",
		s.Mode, s.Candidates, s.NewGroups, s.Attached, s.Unmatched)
}
