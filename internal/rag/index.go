// Package rag indexes a fixed set of bank blog pages in a local vector
// store and answers questions grounded on the retrieved passages.
package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/textsplitter"
	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/config"
)

// ErrNotIndexed indicates the collection is empty or was built with
// different settings and must be refreshed first.
var ErrNotIndexed = errors.New("rag: index not built")

const sourceKey = "source"

// Options configures an Index.
type Options struct {
	Dir            string
	Collection     string
	URLs           []string
	ChunkSize      int
	ChunkOverlap   int
	TopK           int
	EmbeddingModel string
}

// OptionsFromConfig reads the [rag] section.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Dir:            config.RAGDir(cfg),
		Collection:     cfg.RAG.Collection,
		URLs:           cfg.RAG.URLs,
		ChunkSize:      cfg.RAG.ChunkSize,
		ChunkOverlap:   cfg.RAG.ChunkOverlap,
		TopK:           cfg.RAG.TopK,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
	}
}

func (o *Options) applyDefaults() {
	if o.Collection == "" {
		o.Collection = "isbank-blog"
	}
	if len(o.URLs) == 0 {
		o.URLs = config.DefaultRAGURLs
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 1000
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = o.ChunkSize / 5
	}
	if o.TopK <= 0 {
		o.TopK = 4
	}
}

// Passage is one retrieved chunk.
type Passage struct {
	Source     string
	Content    string
	Similarity float32
}

// Index is a persisted chromem collection plus the manifest describing it.
type Index struct {
	opts     Options
	db       *chromem.DB
	embed    chromem.EmbeddingFunc
	coll     *chromem.Collection
	manifest Manifest
	fetcher  *Fetcher
	logger   *zap.Logger
}

// Open loads (or creates) the persistent store in opts.Dir. It never
// fetches; call Refresh to build or update the collection.
func Open(opts Options, embed chromem.EmbeddingFunc, logger *zap.Logger) (*Index, error) {
	opts.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := chromem.NewPersistentDB(filepath.Join(opts.Dir, "chromem"), false)
	if err != nil {
		return nil, fmt.Errorf("rag: opening store %s: %w", opts.Dir, err)
	}
	coll, err := db.GetOrCreateCollection(opts.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("rag: opening collection %s: %w", opts.Collection, err)
	}
	m, _, err := readManifest(opts.Dir)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		opts:     opts,
		db:       db,
		embed:    embed,
		coll:     coll,
		manifest: m,
		fetcher:  NewFetcher(logger),
		logger:   logger.Named("rag"),
	}
	idx.logger.Debug("index opened",
		zap.String("dir", opts.Dir),
		zap.Int("documents", coll.Count()),
		zap.Bool("ready", idx.Ready()))
	return idx, nil
}

// Ready reports whether the persisted collection matches the current
// settings and holds documents.
func (x *Index) Ready() bool {
	return x.coll.Count() > 0 && x.manifest.ConfigHash == configHash(x.opts)
}

// Manifest returns what the current collection was built from.
func (x *Index) Manifest() Manifest { return x.manifest }

// Count returns the number of stored chunks.
func (x *Index) Count() int { return x.coll.Count() }

// Refresh fetches the source pages and rebuilds the collection when their
// content or the index settings changed. force rebuilds unconditionally.
func (x *Index) Refresh(ctx context.Context, force bool) (bool, error) {
	pages, err := x.fetcher.FetchAll(ctx, x.opts.URLs)
	if err != nil {
		return false, err
	}
	return x.Build(ctx, pages, force)
}

// Build indexes already fetched pages, skipping the work when the manifest
// shows the same content was indexed with the same settings.
func (x *Index) Build(ctx context.Context, pages []Page, force bool) (bool, error) {
	content := contentHash(pages)
	if !force && x.Ready() && x.manifest.ContentHash == content {
		x.logger.Info("index up to date", zap.Int("documents", x.coll.Count()))
		return false, nil
	}

	docs, err := x.chunk(pages)
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, fmt.Errorf("rag: no text extracted from %d pages", len(pages))
	}

	if err := x.db.DeleteCollection(x.opts.Collection); err != nil {
		return false, fmt.Errorf("rag: dropping stale collection: %w", err)
	}
	coll, err := x.db.GetOrCreateCollection(x.opts.Collection, nil, x.embed)
	if err != nil {
		return false, fmt.Errorf("rag: recreating collection: %w", err)
	}
	start := time.Now()
	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return false, fmt.Errorf("rag: embedding %d chunks: %w", len(docs), err)
	}
	x.coll = coll

	m := Manifest{
		Collection:  x.opts.Collection,
		ConfigHash:  configHash(x.opts),
		ContentHash: content,
		Chunks:      len(docs),
		BuiltAt:     time.Now().UTC(),
	}
	for _, p := range pages {
		m.Sources = append(m.Sources, p.URL)
	}
	if err := writeManifest(x.opts.Dir, m); err != nil {
		return false, err
	}
	x.manifest = m
	x.logger.Info("index rebuilt",
		zap.Int("pages", len(pages)),
		zap.Int("chunks", len(docs)),
		zap.Duration("elapsed", time.Since(start)))
	return true, nil
}

func (x *Index) chunk(pages []Page) ([]chromem.Document, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(x.opts.ChunkSize),
		textsplitter.WithChunkOverlap(x.opts.ChunkOverlap),
	)
	var docs []chromem.Document
	for _, p := range pages {
		if p.Text == "" {
			x.logger.Warn("page has no article text", zap.String("url", p.URL))
			continue
		}
		chunks, err := splitter.SplitText(p.Text)
		if err != nil {
			return nil, fmt.Errorf("rag: splitting %s: %w", p.URL, err)
		}
		for i, c := range chunks {
			docs = append(docs, chromem.Document{
				ID:       uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", p.URL, i))).String(),
				Metadata: map[string]string{sourceKey: p.URL},
				Content:  c,
			})
		}
	}
	return docs, nil
}

// Retrieve returns the passages most similar to query, best first.
func (x *Index) Retrieve(ctx context.Context, query string) ([]Passage, error) {
	if !x.Ready() {
		return nil, ErrNotIndexed
	}
	// chromem requires nResults <= document count.
	k := min(x.opts.TopK, x.coll.Count())
	results, err := x.coll.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: query: %w", err)
	}
	out := make([]Passage, len(results))
	for i, r := range results {
		out[i] = Passage{Source: r.Metadata[sourceKey], Content: r.Content, Similarity: r.Similarity}
	}
	return out, nil
}
