package rag

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/theirongolddev/finassist/internal/llm"
)

const answerPrompt = "Sen soru yanıtlama görevleri için bir asistansın. " +
	"Soruyu yanıtlamak için aşağıdaki bağlam parçalarını kullan. " +
	"Yanıt bağlamda yoksa bilmediğini söyle. " +
	"En fazla üç cümle kullan ve yanıtı kısa tut. Türkçe yanıt ver; " +
	"soru aşağıdaki bağlamla ilgisizse özür dile ve bilmediğini söyle.\n\n"

// unknownMarker in an answer suppresses the source list.
const unknownMarker = "bilmiyorum"

// Retriever finds passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Passage, error)
}

// Answerer answers questions from retrieved passages.
type Answerer struct {
	retriever Retriever
	llm       llm.Client
	logger    *zap.Logger
}

// NewAnswerer pairs a retriever with a model client.
func NewAnswerer(r Retriever, client llm.Client, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{retriever: r, llm: client, logger: logger.Named("rag")}
}

// Answer streams a reply grounded on the passages retrieved for question.
// When passages were used and the model did not say it doesn't know, the
// stream ends with a "Kaynaklar:" line listing the source pages.
func (a *Answerer) Answer(ctx context.Context, question string) (*llm.Stream, error) {
	passages, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("passages retrieved", zap.Int("count", len(passages)))

	msgs := []llm.Message{
		llm.System(answerPrompt + joinPassages(passages)),
		llm.User(question),
	}
	inner, err := a.llm.Stream(ctx, msgs)
	if err != nil {
		return nil, err
	}

	return llm.NewStream(ctx, func(ctx context.Context, emit func(string) error) error {
		for {
			c, ok := inner.Next()
			if !ok {
				break
			}
			if c.Err != nil {
				return c.Err
			}
			if err := emit(c.Text); err != nil {
				inner.Cancel()
				return err
			}
		}
		return emit(SourcesSuffix(inner.Text(), passages))
	}), nil
}

// SourcesSuffix returns the source listing appended to an answer, or ""
// when there is nothing to cite or the answer admits not knowing.
func SourcesSuffix(answer string, passages []Passage) string {
	if len(passages) == 0 || strings.Contains(strings.ToLower(answer), unknownMarker) {
		return ""
	}
	seen := make(map[string]bool, len(passages))
	var sources []string
	for _, p := range passages {
		if p.Source != "" && !seen[p.Source] {
			seen[p.Source] = true
			sources = append(sources, p.Source)
		}
	}
	if len(sources) == 0 {
		return ""
	}
	return "\nKaynaklar: " + strings.Join(sources, ", ") + "\n"
}

func joinPassages(passages []Passage) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Content
	}
	return strings.Join(parts, "\n\n")
}
