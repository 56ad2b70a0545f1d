package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/documind-io/documind/internal/ai"
	"github.com/documind-io/documind/internal/model"
	appErr "github.com/documind-io/documind/internal/pkg/errors"
)

const (
	noResultsAnswer = "I couldn't find any relevant information in the knowledge base."

	answerPrompt = `You are DocuMind, a precise and helpful document Q&A assistant.
Answer the user's question using ONLY the provided context passages.
If the context does not contain enough information, say so clearly.
Cite the source filename when possible. Be concise yet thorough.

Context:
%s

Question: %s`

	contextSeparator = "\n\n---\n\n"
	excerptLimit     = 200
)

type QAConfig struct {
	MaxContextChars int
	GenTimeout      time.Duration
}

type QAService struct {
	search    *SearchService
	generator ai.IGenerator
	cfg       QAConfig
}

// NewQAService builds the answer pipeline. A nil generator pins the service
// to extractive mode for its lifetime.
func NewQAService(search *SearchService, generator ai.IGenerator, cfg QAConfig) *QAService {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 6000
	}
	if cfg.GenTimeout <= 0 {
		cfg.GenTimeout = 30 * time.Second
	}
	return &QAService{search: search, generator: generator, cfg: cfg}
}

// Ask retrieves context for the question and synthesizes an answer. The mode
// is decided per call: generation is attempted when a generator is configured
// and any generation failure degrades this call to extractive, leaving later
// calls unaffected.
func (s *QAService) Ask(ctx context.Context, question string, topK int) (*model.AnswerRecord, error) {
	if strings.TrimSpace(question) == "" {
		return nil, appErr.Invalid("question must not be empty")
	}
	logger := logutil.GetLogger(ctx).With(zap.String("question", question))

	results, err := s.search.Search(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		logger.Info("no relevant chunks found")
		return &model.AnswerRecord{
			Question: question,
			Answer:   noResultsAnswer,
			Sources:  []model.Source{},
			Mode:     model.AnswerModeExtractive,
		}, nil
	}

	contextText, used := s.buildContext(results)
	record := &model.AnswerRecord{
		Question: question,
		Sources:  buildSources(used),
	}

	if s.generator != nil {
		answer, err := s.generate(ctx, contextText, question)
		if err == nil {
			record.Answer = answer
			record.Mode = model.AnswerModeGenerative
			return record, nil
		}
		logger.Warn("generation failed, falling back to extractive answer", zap.Error(err))
	}

	record.Answer = extractiveAnswer(used[0])
	record.Mode = model.AnswerModeExtractive
	return record, nil
}

// buildContext concatenates chunks in descending-similarity order, each
// labeled with its source, and caps the total at MaxContextChars by dropping
// whole chunks from the end. The top chunk is always kept so neither mode
// ever sees an empty context.
func (s *QAService) buildContext(results []model.SearchResult) (string, []model.SearchResult) {
	var parts []string
	var used []model.SearchResult
	total := 0
	for i, r := range results {
		part := fmt.Sprintf("[Source %d — %s (similarity: %.3f)]\n%s", i+1, r.Filename, r.Similarity, r.Text)
		cost := len(part)
		if len(parts) > 0 {
			cost += len(contextSeparator)
		}
		if len(parts) > 0 && total+cost > s.cfg.MaxContextChars {
			break
		}
		parts = append(parts, part)
		used = append(used, r)
		total += cost
	}
	return strings.Join(parts, contextSeparator), used
}

func (s *QAService) generate(ctx context.Context, contextText, question string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.GenTimeout)
	defer cancel()
	answer, err := s.generator.Generate(ctx, fmt.Sprintf(answerPrompt, contextText, question))
	if err != nil {
		return "", err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("empty generation response")
	}
	return answer, nil
}

// extractiveAnswer quotes the opening sentences of the best-matching chunk.
func extractiveAnswer(top model.SearchResult) string {
	return fmt.Sprintf("%s\n\n[Source: %s]", firstSentences(top.Text, 2), top.Filename)
}

func firstSentences(text string, n int) string {
	count := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		count++
		if count >= n {
			return strings.TrimSpace(text[:i+1])
		}
	}
	return strings.TrimSpace(text)
}

func buildSources(results []model.SearchResult) []model.Source {
	sources := make([]model.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, model.Source{
			Filename:   r.Filename,
			ChunkID:    r.ChunkID,
			Similarity: r.Similarity,
			Excerpt:    excerpt(r.Text),
		})
	}
	return sources
}

func excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + "…"
}
