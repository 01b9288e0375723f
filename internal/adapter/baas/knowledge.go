package baas

import (
	"context"
	"net/http"

	"github.com/pscheid92/coachpulse/internal/adapter/provider"
	"github.com/pscheid92/coachpulse/internal/domain"
	"github.com/tidwall/gjson"
)

const defaultMatchThreshold = 0.75

// KnowledgeBase runs the match_documents RPC over the coaching corpus.
type KnowledgeBase struct {
	http      *provider.Client
	threshold float64
}

var _ domain.KnowledgeBase = (*KnowledgeBase)(nil)

func NewKnowledgeBase(cfg Config, opts ...provider.Option) *KnowledgeBase {
	opts = append([]provider.Option{
		provider.WithHeader("apikey", cfg.ServiceKey),
		provider.WithBearer(cfg.ServiceKey),
	}, opts...)
	return &KnowledgeBase{
		http:      provider.New(providerName, cfg.URL, opts...),
		threshold: defaultMatchThreshold,
	}
}

type matchDocumentsRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	MatchThreshold float64   `json:"match_threshold"`
	MatchCount     int       `json:"match_count"`
}

func (kb *KnowledgeBase) Search(ctx context.Context, embedding []float32, limit int) ([]domain.KnowledgeChunk, error) {
	body, err := kb.http.Raw(ctx, "match_documents", http.MethodPost, "/rest/v1/rpc/match_documents", matchDocumentsRequest{
		QueryEmbedding: embedding,
		MatchThreshold: kb.threshold,
		MatchCount:     limit,
	})
	if err != nil {
		return nil, err
	}

	var chunks []domain.KnowledgeChunk
	gjson.ParseBytes(body).ForEach(func(_, row gjson.Result) bool {
		content := row.Get("content").String()
		if content != "" {
			chunks = append(chunks, domain.KnowledgeChunk{
				Content:    content,
				Similarity: row.Get("similarity").Float(),
			})
		}
		return true
	})
	return chunks, nil
}
