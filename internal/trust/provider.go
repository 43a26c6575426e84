// Package trust talks to the governance service that scores instructors.
package trust

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

const (
	MinScore = 0
	MaxScore = 1000
)

var ErrScoreOutOfRange = errors.New("trust score out of range")

// Provider returns an instructor's trust score in [0, 1000].
type Provider interface {
	TrustScore(ctx context.Context, instructorID string) (int, error)
}

func validateScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: %d", ErrScoreOutOfRange, score)
	}
	return nil
}

// StaticProvider serves scores from memory. Unknown instructors score 0.
type StaticProvider struct {
	mu     sync.RWMutex
	scores map[string]int
}

// NewStaticProvider creates a new provider backed by a fixed map
func NewStaticProvider(scores map[string]int) *StaticProvider {
	p := &StaticProvider{scores: make(map[string]int, len(scores))}
	for id, score := range scores {
		p.scores[id] = score
	}
	return p
}

// Set replaces one instructor's score.
func (p *StaticProvider) Set(instructorID string, score int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scores[instructorID] = score
}

// TrustScore returns the stored score, or 0 for unknown instructors.
func (p *StaticProvider) TrustScore(ctx context.Context, instructorID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	score := p.scores[instructorID]
	if err := validateScore(score); err != nil {
		return 0, err
	}
	return score, nil
}
