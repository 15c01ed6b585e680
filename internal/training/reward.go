// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package training

import (
	"sort"
	"strings"

	"github.com/pdiddy/sciqa/pkg/types"
)

// Reward weights.
const (
	answerWeight    = 0.3
	citationWeight  = 0.3
	reasoningWeight = 0.4
)

// Reward scores pred against truth in [0, 1]: word overlap of the answers,
// citation count relative to the reference, and word overlap of the
// reasoning.
func Reward(pred, truth types.Answer) float64 {
	content := Similarity(pred.Answer, truth.Answer)
	citations := min(1.0, float64(len(pred.Citations))/float64(max(1, len(truth.Citations))))
	reasoning := Similarity(pred.Reasoning, truth.Reasoning)
	return answerWeight*content + citationWeight*citations + reasoningWeight*reasoning
}

// Similarity is the Jaccard index of the lowercased whitespace-separated
// word sets of a and b. It is 0 when either text has no words.
func Similarity(a, b string) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}

// Ranked pairs a candidate answer with its reward.
type Ranked struct {
	Answer types.Answer
	Reward float64
}

// Rank scores each candidate against ref and orders them by reward,
// highest first. Ties keep their input order.
func Rank(cands []types.Answer, ref types.Answer) []Ranked {
	out := make([]Ranked, len(cands))
	for i, c := range cands {
		out[i] = Ranked{Answer: c, Reward: Reward(c, ref)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Reward > out[j].Reward })
	return out
}
