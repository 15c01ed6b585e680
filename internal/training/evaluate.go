// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package training

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/sciqa/pkg/types"
)

// AnswerFunc answers one query.
type AnswerFunc func(ctx context.Context, q types.Query) (types.Answer, error)

// Metrics summarises an evaluation run. Accuracy and MeanReward are taken
// over all items; a failed item scores zero.
type Metrics struct {
	Count      int     `json:"count" yaml:"count"`
	Correct    int     `json:"correct" yaml:"correct"`
	Failed     int     `json:"failed" yaml:"failed"`
	Accuracy   float64 `json:"accuracy" yaml:"accuracy"`
	MeanReward float64 `json:"mean_reward" yaml:"mean_reward"`
}

// Evaluate answers every item and scores it against the reference answer.
// An answer is correct when it matches the reference text ignoring case
// and surrounding space. Per-item progress is written to w.
func Evaluate(ctx context.Context, answer AnswerFunc, items []types.DatasetItem, w io.Writer) (Metrics, error) {
	m := Metrics{Count: len(items)}
	var total float64

	for i, item := range items {
		select {
		case <-ctx.Done():
			return m, ctx.Err()
		default:
		}

		pred, err := answer(ctx, item.Question)
		if err != nil {
			fmt.Fprintf(w, "failed  %d/%d %s: %v\n", i+1, len(items), item.Question.Question, err)
			m.Failed++
			continue
		}

		r := Reward(pred, item.Answer)
		total += r
		if strings.EqualFold(strings.TrimSpace(pred.Answer), strings.TrimSpace(item.Answer.Answer)) {
			m.Correct++
		}
		fmt.Fprintf(w, "scored  %d/%d %s (reward %.3f)\n", i+1, len(items), item.Question.Question, r)
	}

	if m.Count > 0 {
		m.Accuracy = float64(m.Correct) / float64(m.Count)
		m.MeanReward = total / float64(m.Count)
	}
	return m, nil
}
