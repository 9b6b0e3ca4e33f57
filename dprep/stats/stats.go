package stats

import (
	"sort"

	"github.com/ZanzyTHEbar/dialogue-prep/dprep/pairs"

	"gonum.org/v1/gonum/stat"
)

// Lengths summarizes a distribution of token sequence lengths.
type Lengths struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
	Max    int     `json:"max"`
}

// Summary describes a prepared corpus before padding.
type Summary struct {
	Conversations int `json:"conversations"`
	Utterances    int `json:"utterances"`
	Pairs         int `json:"pairs"`
	// EmptyUtterances counts turns that had no tokens after cleaning.
	EmptyUtterances int     `json:"empty_utterances"`
	Tokens          Lengths `json:"tokens"`
	// TruncatedSides counts pair sides longer than the padding length.
	TruncatedSides int `json:"truncated_sides"`
	// PaddedSides counts pair sides shorter than the padding length.
	PaddedSides int `json:"padded_sides"`
}

// Summarize computes corpus and pair statistics. maxLength is the length pairs will be
// padded to; pass 0 to skip the truncation counts.
func Summarize(threads []pairs.Thread, ps []pairs.Pair, maxLength int) Summary {
	s := Summary{Conversations: len(threads), Pairs: len(ps)}

	lengths := make([]float64, 0)
	for _, th := range threads {
		s.Utterances += len(th.Turns)
		for _, turn := range th.Turns {
			if len(turn.Tokens) == 0 {
				s.EmptyUtterances++
			}
			lengths = append(lengths, float64(len(turn.Tokens)))
		}
	}
	s.Tokens = describe(lengths)

	if maxLength > 0 {
		for _, p := range ps {
			for _, side := range [][]string{p.Source, p.Target} {
				switch {
				case len(side) > maxLength:
					s.TruncatedSides++
				case len(side) < maxLength:
					s.PaddedSides++
				}
			}
		}
	}
	return s
}

func describe(x []float64) Lengths {
	if len(x) == 0 {
		return Lengths{}
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)

	var l Lengths
	l.Mean, l.StdDev = stat.MeanStdDev(sorted, nil)
	if len(sorted) < 2 {
		l.StdDev = 0
	}
	l.P50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	l.P95 = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	l.Max = int(sorted[len(sorted)-1])
	return l
}
