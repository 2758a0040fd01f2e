package scoring

// OmikujiRank is one outcome of the daily draw.
type OmikujiRank struct {
	Rank       string  `json:"rank"`
	Weight     float64 `json:"weight"`
	BasePoints int     `json:"base_points"`
}

// Rand is the random source for draws. *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// OmikujiRanks returns a copy of the rank table.
func (r *Rules) OmikujiRanks() []OmikujiRank {
	out := make([]OmikujiRank, len(r.omikuji))
	copy(out, r.omikuji)
	return out
}

// DrawOmikuji picks a rank by weight using cumulative subtraction.
// Floating leftovers fall through to the last rank.
func (r *Rules) DrawOmikuji(rng Rand) OmikujiRank {
	var total float64
	for _, o := range r.omikuji {
		total += o.Weight
	}
	roll := rng.Float64() * total
	for _, o := range r.omikuji {
		roll -= o.Weight
		if roll < 0 {
			return o
		}
	}
	return r.omikuji[len(r.omikuji)-1]
}
