package predict

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/coinscope/coinscope/pkg/types"
)

func hasCategory(rs []types.Reason, category string) bool {
	for _, r := range rs {
		if r.Category == category {
			return true
		}
	}
	return false
}

func TestAnalyze_SurgingCoin(t *testing.T) {
	sc := Analyze(coin("surge", 2e9, 6e8, 18, 30))

	if sc.Score != 85 {
		t.Errorf("Score = %d, want 85", sc.Score)
	}
	if !hasCategory(sc.Reasons, CategoryVolume) {
		t.Errorf("reasons missing volume signal: %+v", sc.Reasons)
	}
	if !hasCategory(sc.Reasons, CategoryRank) {
		t.Errorf("reasons missing rank signal: %+v", sc.Reasons)
	}
	if sc.Reasons[0].Text != "Exceptional volume: 30% of market cap" {
		t.Errorf("first reason = %q", sc.Reasons[0].Text)
	}
	// 4 signals, 3 strong: 50+32+21+5−7 = 101 → 100
	if sc.Confidence != 100 {
		t.Errorf("Confidence = %.1f, want 100", sc.Confidence)
	}
	if sc.Recommendation.Level != "strong" {
		t.Errorf("Recommendation = %q, want strong", sc.Recommendation.Level)
	}
}

func TestAnalyze_FillerReasons(t *testing.T) {
	sc := Analyze(coin("dull", 60e9, 6e8, -20, 200))

	want := []types.Reason{
		{Category: CategoryRank, Text: "Market rank: #200"},
		{Category: CategoryVolume, Text: "24h volume: $600.00M"},
		{Category: CategorySize, Text: "Market cap: $60.00B"},
	}
	if len(sc.Reasons) != len(want) {
		t.Fatalf("got %d reasons, want %d: %+v", len(sc.Reasons), len(want), sc.Reasons)
	}
	for i := range want {
		if sc.Reasons[i] != want[i] {
			t.Errorf("reason[%d] = %+v, want %+v", i, sc.Reasons[i], want[i])
		}
	}
	if sc.Score != 0 {
		t.Errorf("filler must not add score, got %d", sc.Score)
	}
}

func TestAnalyze_UnrankedFiller(t *testing.T) {
	sc := Analyze(coin("norank", 60e9, 6e8, -20, 0))
	if sc.Reasons[0].Text != "Unranked" {
		t.Errorf("reason[0] = %q, want Unranked", sc.Reasons[0].Text)
	}
}

func TestAnalyze_TruncatesToFour(t *testing.T) {
	c := coin("busy", 2e9, 6e8, 5, 10)
	c.PriceChangePct7d = types.FloatPtr(28) // avg daily 4, 24h 5 → steady

	if n := len(Signals(c)); n != 5 {
		t.Fatalf("natural signals = %d, want 5", n)
	}
	sc := Analyze(c)
	if len(sc.Reasons) != 4 {
		t.Fatalf("reasons = %d, want 4", len(sc.Reasons))
	}
	wantOrder := []string{CategoryVolume, CategoryTrend, CategorySize, CategoryVolatility}
	for i, cat := range wantOrder {
		if sc.Reasons[i].Category != cat {
			t.Errorf("reason[%d].Category = %q, want %q", i, sc.Reasons[i].Category, cat)
		}
	}
	if sc.Score != 78 {
		t.Errorf("Score = %d, want 78", sc.Score)
	}
}

func TestAnalyze_SevenDayGain(t *testing.T) {
	c := coin("weekly", 60e9, 6e8, -20, 200)
	c.PriceChangePct7d = types.FloatPtr(30)

	sigs := Signals(c)
	if len(sigs) != 1 || sigs[0].Category != CategoryTrend || sigs[0].Strength != StrengthModerate {
		t.Fatalf("signals = %+v, want one moderate trend signal", sigs)
	}
	if !strings.Contains(sigs[0].Text, "30.0% gain in 7 days") {
		t.Errorf("text = %q", sigs[0].Text)
	}
}

func TestRank_Empty(t *testing.T) {
	got := Rank(nil, Options{})
	if got == nil {
		t.Fatal("Rank(nil) returned nil, want empty slice")
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestRank_ExcludesTinyCaps(t *testing.T) {
	coins := []types.CoinSnapshot{
		coin("dust", 100, 1, 18, 1),
		coin("pump", 500_000, 6e8, 18, 1),
	}
	if got := Rank(coins, Options{}); len(got) != 0 {
		t.Errorf("got %d coins, want 0: %+v", len(got), got)
	}
}

func TestRank_TopFiveSortedAndBounded(t *testing.T) {
	var coins []types.CoinSnapshot
	for i := 0; i < 12; i++ {
		coins = append(coins, coin(string(rune('a'+i)), 2e9, float64(i)*5e7, float64(i*2), 10+i*15))
	}
	coins = append(coins, coin("tiny", 500_000, 6e8, 18, 1))

	got := Rank(coins, Options{})
	if len(got) != DefaultLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultLimit)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Errorf("not sorted at %d: %d < %d", i, got[i-1].Score, got[i].Score)
		}
	}
	for _, sc := range got {
		if sc.Coin.ID == "tiny" {
			t.Error("coin under $1M market cap in output")
		}
		if sc.Score < 0 || sc.Score > 100 {
			t.Errorf("%s: score %d out of range", sc.Coin.ID, sc.Score)
		}
		if n := len(sc.Reasons); n < 3 || n > 4 {
			t.Errorf("%s: %d reasons, want 3..4", sc.Coin.ID, n)
		}
	}
}

func TestRank_StableTies(t *testing.T) {
	coins := []types.CoinSnapshot{
		coin("first", 2e9, 6e8, 18, 30),
		coin("second", 2e9, 6e8, 18, 30),
		coin("third", 2e9, 6e8, 18, 30),
	}
	got := Rank(coins, Options{})
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Coin.ID != want {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Coin.ID, want)
		}
	}
}

func TestRank_Limit(t *testing.T) {
	coins := []types.CoinSnapshot{
		coin("a", 2e9, 6e8, 18, 30),
		coin("b", 20e9, 3e9, 8, 5),
		coin("c", 5e8, 2.5e7, 2, 0),
	}
	if got := Rank(coins, Options{Limit: 2}); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	if got := Rank(coins, Options{Limit: 10}); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestRank_Idempotent(t *testing.T) {
	coins := []types.CoinSnapshot{
		coin("a", 2e9, 6e8, 18, 30),
		coin("b", 20e9, 3e9, 8, 5),
		coin("c", 5e8, 2.5e7, 2, 0),
		coin("d", 60e9, 6e8, -20, 200),
	}
	first, _ := json.Marshal(Rank(coins, Options{}))
	second, _ := json.Marshal(Rank(coins, Options{}))
	if string(first) != string(second) {
		t.Errorf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestRank_Blended(t *testing.T) {
	coins := []types.CoinSnapshot{
		coin("dull", 60e9, 6e8, -20, 200),   // score 0 → filtered out
		coin("established", 20e9, 3e9, 8, 5), // 63 / 91 → key 74.2
		coin("surge", 2e9, 6e8, 18, 30),      // 85 / 100 → key 91
	}
	got := Rank(coins, Options{Mode: ModeBlended})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Coin.ID != "surge" || got[1].Coin.ID != "established" {
		t.Errorf("order = [%s %s], want [surge established]", got[0].Coin.ID, got[1].Coin.ID)
	}
	if got[1].Confidence != 91 {
		t.Errorf("established confidence = %.1f, want 91", got[1].Confidence)
	}
	for i := 1; i < len(got); i++ {
		if blendedKey(got[i-1]) < blendedKey(got[i]) {
			t.Errorf("blended order violated at %d", i)
		}
	}
}

func TestConfidence_VolatilityPenalty(t *testing.T) {
	tests := []struct {
		change float64
		want   float64
	}{
		{5, 60},   // 50 + 10 (cap > 10B)
		{15, 53},  // − 7
		{-25, 45}, // − 15
	}
	for _, tc := range tests {
		c := coin("x", 60e9, 0, tc.change, 0)
		if got := Confidence(c, nil); got != tc.want {
			t.Errorf("Confidence(change=%.0f) = %.0f, want %.0f", tc.change, got, tc.want)
		}
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		score int
		conf  float64
		want  string
	}{
		{85, 100, "strong"},
		{70, 69, "moderate"},
		{55, 60, "moderate"},
		{55, 59, "watch"},
		{40, 0, "watch"},
		{39, 100, "weak"},
	}
	for _, tc := range tests {
		if got := Recommend(tc.score, tc.conf).Level; got != tc.want {
			t.Errorf("Recommend(%d, %.0f) = %q, want %q", tc.score, tc.conf, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeScore, "score": ModeScore, "blended": ModeBlended} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("magic"); err == nil {
		t.Error("ParseMode(magic): expected error")
	}
}
