package model

// SurfaceComparison cross-tabulates organic presence against Maps presence.
type SurfaceComparison string

const (
	SurfaceBothRanking SurfaceComparison = "both-ranking"
	SurfaceOrganicOnly SurfaceComparison = "organic-only"
	SurfaceMapsOnly    SurfaceComparison = "maps-only"
	SurfaceNeither     SurfaceComparison = "neither"
)

// SerpMatch is one owned-domain hit inside a SERP result set.
type SerpMatch struct {
	URL      string `json:"url"`
	Position int    `json:"position"`
	Title    string `json:"title"`
}

// Competitor is a non-owned domain ranking in the top results.
type Competitor struct {
	Domain   string `json:"domain"`
	Position int    `json:"position"`
	Title    string `json:"title"`
}

// MapsEntry is the business's Maps listing for one keyword.
type MapsEntry struct {
	Name    string  `json:"name"`
	Rating  float64 `json:"rating"`
	Reviews int     `json:"reviews"`
}

// MarketKeywordItem is one keyword's SERP outcome within one market.
type MarketKeywordItem struct {
	Keyword           string            `json:"keyword"`
	Score             float64           `json:"score"`
	Type              KeywordType       `json:"type"`
	Position          int               `json:"position"` // 0 = not ranked
	URL               string            `json:"url,omitempty"`
	ETV               int               `json:"etv"`
	SerpMatches       []SerpMatch       `json:"serp_matches,omitempty"`
	IsCannibalized    bool              `json:"is_cannibalized"`
	HasLocalPack      bool              `json:"has_local_pack"`
	HasAIOverview     bool              `json:"has_ai_overview"`
	Competitors       []Competitor      `json:"competitors,omitempty"`
	MapsRank          int               `json:"maps_rank,omitempty"` // 0 = not found
	MapsData          *MapsEntry        `json:"maps_data,omitempty"`
	MapsChecked       bool              `json:"maps_checked"`
	SurfaceComparison SurfaceComparison `json:"surface_comparison,omitempty"`
}

// MarketData is the per-location container of keyword results plus
// aggregate metrics.
type MarketData struct {
	Location     string              `json:"location"`
	Keywords     []MarketKeywordItem `json:"keywords"`
	Pos1         int                 `json:"pos_1"`
	Pos2to3      int                 `json:"pos_2_3"`
	Pos4to10     int                 `json:"pos_4_10"`
	Pos11to20    int                 `json:"pos_11_20"`
	TotalETV     int                 `json:"total_etv"`
	MapsChecked  int                 `json:"maps_checked"`
	MapsRanking  int                 `json:"maps_ranking"`
	MapsNotFound int                 `json:"maps_not_found"`
}

// SerpResults holds per-market SERP data for one audit run.
type SerpResults struct {
	Markets map[string]*MarketData `json:"markets"`
}
