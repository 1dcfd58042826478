package model

// KeywordType classifies how a keyword candidate was generated.
type KeywordType string

const (
	KeywordService  KeywordType = "service"
	KeywordNearMe   KeywordType = "near_me"
	KeywordLocal    KeywordType = "local"
	KeywordModifier KeywordType = "modifier"
	KeywordBranded  KeywordType = "branded"
)

// ExtractedKeyword is one ranked keyword candidate mined from crawl data.
type ExtractedKeyword struct {
	Keyword string      `json:"keyword"`
	Score   float64     `json:"score"`
	Type    KeywordType `json:"type"`
}
