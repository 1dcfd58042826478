package model

// CrawlProgress is the provider-reported crawl state.
type CrawlProgress string

const (
	CrawlInQueue  CrawlProgress = "in_queue"
	CrawlWorking  CrawlProgress = "working"
	CrawlFinished CrawlProgress = "finished"
	CrawlUnknown  CrawlProgress = "unknown"
)

// CrawlSummary holds aggregate crawl stats, refreshed on each poll.
type CrawlSummary struct {
	PagesCrawled int           `json:"pages_crawled"`
	PagesInQueue int           `json:"pages_in_queue"`
	MaxPages     int           `json:"max_pages"`
	Progress     CrawlProgress `json:"crawl_progress"`
	SSLValid     *bool         `json:"ssl_valid,omitempty"`
	DomainRank   int           `json:"domain_rank,omitempty"`
}

// PageMeta is the extracted metadata for one crawled page.
type PageMeta struct {
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	H1              []string          `json:"htags_h1,omitempty"`
	H2              []string          `json:"htags_h2,omitempty"`
	WordCount       int               `json:"plain_text_word_count"`
	Readability     float64           `json:"automated_readability_index"`
	ImagesCount     int               `json:"images_count"`
	ImagesWithAlt   int               `json:"images_alt_count"`
	InternalLinks   int               `json:"internal_links_count"`
	ExternalLinks   int               `json:"external_links_count"`
	Canonical       string            `json:"canonical,omitempty"`
	SocialMediaTags map[string]string `json:"social_media_tags,omitempty"`
}

// PageChecks are the boolean flags the provider computes per page.
type PageChecks struct {
	NoCanonical       bool `json:"no_canonical"`
	NoImageAlt        bool `json:"no_image_alt"`
	NoH1Tag           bool `json:"no_h1_tag"`
	IsHTTP            bool `json:"is_http"`
	HTTPSToHTTPLinks  bool `json:"https_to_http_links"`
	NoContentEncoding bool `json:"no_content_encoding"`
	DuplicateTitle    bool `json:"duplicate_title_tag"`
	DuplicateDesc     bool `json:"duplicate_description"`
	TitleTooLong      bool `json:"title_too_long"`
	TitleTooShort     bool `json:"title_too_short"`
	DescTooLong       bool `json:"description_too_long"`
	DescTooShort      bool `json:"description_too_short"`
	IsBroken          bool `json:"is_broken"`
	IsRedirect        bool `json:"is_redirect"`
}

// PageTiming holds provider-measured load timings in milliseconds.
type PageTiming struct {
	TimeToInteractive int `json:"time_to_interactive"`
	DOMComplete       int `json:"dom_complete"`
	DurationTime      int `json:"duration_time"`
}

// CrawledPage is one crawled URL. Immutable once fetched.
type CrawledPage struct {
	URL        string     `json:"url"`
	StatusCode int        `json:"status_code"`
	Meta       PageMeta   `json:"meta"`
	Checks     PageChecks `json:"checks"`
	Timing     PageTiming `json:"page_timing"`
}

// Resource is one crawled sub-resource (image, script, stylesheet).
type Resource struct {
	URL          string `json:"url"`
	ResourceType string `json:"resource_type"`
	StatusCode   int    `json:"status_code"`
	Size         int    `json:"size"`
}

// Link is one discovered link edge.
type Link struct {
	From       string `json:"link_from"`
	To         string `json:"link_to"`
	IsBroken   bool   `json:"is_broken"`
	IsRedirect bool   `json:"is_redirect"`
	IsExternal bool   `json:"is_external"`
}

// DuplicateTagGroup is a set of pages sharing a title or description.
type DuplicateTagGroup struct {
	TagType string   `json:"tag_type"`
	Value   string   `json:"value"`
	Pages   []string `json:"pages"`
}

// DuplicateContentGroup is a set of pages with near-identical content.
type DuplicateContentGroup struct {
	URL        string   `json:"url"`
	Similarity float64  `json:"similarity"`
	Pages      []string `json:"pages"`
}

// NonIndexablePage is a page excluded from indexing with its reason.
type NonIndexablePage struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// RedirectChain is a multi-hop redirect path.
type RedirectChain struct {
	URL   string   `json:"url"`
	Chain []string `json:"chain"`
}

// LighthouseResult holds 0-1 category scores from a Lighthouse run.
type LighthouseResult struct {
	Performance   float64 `json:"performance"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"best_practices"`
	SEO           float64 `json:"seo"`
}

// BusinessRecord is a resolved business listing for the audited domain.
type BusinessRecord struct {
	Name      string  `json:"name"`
	Category  string  `json:"category"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    float64 `json:"rating"`
	Reviews   int     `json:"reviews"`
}

// HasCoordinates reports whether the listing carries a usable geolocation.
func (b *BusinessRecord) HasCoordinates() bool {
	return b != nil && (b.Latitude != 0 || b.Longitude != 0)
}

// DomainRankOverview is the labs-level organic visibility snapshot.
type DomainRankOverview struct {
	OrganicKeywords int     `json:"organic_keywords"`
	OrganicTraffic  float64 `json:"organic_etv"`
	OrganicPos1to3  int     `json:"organic_pos_1_3"`
}

// PageSpeedResult holds field data for one URL x strategy.
type PageSpeedResult struct {
	Strategy      string             `json:"strategy"`
	Performance   float64            `json:"performance"`
	Accessibility float64            `json:"accessibility"`
	BestPractices float64            `json:"best_practices"`
	SEO           float64            `json:"seo"`
	FieldMetrics  map[string]float64 `json:"field_metrics,omitempty"`
	OriginMetrics map[string]float64 `json:"origin_metrics,omitempty"`
}

// CrawlData is the aggregate built incrementally across pipeline steps and
// persisted at audit completion.
type CrawlData struct {
	Summary          *CrawlSummary           `json:"summary,omitempty"`
	Pages            []CrawledPage           `json:"pages"`
	Resources        []Resource              `json:"resources,omitempty"`
	Links            []Link                  `json:"links,omitempty"`
	DuplicateTags    []DuplicateTagGroup     `json:"duplicate_tags,omitempty"`
	DuplicateContent []DuplicateContentGroup `json:"duplicate_content,omitempty"`
	NonIndexable     []NonIndexablePage      `json:"non_indexable,omitempty"`
	RedirectChains   []RedirectChain         `json:"redirect_chains,omitempty"`
	Lighthouse       *LighthouseResult       `json:"lighthouse,omitempty"`
	LighthouseMobile *LighthouseResult       `json:"lighthouse_mobile,omitempty"`
	PageSpeed        []PageSpeedResult       `json:"pagespeed,omitempty"`
	Business         *BusinessRecord         `json:"business,omitempty"`
	DomainRank       *DomainRankOverview     `json:"domain_rank,omitempty"`
	Markets          []string                `json:"markets,omitempty"`
	Keywords         []ExtractedKeyword      `json:"keywords,omitempty"`
	Serps            *SerpResults            `json:"serps,omitempty"`
}
