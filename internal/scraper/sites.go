package scraper

import (
	"fmt"
	"log/slog"
	"net/http"
)

// 掲載日の表記フォーマット（例: "15 May 2023"）。
const postedDateLayout = "2 January 2006"

var (
	jobSearchSite = SiteConfig{
		Key:        "jobsearch",
		Name:       "JobSearch.az",
		ListingURL: "https://jobsearch.az/vacancies",
		BaseURL:    "https://jobsearch.az",
	}
	helloJobSite = SiteConfig{
		Key:        "hellojob",
		Name:       "HelloJob.az",
		ListingURL: "https://www.hellojob.az/is-elanlari/texnologiya",
		BaseURL:    "https://hellojob.az",
	}
	smartJobSite = SiteConfig{
		Key:        "smartjob",
		Name:       "SmartJob.az",
		ListingURL: "https://smartjob.az/vacancies",
		BaseURL:    "https://smartjob.az",
	}
	pashaBankSite = SiteConfig{
		Key:        "pashabank",
		Name:       "PASHA Bank Careers",
		ListingURL: "https://www.pashabank.az/careers",
		BaseURL:    "https://www.pashabank.az",
	}
	kapitalBankSite = SiteConfig{
		Key:        "kapitalbank",
		Name:       "Kapital Bank HR",
		ListingURL: "https://hr.kapitalbank.az/vacancies",
		BaseURL:    "https://hr.kapitalbank.az",
	}
	busySite = SiteConfig{
		Key:        "busy",
		Name:       "Busy.az",
		ListingURL: "https://busy.az/vacancies",
		BaseURL:    "https://busy.az",
	}
	glorriSite = SiteConfig{
		Key:        "glorri",
		Name:       "Glorri Jobs",
		ListingURL: "https://jobs.glorri.az/vacancies",
		BaseURL:    "https://jobs.glorri.az",
	}
)

// Deps はアダプタ群の共有依存。
type Deps struct {
	Client      *http.Client
	Sanitizer   TextSanitizer
	Logger      *slog.Logger
	MaxBodySize int64
}

func newSite(cfg SiteConfig, deps Deps) site {
	return site{
		cfg:         cfg,
		client:      deps.Client,
		sanitizer:   deps.Sanitizer,
		logger:      deps.Logger,
		maxBodySize: deps.MaxBodySize,
	}
}

// NewAdapters は全サイトのアダプタを登録順に返す。
// コレクタはこの順序でサイトを巡回する。
func NewAdapters(deps Deps) []SiteAdapter {
	return []SiteAdapter{
		NewJobSearchAdapter(deps),
		NewHelloJobAdapter(deps),
		NewSmartJobAdapter(deps),
		NewPashaBankAdapter(deps),
		NewKapitalBankAdapter(deps),
		NewBusyAdapter(deps),
		NewGlorriAdapter(deps),
	}
}

// URLValidator はスクレイプ対象URLの事前検証のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// ValidateAdapters は全アダプタのサイト設定URLを検証する。
// 起動時に1回呼び、不正なURLを持つ設定があればエラーを返す。
func ValidateAdapters(v URLValidator, adapters []SiteAdapter) error {
	for _, a := range adapters {
		cfg := a.Site()
		if err := v.ValidateURL(cfg.ListingURL); err != nil {
			return fmt.Errorf("サイト %s の一覧URLが不正です: %w", cfg.Key, err)
		}
		if err := v.ValidateURL(cfg.BaseURL); err != nil {
			return fmt.Errorf("サイト %s のベースURLが不正です: %w", cfg.Key, err)
		}
	}
	return nil
}
