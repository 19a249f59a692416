package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const jobSearchListingHTML = `<!DOCTYPE html>
<html><body>
<div class="job-listing">
  <div class="job-title"><a href="/vacancy/100">Backend Developer</a></div>
  <div class="company-name">Acme Corp</div>
  <div class="location">Baku</div>
  <div class="category">IT</div>
</div>
<div class="job-listing">
  <div class="company-name">No Title Inc</div>
</div>
<div class="job-listing">
  <div class="job-title"><a href="/vacancy/404">Accountant</a></div>
  <div class="company-name">Ledger LLC</div>
  <div class="location">Ganja</div>
  <div class="category">Finance</div>
</div>
</body></html>`

const jobSearchDetailHTML = `<!DOCTYPE html>
<html><body>
<div class="job-description">Build and maintain   backend services.</div>
<div class="posted-date">Posted on: 15 May 2023</div>
<div class="job-id">Job ID: JS-100</div>
</body></html>`

func newJobSearchTestAdapter(srv *httptest.Server) *JobSearchAdapter {
	cfg := SiteConfig{
		Key:        "jobsearch",
		Name:       "JobSearch.az",
		ListingURL: srv.URL + "/vacancies",
		BaseURL:    srv.URL,
	}
	deps := Deps{
		Client:      srv.Client(),
		Sanitizer:   stubSanitizer{},
		Logger:      testLogger(),
		MaxBodySize: 1 << 20,
	}
	return &JobSearchAdapter{site: newSite(cfg, deps)}
}

// TestJobSearchAdapter_ParseListing は一覧と詳細のパースをテストする。
// タイトルのない掲載はスキップされ、詳細ページが404の掲載は
// 一覧の情報だけで取り込まれる。
func TestJobSearchAdapter_ParseListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/vacancies", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(jobSearchListingHTML))
	})
	mux.HandleFunc("/vacancy/100", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(jobSearchDetailHTML))
	})
	mux.HandleFunc("/vacancy/404", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := newJobSearchTestAdapter(srv)
	ctx := context.Background()

	rawHTML, err := adapter.FetchListingPage(ctx, 1)
	if err != nil {
		t.Fatalf("一覧ページの取得に失敗: %v", err)
	}

	jobs := adapter.ParseListing(ctx, rawHTML)
	if len(jobs) != 2 {
		t.Fatalf("求人数が一致しない: got %d, want 2", len(jobs))
	}

	first := jobs[0]
	if first.Title != "Backend Developer" {
		t.Errorf("タイトルが一致しない: got %q", first.Title)
	}
	if first.Company != "Acme Corp" {
		t.Errorf("会社名が一致しない: got %q", first.Company)
	}
	if first.Location != "Baku" {
		t.Errorf("勤務地が一致しない: got %q", first.Location)
	}
	if first.CategoryName != "IT" {
		t.Errorf("カテゴリが一致しない: got %q", first.CategoryName)
	}
	if first.URL != srv.URL+"/vacancy/100" {
		t.Errorf("相対URLが解決されるべき: got %q", first.URL)
	}
	if first.Source != "JobSearch.az" {
		t.Errorf("ソースが一致しない: got %q", first.Source)
	}
	if first.Description != "Build and maintain backend services." {
		t.Errorf("説明文が一致しない: got %q", first.Description)
	}
	if first.ExternalID != "JS-100" {
		t.Errorf("外部IDが一致しない: got %q", first.ExternalID)
	}
	wantDate := time.Date(2023, time.May, 15, 0, 0, 0, 0, time.UTC)
	if first.PostedDate == nil || !first.PostedDate.Equal(wantDate) {
		t.Errorf("掲載日が一致しない: got %v, want %v", first.PostedDate, wantDate)
	}

	// 詳細ページが404の掲載は詳細フィールドが空のまま取り込まれる
	second := jobs[1]
	if second.Title != "Accountant" {
		t.Errorf("タイトルが一致しない: got %q", second.Title)
	}
	if second.Description != "" || second.ExternalID != "" || second.PostedDate != nil {
		t.Errorf("詳細取得失敗時は詳細フィールドが空であるべき: %+v", second)
	}
}

// TestJobSearchAdapter_EmptyListing は求人のないページで空を返すことをテストする。
func TestJobSearchAdapter_EmptyListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><p>No vacancies</p></body></html>`))
	}))
	defer srv.Close()

	adapter := newJobSearchTestAdapter(srv)
	jobs := adapter.ParseListing(context.Background(), `<html><body></body></html>`)
	if len(jobs) != 0 {
		t.Errorf("求人は0件であるべき: got %d", len(jobs))
	}
}

// TestJobSearchAdapter_FetchNon200 は非2xxレスポンスがエラーになることをテストする。
func TestJobSearchAdapter_FetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	adapter := newJobSearchTestAdapter(srv)
	if _, err := adapter.FetchListingPage(context.Background(), 1); err == nil {
		t.Error("非2xxレスポンスはエラーを返すべき")
	}
}
