package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const kapitalBankListingHTML = `<!DOCTYPE html>
<html><body>
<div class="vacancy-item">
  <div class="vacancy-title">Credit Specialist</div>
  <a href="/vacancies/101"></a>
</div>
<div class="job-card">
  <div class="job-title">IT Auditor</div>
  <a href="/vacancies/102/"></a>
</div>
<div class="vacancy-item">
  <a href="/vacancies/103"></a>
</div>
</body></html>`

// TestKapitalBankAdapter_FixedFields は単一企業サイトの固定フィールドと
// タイトルなし掲載のスキップをテストする。
func TestKapitalBankAdapter_FixedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body><div class="vacancy-description">Banking career.</div></body></html>`))
	}))
	defer srv.Close()

	cfg := SiteConfig{
		Key:        "kapitalbank",
		Name:       "Kapital Bank HR",
		ListingURL: srv.URL + "/vacancies",
		BaseURL:    srv.URL,
	}
	adapter := &KapitalBankAdapter{site: newSite(cfg, Deps{
		Client:      srv.Client(),
		Sanitizer:   stubSanitizer{},
		Logger:      testLogger(),
		MaxBodySize: 1 << 20,
	})}

	jobs := adapter.ParseListing(context.Background(), kapitalBankListingHTML)
	if len(jobs) != 2 {
		t.Fatalf("求人数が一致しない: got %d, want 2", len(jobs))
	}

	first := jobs[0]
	if first.Title != "Credit Specialist" {
		t.Errorf("タイトルが一致しない: got %q", first.Title)
	}
	if first.Company != "Kapital Bank" {
		t.Errorf("会社名は固定値であるべき: got %q", first.Company)
	}
	if first.Location != "Baku, Azerbaijan" {
		t.Errorf("勤務地は固定値であるべき: got %q", first.Location)
	}
	if first.CategoryName != "Banking" {
		t.Errorf("カテゴリは固定値であるべき: got %q", first.CategoryName)
	}
	if first.ExternalID != "101" {
		t.Errorf("外部IDはURL末尾から切り出されるべき: got %q", first.ExternalID)
	}
	if first.Description != "Banking career." {
		t.Errorf("説明文が一致しない: got %q", first.Description)
	}
	if first.Source != "Kapital Bank HR" {
		t.Errorf("ソースは表示名であるべき: got %q", first.Source)
	}

	if jobs[1].Title != "IT Auditor" {
		t.Errorf("job-card形式の掲載も抽出されるべき: got %q", jobs[1].Title)
	}
}
