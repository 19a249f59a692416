package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const smartJobListingHTML = `<!DOCTYPE html>
<html><body>
<div class="job-card">
  <div class="job-title">Data Analyst</div>
  <a class="job-link" href="/job/777/data-analyst"></a>
  <div class="company">DataCo</div>
  <div class="location">Baku</div>
  <div class="category">Analytics</div>
</div>
</body></html>`

const smartJobDetailHTML = `<!DOCTYPE html>
<html><body>
<div class="job-description">Analyze datasets.</div>
<div class="date">20 June 2023</div>
</body></html>`

// TestSmartJobAdapter_ParseListing は一覧のパースとURLからの外部ID切り出しをテストする。
func TestSmartJobAdapter_ParseListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/vacancies", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(smartJobListingHTML))
	})
	mux.HandleFunc("/job/777/data-analyst", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(smartJobDetailHTML))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := SiteConfig{
		Key:        "smartjob",
		Name:       "SmartJob.az",
		ListingURL: srv.URL + "/vacancies",
		BaseURL:    srv.URL,
	}
	adapter := &SmartJobAdapter{site: newSite(cfg, Deps{
		Client:      srv.Client(),
		Sanitizer:   stubSanitizer{},
		Logger:      testLogger(),
		MaxBodySize: 1 << 20,
	})}

	ctx := context.Background()
	rawHTML, err := adapter.FetchListingPage(ctx, 1)
	if err != nil {
		t.Fatalf("一覧ページの取得に失敗: %v", err)
	}

	jobs := adapter.ParseListing(ctx, rawHTML)
	if len(jobs) != 1 {
		t.Fatalf("求人数が一致しない: got %d, want 1", len(jobs))
	}

	job := jobs[0]
	if job.Title != "Data Analyst" {
		t.Errorf("タイトルが一致しない: got %q", job.Title)
	}
	if job.ExternalID != "777" {
		t.Errorf("外部IDはURLパスから切り出されるべき: got %q", job.ExternalID)
	}
	if job.Description != "Analyze datasets." {
		t.Errorf("説明文が一致しない: got %q", job.Description)
	}
	if job.PostedDate == nil {
		t.Error("掲載日はパースされるべき")
	}
}

// TestExternalIDFromJobPath はURLパスからのID切り出しをテストする。
func TestExternalIDFromJobPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://smartjob.az/job/123/title", "123"},
		{"https://smartjob.az/job/456", "456"},
		{"https://smartjob.az/vacancy/789", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := externalIDFromJobPath(tt.url); got != tt.want {
			t.Errorf("externalIDFromJobPath(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
