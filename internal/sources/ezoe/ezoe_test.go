package ezoe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dailymanna/manna/internal/logger"
)

func newTestSource(t *testing.T, base string) *Source {
	t.Helper()
	t.Setenv("EZOE_BASE", base)
	t.Setenv("EZOE_SELECTOR", "")
	return New(logger.New("error", false), http.DefaultClient, nil)
}

func TestURLs(t *testing.T) {
	s := newTestSource(t, "https://example.com/books/2")

	if got := s.lessonURL(2, 3); got != "https://example.com/books/2/2264-2-3.html" {
		t.Errorf("lessonURL(2, 3) = %s", got)
	}
	if got := s.volumeIndexURL(3); got != "https://example.com/books/2/2264-3.html" {
		t.Errorf("volumeIndexURL(3) = %s", got)
	}

	tests := []struct {
		selector string
		want     string
	}{
		{selector: "2-1-1", want: "https://example.com/books/2/2264-2-1.html#1_6"},
		{selector: "2-1-7", want: "https://example.com/books/2/2264-2-1.html#1_12"},
	}
	for _, tt := range tests {
		got, err := s.ContentURL(tt.selector)
		if err != nil {
			t.Fatalf("ContentURL(%s) failed: %v", tt.selector, err)
		}
		if got != tt.want {
			t.Errorf("ContentURL(%s) = %s, want %s", tt.selector, got, tt.want)
		}
	}

	if _, err := s.ContentURL("bogus"); err == nil {
		t.Error("ContentURL(bogus) expected error")
	}
}

func TestDefaultSelector(t *testing.T) {
	s := newTestSource(t, "https://example.com")

	if got := s.DefaultSelector(); got != "2-1-1" {
		t.Errorf("DefaultSelector() = %s, want 2-1-1", got)
	}

	t.Setenv("EZOE_SELECTOR", "3-7-2")
	if got := s.DefaultSelector(); got != "3-7-2" {
		t.Errorf("DefaultSelector() with override = %s, want 3-7-2", got)
	}
}

func TestEmailSubject(t *testing.T) {
	s := newTestSource(t, "https://example.com")

	tests := []struct {
		name     string
		selector string
		title    string
		want     string
	}{
		{
			name:     "traditional weekday prefix",
			selector: "2-1-4",
			title:    "第1課 神的創造",
			want:     "聖經之旅 | 週四 第1課 神的創造",
		},
		{
			name:     "sunday",
			selector: "2-1-7",
			title:    "第1課",
			want:     "聖經之旅 | 主日 第1課",
		},
		{
			name:     "title already prefixed",
			selector: "2-1-4",
			title:    "週四 特別聚會",
			want:     "聖經之旅 | 週四 特別聚會",
		},
		{
			name:     "empty title",
			selector: "2-1-2",
			title:    "",
			want:     "聖經之旅 | 週二",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.EmailSubject(tt.selector, tt.title); got != tt.want {
				t.Errorf("EmailSubject(%q, %q) = %q, want %q", tt.selector, tt.title, got, tt.want)
			}
		})
	}
}

// The volume index lists lesson links under 第X课 captions; links with the
// same URL shape but no caption (maps, appendices) must not count.
const volumeIndexPage = `<html><body>
<p>第1课 <a href="2264-2-1.html">神的创造</a></p>
<p>第2课 <a href="2264-2-2.html">人的堕落</a></p>
<p>第3课 <a href="2264-2-3.html">救赎</a></p>
<p>地图 <a href="2264-2-99.html">迦南地图</a></p>
</body></html>`

func TestValidateLessonExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/2264-2.html":
			_, _ = w.Write([]byte(volumeIndexPage))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s := newTestSource(t, server.URL)
	s.client = server.Client()

	tests := []struct {
		name   string
		lesson int
		want   bool
	}{
		{name: "listed lesson", lesson: 1, want: true},
		{name: "last listed lesson", lesson: 3, want: true},
		{name: "unlisted lesson", lesson: 4, want: false},
		{name: "uncaptioned link ignored", lesson: 99, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ValidateLessonExists(context.Background(), 2, tt.lesson)
			if err != nil {
				t.Fatalf("ValidateLessonExists failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateLessonExists(2, %d) = %v, want %v", tt.lesson, got, tt.want)
			}
		})
	}

	t.Run("fetch failure surfaces", func(t *testing.T) {
		if _, err := s.ValidateLessonExists(context.Background(), 9, 1); err == nil {
			t.Fatal("expected error for missing volume index")
		}
	})
}

type fakeCache struct {
	data map[int][]int
	sets int
}

func (c *fakeCache) GetVolumeLessons(volume int) ([]int, bool) {
	lessons, ok := c.data[volume]
	return lessons, ok
}

func (c *fakeCache) SetVolumeLessons(volume int, lessons []int) {
	c.data[volume] = lessons
	c.sets++
}

func TestValidateLessonExistsUsesCache(t *testing.T) {
	fetches := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_, _ = w.Write([]byte(volumeIndexPage))
	}))
	defer server.Close()

	cache := &fakeCache{data: map[int][]int{}}
	s := newTestSource(t, server.URL)
	s.client = server.Client()
	s.cache = cache

	// First check fetches and fills the cache.
	if ok, err := s.ValidateLessonExists(context.Background(), 2, 1); err != nil || !ok {
		t.Fatalf("first check = (%v, %v), want (true, nil)", ok, err)
	}
	if fetches != 1 || cache.sets != 1 {
		t.Fatalf("after first check: fetches=%d sets=%d, want 1/1", fetches, cache.sets)
	}

	// Second check is served from cache.
	if ok, err := s.ValidateLessonExists(context.Background(), 2, 3); err != nil || !ok {
		t.Fatalf("second check = (%v, %v), want (true, nil)", ok, err)
	}
	if fetches != 1 {
		t.Errorf("cache miss on second check: fetches=%d, want 1", fetches)
	}
}

const lessonPage = `<html><head><title>第1课 神的创造</title></head><body>
<p>周一</p>
<p>第一日正文</p>
<p>周二</p>
<p>第二日正文</p>
</body></html>`

func TestGetDailyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2264-2-1.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(lessonPage))
	}))
	defer server.Close()

	s := newTestSource(t, server.URL)
	s.client = server.Client()

	block, err := s.GetDailyContent(context.Background(), "2-1-1")
	if err != nil {
		t.Fatalf("GetDailyContent failed: %v", err)
	}
	if !strings.Contains(block.HTMLContent, "第一日正文") {
		t.Errorf("missing day 1 content: %s", block.HTMLContent)
	}
	if strings.Contains(block.HTMLContent, "第二日正文") {
		t.Errorf("day 2 content leaked: %s", block.HTMLContent)
	}
	if block.Title != "第1课 神的创造" {
		t.Errorf("Title = %q", block.Title)
	}
}
