package xiaohongshu

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"xhsmcp/browser"
)

var fakeHasText = regexp.MustCompile(`^(.*?):has-text\("(.*)"\)$`)

// fakeSource serves fixture HTML per URL. Each URL may have several states;
// ScrollToBottom advances to the next one.
type fakeSource struct {
	mu sync.Mutex

	pages   map[string][]string
	navErr  map[string]error
	url     string
	state   int
	visited []string

	clicks  []string
	fills   map[string]string
	presses []string
	files   [][]string
	scrolls int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:  map[string][]string{},
		navErr: map[string]error{},
		fills:  map[string]string{},
	}
}

func (f *fakeSource) serve(url string, states ...string) *fakeSource {
	f.pages[url] = states
	return f
}

func (f *fakeSource) current() string {
	states := f.pages[f.url]
	if len(states) == 0 {
		return "<html><body></body></html>"
	}
	if f.state >= len(states) {
		return states[len(states)-1]
	}
	return states[f.state]
}

func (f *fakeSource) find(selector string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(f.current()))
	if err != nil {
		panic(err)
	}
	if m := fakeHasText.FindStringSubmatch(selector); m != nil {
		css := m[1]
		if css == "" {
			css = "*"
		}
		return doc.Find(css).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return strings.Contains(s.Text(), m[2])
		})
	}
	return doc.Find(selector)
}

func (f *fakeSource) require(selector string) error {
	if f.find(selector).Length() == 0 {
		return fmt.Errorf("%w waiting for %q", browser.ErrTimeout, selector)
	}
	return nil
}

func (f *fakeSource) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.visited = append(f.visited, url)
	if err := f.navErr[url]; err != nil {
		return err
	}
	f.url, f.state = url, 0
	return nil
}

func (f *fakeSource) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return f.require(selector)
}

func (f *fakeSource) Count(ctx context.Context, selector string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return f.find(selector).Length(), nil
}

func (f *fakeSource) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current(), ctx.Err()
}

func (f *fakeSource) Click(ctx context.Context, selector string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.require(selector); err != nil {
		return err
	}
	f.clicks = append(f.clicks, selector)
	return nil
}

func (f *fakeSource) Fill(ctx context.Context, selector, value string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.require(selector); err != nil {
		return err
	}
	f.fills[selector] = value
	return nil
}

func (f *fakeSource) SetFiles(ctx context.Context, selector string, paths []string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.require(selector); err != nil {
		return err
	}
	f.files = append(f.files, paths)
	return nil
}

func (f *fakeSource) Press(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presses = append(f.presses, key)
	return nil
}

func (f *fakeSource) ScrollToBottom(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls++
	f.state++
	return nil
}

func (f *fakeSource) clicked(selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clicks {
		if c == selector {
			return true
		}
	}
	return false
}

func newTestService(src ContentSource) *Service {
	svc := NewService(src, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.t = timings{
		pageLoad:      50 * time.Millisecond,
		loginProbe:    30 * time.Millisecond,
		poll:          5 * time.Millisecond,
		scrollGrowth:  30 * time.Millisecond,
		optionalClick: 10 * time.Millisecond,
		field:         10 * time.Millisecond,
		sendButton:    10 * time.Millisecond,
		uploadWait:    30 * time.Millisecond,
		step:          10 * time.Millisecond,
	}
	return svc
}

func noteItems(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, `<section class="note-item">
  <a href="/explore/note%d"><img src="https://img.example/cover%d.jpg"></a>
  <div class="title">title %d</div>
  <img class="user-avatar" alt="user%d">
  <span class="likes-count">%d</span>
</section>`, i, i, i, i, i*10)
	}
	return b.String()
}

func page(body string) string {
	return "<html><body>" + body + "</body></html>"
}
