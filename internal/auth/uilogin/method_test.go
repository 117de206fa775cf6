package uilogin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nutrilog/authharness/internal/apiclient"
	"github.com/nutrilog/authharness/internal/auth"
	"github.com/nutrilog/authharness/internal/browser"
	"github.com/nutrilog/authharness/internal/resilience"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testToken = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9." +
	"eyJzdWIiOiIxMjM0NTY3ODkwIiwibmFtZSI6IkpvaG4gRG9lIiwiaWF0IjoxNTE2MjM5MDIyfQ." +
	"SflKxwRJSMeKKF2QT4fwpMeJf36POk6yJV_adQssw5c"

// fakeBrowser hands out a single scripted page whose locations after each
// submit click follow urls.
type fakeBrowser struct {
	urls []string
	ctx  *fakeContext
}

func (b *fakeBrowser) NewContext(ctx context.Context) (browser.Context, error) {
	b.ctx = &fakeContext{page: &fakePage{urls: b.urls}}
	return b.ctx, nil
}

type fakeContext struct {
	page *fakePage

	mu     sync.Mutex
	closed bool
}

func (c *fakeContext) NewPage(ctx context.Context) (browser.Page, error) { return c.page, nil }

func (c *fakeContext) StorageState(ctx context.Context) (*browser.StorageState, error) {
	return &browser.StorageState{}, nil
}

func (c *fakeContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeContext) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakePage records form interactions. Click advances the location to the
// next entry in urls, which lets a test script "stays on the login page" by
// providing a single entry.
type fakePage struct {
	mu     sync.Mutex
	urls   []string
	at     int
	fills  map[string]string
	clicks []string
}

func (p *fakePage) Navigate(ctx context.Context, url string) error { return nil }

func (p *fakePage) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	return nil, nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fills == nil {
		p.fills = map[string]string{}
	}
	p.fills[selector] = value
	return nil
}

func (p *fakePage) Click(ctx context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, selector)
	if p.at < len(p.urls)-1 {
		p.at++
	}
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.urls[p.at], nil
}

func stubTarget() *httptest.Server {
	router := gin.New()
	router.POST(apiclient.DefaultRegisterPath, func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"message": "created"})
	})
	router.POST(apiclient.DefaultLoginPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"token": testToken, "user": gin.H{"id": "42"}})
	})
	return httptest.NewServer(router)
}

func newTestMethod(server *httptest.Server, fb browser.Browser) *Method {
	return New(Options{
		Client:  apiclient.New(apiclient.Options{BaseURL: server.URL}),
		Browser: fb,
		Origin:  "http://localhost:3000",
		Run: resilience.RunConfig{
			Retry:   resilience.Config{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffMultiplier: 1},
			Timeout: time.Second,
		},
	})
}

func TestMethod_Authenticate(t *testing.T) {
	t.Parallel()

	server := stubTarget()
	defer server.Close()

	fb := &fakeBrowser{urls: []string{"http://localhost:3000/login", "http://localhost:3000/diary"}}
	method := newTestMethod(server, fb)

	creds := auth.GenerateCredentials()
	result, err := method.Authenticate(context.Background(), creds)
	require.NoError(t, err)
	assert.Equal(t, testToken, result.Token)
	assert.Empty(t, result.StorageStatePath)

	// The submit click lands on the dashboard, off the login path.
	page := fb.ctx.page
	page.mu.Lock()
	defer page.mu.Unlock()
	assert.Equal(t, creds.Email, page.fills[emailSelector])
	assert.Equal(t, creds.Password, page.fills[passwordSelector])
	assert.Equal(t, []string{submitSelector}, page.clicks)
	assert.True(t, fb.ctx.isClosed())
}

func TestMethod_FormNeverNavigatesTimesOut(t *testing.T) {
	t.Parallel()

	server := stubTarget()
	defer server.Close()

	// Click has no next location, so the page stays on /login. The caller
	// context carries no deadline; the configured per-operation timeout
	// alone must bound the form phase.
	fb := &fakeBrowser{urls: []string{"http://localhost:3000/login"}}
	method := New(Options{
		Client:  apiclient.New(apiclient.Options{BaseURL: server.URL}),
		Browser: fb,
		Origin:  "http://localhost:3000",
		Run: resilience.RunConfig{
			Retry:   resilience.Config{MaxRetries: 2, InitialDelay: time.Millisecond, BackoffMultiplier: 1},
			Timeout: 200 * time.Millisecond,
		},
	})

	start := time.Now()
	_, err := method.Authenticate(context.Background(), auth.GenerateCredentials())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)

	authErr, ok := auth.AsAuthError(err)
	require.True(t, ok)
	assert.Equal(t, auth.KindTimeout, authErr.Kind)
	assert.Contains(t, authErr.Message, "form login timed out after 200ms")

	// The cancelled poll loop lets the deferred close run.
	require.NotNil(t, fb.ctx)
	assert.Eventually(t, fb.ctx.isClosed, 2*time.Second, 20*time.Millisecond)
}

func TestMethod_Identity(t *testing.T) {
	t.Parallel()

	method := New(Options{})
	assert.Equal(t, auth.TypeUILogin, method.Type())
	assert.False(t, method.SupportsStorageState())
}
