package wparchive

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMigrator builds a full pipeline against a synthetic site with all
// politeness delays disabled.
func newTestMigrator(t *testing.T, siteURL, outputDir string) *Migrator {
	t.Helper()

	cfg := DefaultMigratorConfig()
	cfg.PostDelay = 0
	cfg.Discovery.MaxPages = 2
	cfg.Discovery.PageDelay = 0

	m, err := NewMigrator(siteURL, outputDir, cfg, zerolog.Nop())
	require.NoError(t, err)
	m.Fetcher.RetryInterval = time.Millisecond
	return m
}

// TestMigrator_Run is the end-to-end property: a synthetic post page with
// full metadata and one reachable image becomes an artifact with a correctly
// normalized header, a locally rewritten image reference and one index
// entry.
func TestMigrator_Run(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	base := server.URL

	postPath := "/2024/03/15/hello-world/"

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s%s</loc></url></urlset>`, base, postPath)
	})
	mux.HandleFunc(postPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html>
<head>
	<title>Hello World | Example Blog</title>
	<meta property="article:published_time" content="2024-03-15T10:00:00Z">
	<meta property="article:author" content="Jane Doe">
	<link rel="canonical" href="%s%s">
</head>
<body>
	<article>
		<h1 class="entry-title">Hello World</h1>
		<div class="entry-content">
			<p>First paragraph.</p>
			<img src="/wp-content/uploads/pic.jpg">
		</div>
	</article>
	<footer>
		<span class="cat-links">
			<a rel="category tag" href="/category/tech/">Tech</a>
			<a rel="category tag" href="/category/life/">Life</a>
		</span>
		<a rel="tag" href="/tag/golang/">golang</a>
	</footer>
</body>
</html>`, base, postPath)
	})
	mux.HandleFunc("/wp-content/uploads/pic.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpegbytes"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	outputDir := t.TempDir()
	summary, err := newTestMigrator(t, base, outputDir).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Discovered)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 1, summary.Images)
	assert.Equal(t, 0, summary.Videos)

	artifactPath := filepath.Join(outputDir, "posts", "2024-03-15_hello-world.md")
	data, err := os.ReadFile(artifactPath)
	require.NoError(t, err)
	artifact := string(data)

	assert.Contains(t, artifact, `title: "Hello World"`)
	assert.Contains(t, artifact, "date: 2024-03-15")
	assert.Contains(t, artifact, "author: Jane Doe")
	assert.Contains(t, artifact, `categories: ["Tech","Life"]`)
	assert.Contains(t, artifact, `tags: ["golang"]`)
	assert.Contains(t, artifact, fmt.Sprintf("original_url: %s%s", base, postPath))
	assert.Contains(t, artifact, "First paragraph.")
	assert.Contains(t, artifact, "../../media/images/hello-world_pic.jpg")
	assert.NotContains(t, artifact, "/wp-content/uploads/pic.jpg")

	assert.FileExists(t, filepath.Join(outputDir, "media", "images", "hello-world_pic.jpg"))

	index, err := os.ReadFile(filepath.Join(outputDir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "- [Hello World](posts/2024-03-15_hello-world.md) - 2024-03-15")
	assert.Contains(t, string(index), "- Total posts: 1")
}

// TestMigrator_Run_EmptyDiscoveryIsFatal verifies the one run-aborting
// condition.
func TestMigrator_Run_EmptyDiscoveryIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestMigrator(t, server.URL, t.TempDir()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no blog posts discovered")
}

// TestMigrator_Run_PostFailureDoesNotAbort verifies failure containment: a
// post that cannot be fetched is counted and the run continues to the next
// URL.
func TestMigrator_Run_PostFailureDoesNotAbort(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	base := server.URL

	goodPath := "/2024/01/01/healthy-entry/"
	badPath := "/2024/01/02/missing-entry/"

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s%s</loc></url><url><loc>%s%s</loc></url></urlset>`,
			base, goodPath, base, badPath)
	})
	mux.HandleFunc(goodPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article>
			<h1 class="entry-title">Healthy</h1>
			<div class="entry-content"><p>alive</p></div>
		</article></body></html>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	summary, err := newTestMigrator(t, base, t.TempDir()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Discovered)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
}

// TestMigrator_Run_NoContentCountsAsFailure verifies that a reachable page
// without a content region yields no artifact but does not abort the run.
func TestMigrator_Run_NoContentCountsAsFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()
	base := server.URL

	postPath := "/2024/01/01/hollow-entry/"

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset><url><loc>%s%s</loc></url></urlset>`, base, postPath)
	})
	mux.HandleFunc(postPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Hollow</title></head><body></body></html>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	outputDir := t.TempDir()
	summary, err := newTestMigrator(t, base, outputDir).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Processed)
	assert.Equal(t, 1, summary.Failed)

	entries, err := os.ReadDir(filepath.Join(outputDir, "posts"))
	require.NoError(t, err)
	assert.Empty(t, entries, "no artifact for a post without content")
}
