package wparchive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T) (*ArtifactWriter, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewMediaStore(root)
	require.NoError(t, err)
	media, err := NewMediaDownloader("https://example.com", newTestFetcher(), store, DefaultMediaConfig(), zerolog.Nop())
	require.NoError(t, err)
	writer, err := NewArtifactWriter(root, media, zerolog.Nop())
	require.NoError(t, err)
	return writer, root
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name  string
		url   string
		title string
		want  string
	}{
		{
			name:  "slug from dated permalink",
			url:   "https://example.com/2024/03/my-post-title/",
			title: "ignored",
			want:  "my-post-title",
		},
		{
			name:  "numeric segments skipped",
			url:   "https://example.com/2024/03/15/weekend-recap/",
			title: "ignored",
			want:  "weekend-recap",
		},
		{
			name:  "slug from title when path unusable",
			url:   "https://example.com/",
			title: "My Cool Title!",
			want:  "my-cool-title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.url, tt.title))
		})
	}
}

// TestGenerateSlug_HashFallback verifies the content-addressed identifier:
// 12 characters, deterministic for the same URL.
func TestGenerateSlug_HashFallback(t *testing.T) {
	slug := GenerateSlug("https://example.com/", "Hi")
	assert.Len(t, slug, 12)
	assert.Equal(t, slug, GenerateSlug("https://example.com/", "Hi"))

	other := GenerateSlug("https://example.com/other", "Hi")
	assert.Len(t, other, 12)
	assert.NotEqual(t, slug, other)
}

func TestGenerateSlug_CapsLength(t *testing.T) {
	long := "https://example.com/this-is-an-extremely-long-slug-that-keeps-going-and-going-far-past-any-limit/"
	assert.LessOrEqual(t, len(GenerateSlug(long, "")), 50)
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "ISO timestamp",
			input: "2024-03-15T10:00:00Z",
			want:  "2024-03-15",
		},
		{
			name:  "ISO timestamp with offset",
			input: "2024-03-15T10:00:00+02:00",
			want:  "2024-03-15",
		},
		{
			name:  "date only passes through",
			input: "2024-03-15",
			want:  "2024-03-15",
		},
		{
			name:  "long month form",
			input: "January 2, 2024",
			want:  "2024-01-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.input))
		})
	}
}

func TestNormalizeDate_UnparseableFallsBackToToday(t *testing.T) {
	got := NormalizeDate("sometime last spring")
	assert.Equal(t, time.Now().Format("2006-01-02"), got)
}

func TestArtifactWriter_Write(t *testing.T) {
	writer, root := newTestWriter(t)

	doc := newDoc(t, `<div class="entry-content"><p>Hello <strong>world</strong></p></div>`)
	post := &PostRecord{
		URL:          "https://example.com/2024/03/15/hello-world/",
		Title:        "Hello World",
		PublishDate:  "2024-03-15T10:00:00Z",
		ModifiedDate: "2024-03-20T08:00:00Z",
		Content:      doc.Find(".entry-content"),
		Author:       "Jane Doe",
		Categories:   []string{"Tech", "Life"},
		Tags:         []string{},
	}

	path, err := writer.Write(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "posts", "2024-03-15_hello-world.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "---\ntitle: \"Hello World\"\n")
	assert.Contains(t, content, "date: 2024-03-15\n")
	assert.Contains(t, content, "modified: 2024-03-20\n")
	assert.Contains(t, content, "author: Jane Doe\n")
	assert.Contains(t, content, `categories: ["Tech","Life"]`)
	assert.Contains(t, content, "tags: []")
	assert.Contains(t, content, "original_url: https://example.com/2024/03/15/hello-world/")
	assert.Contains(t, content, "Hello **world**")
}

func TestArtifactWriter_Write_NoContent(t *testing.T) {
	writer, _ := newTestWriter(t)

	post := &PostRecord{URL: "https://example.com/2024/03/15/empty-shell/"}
	_, err := writer.Write(context.Background(), post)
	require.ErrorIs(t, err, ErrNoContent)
}

// TestArtifactWriter_Write_ModifiedSameAsDate verifies the modified field is
// omitted when it adds no information.
func TestArtifactWriter_Write_ModifiedSameAsDate(t *testing.T) {
	writer, _ := newTestWriter(t)

	doc := newDoc(t, `<div class="entry-content"><p>text</p></div>`)
	post := &PostRecord{
		URL:          "https://example.com/2024/03/15/same-day-edit/",
		Title:        "Same Day",
		PublishDate:  "2024-03-15T08:00:00Z",
		ModifiedDate: "2024-03-15T19:00:00Z",
		Content:      doc.Find(".entry-content"),
		Author:       "Unknown",
	}

	path, err := writer.Write(context.Background(), post)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "modified:")
}

// TestArtifactWriter_Write_EscapesTitleQuotes verifies quotes survive the
// header unharmed for the index's pattern matcher.
func TestArtifactWriter_Write_EscapesTitleQuotes(t *testing.T) {
	writer, _ := newTestWriter(t)

	doc := newDoc(t, `<div class="entry-content"><p>text</p></div>`)
	post := &PostRecord{
		URL:         "https://example.com/2024/03/15/quoted-words/",
		Title:       `She said "go"`,
		PublishDate: "2024-03-15",
		Content:     doc.Find(".entry-content"),
		Author:      "Unknown",
	}

	path, err := writer.Write(context.Background(), post)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `title: "She said \"go\""`)
}

// TestArtifactWriter_Write_DoesNotMutateScrapedContent verifies the media
// pass works on a clone, never on the record's own subtree.
func TestArtifactWriter_Write_DoesNotMutateScrapedContent(t *testing.T) {
	writer, _ := newTestWriter(t)

	// The image points at a defunct host, so it is skipped either way; what
	// matters is that the original selection's attributes stay put.
	doc := newDoc(t, `<div class="entry-content"><img src="http://107.23.205.221/pic.jpg"></div>`)
	content := doc.Find(".entry-content")
	post := &PostRecord{
		URL:         "https://example.com/2024/03/15/mutation-check/",
		Title:       "Mutation Check",
		PublishDate: "2024-03-15",
		Content:     content,
		Author:      "Unknown",
	}

	_, err := writer.Write(context.Background(), post)
	require.NoError(t, err)

	src, _ := content.Find("img").Attr("src")
	assert.Equal(t, "http://107.23.205.221/pic.jpg", src)
}

// TestArtifactWriter_Write_MediaFailureKeepsRemoteReference pins the
// media-rewrite idempotence property: all downloads failing leaves zero
// MediaRefs and the body still referencing the remote URLs verbatim.
func TestArtifactWriter_Write_MediaFailureKeepsRemoteReference(t *testing.T) {
	writer, _ := newTestWriter(t)

	doc := newDoc(t, `<div class="entry-content"><img src="http://107.23.205.221/lost.jpg"></div>`)
	post := &PostRecord{
		URL:         "https://example.com/2024/03/15/lost-media/",
		Title:       "Lost Media",
		PublishDate: "2024-03-15",
		Content:     doc.Find(".entry-content"),
		Author:      "Unknown",
	}

	path, err := writer.Write(context.Background(), post)
	require.NoError(t, err)
	assert.Empty(t, post.Media)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "http://107.23.205.221/lost.jpg")
}
