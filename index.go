package wparchive

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var (
	// Pattern-matching fallbacks for artifacts whose front matter will not
	// parse as YAML.
	titleLinePattern = regexp.MustCompile(`title: "(.*?)"`)
	dateLinePattern  = regexp.MustCompile(`(?m)^date: (.*)$`)
)

// artifactHeader is the slice of front matter the index cares about.
type artifactHeader struct {
	Title string `yaml:"title"`
	Date  string `yaml:"date"`
}

// IndexBuilder re-reads persisted artifact headers and emits a README
// summary listing every post with counts for the media store.
type IndexBuilder struct {
	outputDir string
	siteURL   string
	store     *MediaStore
	log       zerolog.Logger
}

// NewIndexBuilder wires an index builder for the given output tree.
func NewIndexBuilder(outputDir, siteURL string, store *MediaStore, log zerolog.Logger) *IndexBuilder {
	return &IndexBuilder{outputDir: outputDir, siteURL: siteURL, store: store, log: log}
}

// Build writes the README index. Artifact paths are sorted by file name;
// date-prefixed names sort chronologically. An artifact whose header cannot
// be parsed still gets a line, using its base name as the title.
func (b *IndexBuilder) Build(artifactPaths []string) error {
	sorted := make([]string, len(artifactPaths))
	copy(sorted, artifactPaths)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	images, videos := b.store.Counts()

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Blog Backup from %s\n\n", b.siteURL)
	fmt.Fprintf(&sb, "Generated on: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))
	sb.WriteString("## Statistics\n")
	fmt.Fprintf(&sb, "- Total posts: %d\n", len(sorted))
	fmt.Fprintf(&sb, "- Total media files: %d images, %d videos\n\n", images, videos)
	sb.WriteString("## Posts\n\n")

	for _, path := range sorted {
		title, date := b.readHeader(path)
		fmt.Fprintf(&sb, "- [%s](posts/%s) - %s\n", title, filepath.Base(path), date)
	}

	indexPath := filepath.Join(b.outputDir, "README.md")
	if err := os.WriteFile(indexPath, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}

	b.log.Info().Str("file", indexPath).Int("posts", len(sorted)).Msg("created index")
	return nil
}

// readHeader extracts title and date from one artifact, trying the YAML
// front matter first and simple pattern matching second. Unreadable files
// fall back to the base name and an empty date.
func (b *IndexBuilder) readHeader(path string) (title, date string) {
	title = strings.TrimSuffix(filepath.Base(path), ".md")

	data, err := os.ReadFile(path)
	if err != nil {
		b.log.Warn().Str("file", path).Err(err).Msg("failed to read artifact header")
		return title, ""
	}
	content := string(data)

	if block, ok := frontMatterBlock(content); ok {
		var header artifactHeader
		if err := yaml.Unmarshal([]byte(block), &header); err == nil && header.Title != "" {
			return header.Title, header.Date
		}
	}

	if m := titleLinePattern.FindStringSubmatch(content); m != nil {
		title = m[1]
	}
	if m := dateLinePattern.FindStringSubmatch(content); m != nil {
		date = strings.TrimSpace(m[1])
	}
	return title, date
}

// frontMatterBlock returns the text between the leading front matter
// delimiters.
func frontMatterBlock(content string) (string, bool) {
	if !strings.HasPrefix(content, "---\n") {
		return "", false
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}
