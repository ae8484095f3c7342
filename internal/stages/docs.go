package stages

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/command"
	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/types"
)

// docsOutputEnv overrides where the built site is expected, relative to
// the job working directory.
const docsOutputEnv = "DOCS_OUTPUT"

// defaultDocsOutput matches the sphinx html builder default.
const defaultDocsOutput = "docs/_build/html"

// Docs builds the documentation site and verifies the output: the site
// directory must exist, contain an index page, and its internal links
// must resolve.
type Docs struct {
	runner command.Runner
	log    *logging.Logger
}

// NewDocs creates the docs executor.
func NewDocs(runner command.Runner, log *logging.Logger) *Docs {
	return &Docs{runner: runner, log: log}
}

// Definition returns the stage metadata.
func (d *Docs) Definition() Stage {
	return Stage{
		ID:          "docs",
		Name:        "Docs",
		Description: "Documentation build and link verification",
	}
}

// Execute runs the docs steps, then verifies the generated site.
func (d *Docs) Execute(ctx context.Context, inv *Invocation) *Execution {
	steps, ok := runSteps(ctx, d.runner, inv)
	if !ok {
		return &Execution{Outcome: types.Failure(stepFailure(steps)), Steps: steps}
	}

	output := inv.Env[docsOutputEnv]
	if output == "" {
		output = defaultDocsOutput
	}
	site := filepath.Join(inv.Workspace, inv.Spec.WorkingDir, output)

	if err := d.verifySite(site); err != nil {
		return &Execution{Outcome: types.Failure(err.Error()), Steps: steps}
	}
	return &Execution{Outcome: types.Success(), Steps: steps}
}

// verifySite checks the built site for an index page and broken
// internal links.
func (d *Docs) verifySite(site string) error {
	info, err := os.Stat(site)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("docs output %s missing", site)
	}
	if _, err := os.Stat(filepath.Join(site, "index.html")); err != nil {
		return fmt.Errorf("docs output %s has no index.html", site)
	}

	pages, err := collectPages(site)
	if err != nil {
		return fmt.Errorf("failed to scan docs output: %w", err)
	}

	var broken []string
	for _, page := range pages {
		links, err := pageLinks(page)
		if err != nil {
			d.log.Warn("unparseable docs page", zap.String("page", page), zap.Error(err))
			continue
		}
		for _, link := range links {
			if !linkResolves(page, link) {
				broken = append(broken, fmt.Sprintf("%s -> %s", relTo(site, page), link))
			}
		}
	}
	if len(broken) > 0 {
		sort.Strings(broken)
		return fmt.Errorf("%d broken internal link(s): %s", len(broken), strings.Join(broken, "; "))
	}
	return nil
}

// collectPages walks the site tree gathering html files.
func collectPages(site string) ([]string, error) {
	var (
		mu    sync.Mutex
		pages []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, site, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		mu.Lock()
		pages = append(pages, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(pages)
	return pages, nil
}

// pageLinks extracts href targets from one page.
func pageLinks(page string) ([]string, error) {
	f, err := os.Open(page)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links, nil
}

// linkResolves reports whether an internal link points at an existing
// file. External links, anchors, and mailto targets are skipped.
func linkResolves(page, href string) bool {
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme != "" || u.Host != "" {
		return true
	}
	if u.Path == "" {
		// Same-page anchor.
		return true
	}

	target := filepath.Join(filepath.Dir(page), filepath.FromSlash(u.Path))
	info, err := os.Stat(target)
	if err != nil {
		return false
	}
	if info.IsDir() {
		_, err = os.Stat(filepath.Join(target, "index.html"))
		return err == nil
	}
	return true
}

func relTo(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
