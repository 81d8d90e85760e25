package unicam

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/sync/errgroup"

	"github.com/unitimetable/timetable/internal/model"
)

const (
	defaultWebexConcurrency = 4
	webexPrefix             = "Link webex: \n"
)

// enrichWithWebex fills the description of every lesson with the meeting
// links listed in its detail modal. Lessons whose modal cannot be fetched or
// has no links keep a nil description.
func (s *Source) enrichWithWebex(ctx context.Context, lessons []rawLesson) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.WebexConcurrency)

	for i := range lessons {
		if lessons[i].id == "" {
			continue
		}
		g.Go(func() error {
			links, err := s.webexLinks(ctx, lessons[i].id)
			if err != nil {
				s.logger.Warn("webex lookup failed",
					slog.String("lesson_id", lessons[i].id),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if len(links) > 0 {
				lessons[i].lesson.Description = model.Ptr(webexPrefix + strings.Join(links, "\n"))
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Source) webexLinks(ctx context.Context, lessonID string) ([]string, error) {
	q := url.Values{}
	q.Set("filename", scheduleFilename)
	q.Set("class", scheduleClass)
	q.Set("method", "getModalDataLezione")
	q.Add("parametri[]", lessonID)
	q.Add("parametri[]", "false")

	body, err := s.client.Get(ctx, s.scheduleEndpoint(), q)
	if err != nil {
		return nil, err
	}
	return teacherLinks(body)
}

// teacherLinks returns the anchors of the table row headed "Docenti".
func teacherLinks(page []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	var links []string
	for row := range doc.Descendants() {
		if row.Type != html.ElementNode || row.DataAtom != atom.Tr {
			continue
		}
		th := firstElement(row, atom.Th)
		if th == nil || strings.TrimSpace(textContent(th)) != "Docenti" {
			continue
		}
		for n := range row.Descendants() {
			if n.Type != html.ElementNode || n.DataAtom != atom.A || !insideCell(n, row) {
				continue
			}
			if href := attr(n, "href"); href != "" {
				links = append(links, href)
			}
		}
	}
	return links, nil
}

func firstElement(n *html.Node, a atom.Atom) *html.Node {
	for d := range n.Descendants() {
		if d.Type == html.ElementNode && d.DataAtom == a {
			return d
		}
	}
	return nil
}

func insideCell(n, row *html.Node) bool {
	for p := n.Parent; p != nil && p != row; p = p.Parent {
		if p.DataAtom == atom.Td {
			return true
		}
	}
	return false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
		}
	}
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}
