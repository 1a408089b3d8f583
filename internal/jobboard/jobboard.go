// Package jobboard loads job descriptions from published hh.ru vacancies so an
// interview can be planned without a local JD file.
package jobboard

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/spigell/interview-agent/internal/faults"
)

const (
	apiURL          = "https://api.hh.ru"
	userAgent       = "spigell/interview-agent (spigelly@gmail.com)"
	contentEncoding = "gzip"
)

var vacancyID = regexp.MustCompile(`^\d+$`)
var vacancyURL = regexp.MustCompile(`/vacancy/(\d+)`)

type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// Token is optional: published vacancies are readable anonymously.
	Token string
}

func New(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

type Vacancy struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Experience struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"experience"`
	Employer struct {
		Name string `json:"name"`
	} `json:"employer"`
	Description string `json:"description"`
	KeySkills   []struct {
		Name string `json:"name"`
	} `json:"key_skills"`
	AlternateURL string `json:"alternate_url"`
	Archived     bool   `json:"archived"`
}

// ParseVacancyRef accepts a bare vacancy id or any hh.ru vacancy link.
func ParseVacancyRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if vacancyID.MatchString(ref) {
		return ref, nil
	}
	if m := vacancyURL.FindStringSubmatch(ref); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("%w: %q is not a vacancy id or link", faults.ErrInvalidInput, ref)
}

func (c *Client) Vacancy(ctx context.Context, ref string) (*Vacancy, error) {
	id, err := ParseVacancyRef(ref)
	if err != nil {
		return nil, err
	}

	var v Vacancy
	if err := c.getJSON(ctx, c.APIURL+"/vacancies/"+url.PathEscape(id), &v); err != nil {
		return nil, fmt.Errorf("getting vacancy %s: %w", id, err)
	}
	if v.Archived {
		c.logger.Warn("vacancy is archived", zap.String("vacancy", id), zap.String("url", v.AlternateURL))
	}

	return &v, nil
}

// JobDescription fetches a vacancy and flattens it into the text the profile
// analyzer expects from a JD document.
func (c *Client) JobDescription(ctx context.Context, ref string) (string, error) {
	v, err := c.Vacancy(ctx, ref)
	if err != nil {
		return "", err
	}

	text := v.Text()
	if text == "" {
		return "", fmt.Errorf("%w: vacancy %s has no description", faults.ErrInvalidInput, v.ID)
	}
	return text, nil
}

// Text renders the vacancy as plain text.
func (v *Vacancy) Text() string {
	var b strings.Builder
	if v.Name != "" {
		fmt.Fprintf(&b, "Position: %s\n", v.Name)
	}
	if v.Employer.Name != "" {
		fmt.Fprintf(&b, "Company: %s\n", v.Employer.Name)
	}
	if v.Experience.Name != "" {
		fmt.Fprintf(&b, "Experience: %s\n", v.Experience.Name)
	}
	if len(v.KeySkills) > 0 {
		skills := make([]string, 0, len(v.KeySkills))
		for _, s := range v.KeySkills {
			if name := strings.TrimSpace(s.Name); name != "" {
				skills = append(skills, name)
			}
		}
		fmt.Fprintf(&b, "Key skills: %s\n", strings.Join(skills, ", "))
	}
	if desc := htmlText(v.Description); desc != "" {
		b.WriteString("\n")
		b.WriteString(desc)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// htmlText drops markup and keeps block elements on their own lines.
func htmlText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return collapseLines(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "p", "br", "div", "ul", "ol", "h1", "h2", "h3", "h4":
				b.WriteString("\n")
			case "li":
				b.WriteString("\n- ")
			}
		}
	}
}

func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || line == "-" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func (c *Client) getJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", faults.ErrCollaboratorTimeout, err)
		}
		return err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return err
		}
		defer gz.Close()
		reader = gz
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: vacancy not found", faults.ErrInvalidInput)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	return json.NewDecoder(reader).Decode(target)
}
