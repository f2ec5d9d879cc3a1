package service

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/osteele/liquid"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/models"
)

// TemplateService renders campaign content for a recipient. The only
// binding is name.
type TemplateService struct {
	engine *liquid.Engine
	logger logrus.FieldLogger
	cache  sync.Map // content -> *CompiledTemplate
}

// NewTemplateService creates a new template service
func NewTemplateService(logger logrus.FieldLogger) *TemplateService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TemplateService{
		engine: liquid.NewEngine(),
		logger: logger,
	}
}

// outputTag matches a liquid output tag such as {{ name }} or {{- name | upcase -}}
var outputTag = regexp.MustCompile(`(?s)\{\{-?(.*?)-?\}\}`)

// nameExpr matches an output expression that reads only the name binding
var nameExpr = regexp.MustCompile(`(?s)^name\s*(\|.*)?$`)

// CompiledTemplate is campaign content parsed once and rendered per
// recipient. Only output tags reading name are rendered; every other byte
// of the content, including other {{ }} and {% %} tags, goes out as authored.
type CompiledTemplate struct {
	parsed   bool
	segments []segment
}

// segment is either literal text or one name expression
type segment struct {
	text string
	bare bool             // plain {{name}}
	expr *liquid.Template // nil for literal text
}

// Fallback reports whether liquid could not parse the content as a whole.
// Rendering is unaffected; the flag feeds previews.
func (c *CompiledTemplate) Fallback() bool {
	return !c.parsed
}

// Render fills in the recipient name. An empty name becomes the generic
// placeholder.
func (c *CompiledTemplate) Render(name string) string {
	name = recipientName(name)
	bindings := liquid.Bindings{"name": name}

	var b strings.Builder
	for _, seg := range c.segments {
		if seg.expr == nil {
			b.WriteString(seg.text)
			continue
		}
		out, err := seg.expr.RenderString(bindings)
		switch {
		case err == nil:
			b.WriteString(out)
		case seg.bare:
			b.WriteString(name)
		default:
			b.WriteString(seg.text)
		}
	}
	return b.String()
}

// Compile parses content, caching by source text. Content liquid rejects
// still compiles; its name tags are substituted all the same.
func (s *TemplateService) Compile(content string) *CompiledTemplate {
	if cached, ok := s.cache.Load(content); ok {
		return cached.(*CompiledTemplate)
	}

	compiled := &CompiledTemplate{}
	if _, err := s.engine.ParseString(content); err != nil {
		s.logger.WithError(err).Warn("template did not parse, rendering name tags only")
	} else {
		compiled.parsed = true
	}
	compiled.segments = s.split(content)

	actual, _ := s.cache.LoadOrStore(content, compiled)
	return actual.(*CompiledTemplate)
}

// split cuts content into literal text and name expressions
func (s *TemplateService) split(content string) []segment {
	var segments []segment
	last := 0
	for _, loc := range outputTag.FindAllStringSubmatchIndex(content, -1) {
		inner := strings.TrimSpace(content[loc[2]:loc[3]])
		if !nameExpr.MatchString(inner) {
			continue
		}
		if loc[0] > last {
			segments = append(segments, segment{text: content[last:loc[0]]})
		}

		// A name tag liquid rejects stays as authored text
		seg := segment{text: content[loc[0]:loc[1]], bare: inner == "name"}
		if tpl, err := s.engine.ParseString("{{ " + inner + " }}"); err == nil {
			seg.expr = tpl
		}
		segments = append(segments, seg)
		last = loc[1]
	}
	if last < len(content) {
		segments = append(segments, segment{text: content[last:]})
	}
	return segments
}

// Render renders content for one recipient name
func (s *TemplateService) Render(content, name string) string {
	return s.Compile(content).Render(name)
}

// ValidateTemplate checks if content parses as a template
func (s *TemplateService) ValidateTemplate(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("template cannot be empty")
	}
	if _, err := s.engine.ParseString(content); err != nil {
		return fmt.Errorf("template does not parse: %s", err.Error())
	}
	return nil
}

// Preview renders a campaign for a sample recipient name
func (s *TemplateService) Preview(campaign *models.Campaign, name string) *PreviewResult {
	compiled := s.Compile(campaign.Content)
	result := &PreviewResult{
		CampaignID: campaign.ID,
		Channel:    campaign.Channel,
		Name:       recipientName(name),
		Body:       compiled.Render(name),
		Fallback:   compiled.Fallback(),
	}
	if campaign.Channel == models.ChannelEmail {
		result.Subject = campaign.Subject()
	}
	if err := s.ValidateTemplate(campaign.Content); err != nil {
		result.TemplateError = err.Error()
	}
	return result
}

// PreviewResult is a campaign rendered for one sample recipient
type PreviewResult struct {
	CampaignID string         `json:"campaignId"`
	Channel    models.Channel `json:"channel"`
	Name       string         `json:"name"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body"`
	Fallback   bool           `json:"fallback,omitempty"`

	// TemplateError is liquid's complaint about the content, if any
	TemplateError string `json:"templateError,omitempty"`
}

func recipientName(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return models.DefaultRecipientName
	}
	return name
}
