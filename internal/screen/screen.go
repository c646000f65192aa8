// Package screen writes a short LLM review note for delivered applications.
package screen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/jobs"
	"github.com/garnizeh/crackedclub/internal/submission"
	"github.com/garnizeh/crackedclub/pkg/models"
	"github.com/garnizeh/crackedclub/pkg/ollama"
	"github.com/garnizeh/crackedclub/pkg/repository"
)

var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

var tracer = otel.Tracer("github.com/garnizeh/crackedclub/internal/screen")

// TemplateName is the prompt_templates name the screener renders.
const TemplateName = "screen"

// Note is the structured review stored on the application.
type Note struct {
	Summary string   `json:"summary"`
	Vibe    string   `json:"vibe"`
	Flags   []string `json:"flags"`
}

// Generator is the subset of the Ollama client the screener needs.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (ollama.GenerateResult, error)
}

// Validator checks a document against a stored schema version.
type Validator interface {
	Validate(ctx context.Context, version string, doc []byte) error
}

type Config struct {
	Model           string
	TemplateVersion string
	SchemaVersion   string
	Timeout         time.Duration
}

// Screener renders the screening prompt, asks the model and stores the note.
type Screener struct {
	apps          repository.ApplicationRepo
	gen           Generator
	schemas       Validator
	cfg           Config
	template      string
	schemaVersion string
}

// NewScreener loads the prompt template named "screen" at cfg.TemplateVersion.
func NewScreener(ctx context.Context, cfg Config, gen Generator, apps repository.ApplicationRepo, tr repository.TemplateRepo, schemas Validator) (*Screener, error) {
	if gen == nil {
		return nil, errors.New("generator is required")
	}
	if apps == nil || tr == nil || schemas == nil {
		return nil, errors.New("application repo, template repo and schema validator are required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.TemplateVersion == "" {
		cfg.TemplateVersion = "v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	tpl, err := tr.GetTemplate(ctx, TemplateName, cfg.TemplateVersion)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if tpl == nil || tpl.TemplateTxt == "" {
		return nil, fmt.Errorf("template %s:%s not found", TemplateName, cfg.TemplateVersion)
	}
	schemaVersion := cfg.SchemaVersion
	if schemaVersion == "" {
		schemaVersion = TemplateName + "_" + cfg.TemplateVersion
	}
	if tpl.SchemaVer != nil && *tpl.SchemaVer != "" {
		schemaVersion = *tpl.SchemaVer
	}

	return &Screener{
		apps:          apps,
		gen:           gen,
		schemas:       schemas,
		cfg:           cfg,
		template:      tpl.TemplateTxt,
		schemaVersion: schemaVersion,
	}, nil
}

// promptData is what the screening template sees.
type promptData struct {
	Email          string
	Twitter        string
	Website        string
	Why            string
	Reasons        []string
	Interests      []string
	SkillLevel     string
	Discovery      string
	DiscoveryOther string
	Expectations   string
}

func newPromptData(p application.Payload) promptData {
	d := promptData{
		Email:          p.Email,
		Twitter:        p.Twitter,
		Why:            p.Why,
		SkillLevel:     application.Label(application.SkillLevelOptions, string(p.SkillLevel)),
		Discovery:      application.Label(application.DiscoveryOptions, string(p.Discovery)),
		DiscoveryOther: p.DiscoveryOther,
		Expectations:   p.Expectations,
	}
	if p.Website != nil {
		d.Website = *p.Website
	}
	for _, r := range p.Reasons {
		d.Reasons = append(d.Reasons, application.Label(application.ReasonOptions, string(r)))
	}
	for _, i := range p.Interests {
		d.Interests = append(d.Interests, application.Label(application.InterestOptions, string(i)))
	}
	return d
}

// Screen produces a validated note for one payload.
func (s *Screener) Screen(ctx context.Context, p application.Payload) (*Note, error) {
	prompt, err := ollama.RenderTemplate(s.template, newPromptData(p))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	ctxReq, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	ctxReq, span := tracer.Start(ctxReq, "screen.generate")
	span.SetAttributes(attribute.String("llm.model", s.cfg.Model))
	out, err := s.gen.Generate(ctxReq, s.cfg.Model, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("generate: %w", err)
	}
	span.End()

	raw := extractJSON(out.Text)
	if raw == "" {
		logger.Warn("screening output without JSON", slog.String("raw", out.Text))
		return nil, errors.New("no JSON object found in response")
	}
	if err := s.schemas.Validate(ctxReq, s.schemaVersion, []byte(raw)); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	note, err := ParseNote(raw)
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Handle is the jobs.Handler for application.screen.
func (s *Screener) Handle(ctx context.Context, j *models.BackgroundJob) error {
	var dj submission.DeliverJob
	if err := json.Unmarshal(j.Payload, &dj); err != nil || dj.ApplicationID == "" {
		return jobs.Permanent(fmt.Errorf("bad screen payload %q", j.Payload))
	}
	a, err := s.apps.GetApplication(ctx, dj.ApplicationID)
	if err != nil {
		return fmt.Errorf("load application %s: %w", dj.ApplicationID, err)
	}
	if a == nil {
		return jobs.Permanent(fmt.Errorf("application %s not found", dj.ApplicationID))
	}

	var p application.Payload
	if err := json.Unmarshal(a.PayloadJSON, &p); err != nil {
		return jobs.Permanent(fmt.Errorf("decode payload of %s: %w", a.ID, err))
	}

	note, err := s.Screen(ctx, p)
	if err != nil {
		return err
	}
	b, err := json.Marshal(note)
	if err != nil {
		return err
	}
	if err := s.apps.SetScreening(ctx, a.ID, b); err != nil {
		return fmt.Errorf("store screening: %w", err)
	}
	logger.Info("application screened", slog.String("id", a.ID), slog.String("vibe", note.Vibe), slog.Int("flags", len(note.Flags)))
	return nil
}

// ParseNote extracts and decodes the JSON object in model output.
func ParseNote(s string) (*Note, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty response")
	}
	j := extractJSON(s)
	if j == "" {
		return nil, errors.New("no JSON object found in response")
	}

	var n Note
	if err := json.Unmarshal([]byte(j), &n); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if n.Flags == nil {
		n.Flags = []string{}
	}
	return &n, nil
}

// extractJSON returns the substring from the first '{' to the last '}' in the input.
// Models like to wrap JSON in prose or markdown fences.
func extractJSON(s string) string {
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first == -1 || last == -1 || last < first {
		return ""
	}
	return s[first : last+1]
}
