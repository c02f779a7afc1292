package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/fetch"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/metrics"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/ocr"
	"github.com/pageza/recipebox/internal/photo"
	"github.com/pageza/recipebox/internal/structured"
	"github.com/pageza/recipebox/internal/textparse"
)

// State is a step of one extraction attempt.
type State string

const (
	StateIdle                 State = "idle"
	StateAcquiring            State = "acquiring"
	StateStructuredEnrichment State = "structured_enrichment"
	StateAIExtracting         State = "ai_extracting"
	StateAIFailed             State = "ai_failed"
	StateOCRFallback          State = "ocr_fallback"
	StateDone                 State = "done"
	StateFailed               State = "failed"
)

var transitions = map[State][]State{
	StateIdle:                 {StateAcquiring, StateFailed},
	StateAcquiring:            {StateStructuredEnrichment, StateAIExtracting, StateOCRFallback, StateFailed},
	StateStructuredEnrichment: {StateAIExtracting, StateFailed},
	StateAIExtracting:         {StateDone, StateAIFailed, StateFailed},
	StateAIFailed:             {StateOCRFallback, StateFailed},
	StateOCRFallback:          {StateDone, StateFailed},
}

// CanTransition reports whether the cascade may move from one state to another.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Outcome describes a finished attempt. Trace lists every state visited,
// starting with StateIdle.
type Outcome struct {
	Recipe       model.Recipe
	UsedFallback bool
	Trace        []State
}

type attempt struct {
	input string
	state State
	trace []State
}

func newAttempt(input string) *attempt {
	return &attempt{input: input, state: StateIdle, trace: []State{StateIdle}}
}

func (a *attempt) to(s State) {
	if !CanTransition(a.state, s) {
		panic(fmt.Sprintf("extraction: invalid transition %s -> %s", a.state, s))
	}
	a.state = s
	a.trace = append(a.trace, s)
}

func (a *attempt) fail(err error) (Outcome, error) {
	a.to(StateFailed)
	metrics.ExtractionAttempts.WithLabelValues(a.input, metrics.OutcomeFailure).Inc()
	return Outcome{Trace: a.trace}, err
}

// TimeoutDecider declines the fallback when the wrapped decider does not
// answer within Timeout.
type TimeoutDecider struct {
	Decider FallbackDecider
	Timeout time.Duration
}

func (d TimeoutDecider) AuthorizeFallback(ctx context.Context, reason string) bool {
	if d.Decider == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	answer := make(chan bool, 1)
	go func() { answer <- d.Decider.AuthorizeFallback(ctx, reason) }()

	select {
	case ok := <-answer:
		return ok
	case <-ctx.Done():
		return false
	}
}

// ExtractorDeps are the collaborators of an Extractor. Recognizer, Online and
// Publish are optional.
type ExtractorDeps struct {
	Fetcher    PageFetcher
	LLM        RecipeExtractor
	Recognizer ocr.Recognizer
	Store      RecipeStore
	Keys       CredentialSource
	Online     ConnectivityChecker
	Publish    func([]model.Recipe)
}

// Extractor runs the extraction cascade and persists the result.
type Extractor struct {
	deps ExtractorDeps

	// mu keeps persist-then-publish atomic across concurrent attempts.
	mu sync.Mutex
}

// NewExtractor creates a new Extractor
func NewExtractor(deps ExtractorDeps) *Extractor {
	if deps.Online == nil {
		deps.Online = AlwaysOnline
	}
	return &Extractor{deps: deps}
}

// ExtractFromURL fetches rawURL, enriches the page text with any structured
// recipe data and asks the model for the recipe. There is no offline fallback
// for URLs. An empty class uses the fetcher's configured class.
func (e *Extractor) ExtractFromURL(ctx context.Context, rawURL string, class fetch.ClientClass) (Outcome, error) {
	a := newAttempt(model.MethodURL)
	log := logger.FromContext(ctx).With("url", rawURL)

	target, err := checkURL(rawURL)
	if err != nil {
		return a.fail(err)
	}
	key := e.deps.Keys.APIKey()
	if key == "" {
		return a.fail(apperr.New(apperr.CredentialMissing))
	}
	if !e.deps.Online.Online(ctx) {
		return a.fail(apperr.New(apperr.NetworkUnavailable))
	}
	if class == "" {
		class = e.deps.Fetcher.Class()
	}

	a.to(StateAcquiring)
	content, err := e.deps.Fetcher.FetchAs(ctx, class, target.String())
	if err != nil {
		if ctx.Err() == nil && apperr.KindOf(err) != apperr.NetworkUnavailable {
			err = apperr.Wrap(apperr.NetworkUnavailable, err)
		}
		log.Warn("Failed to acquire page", "error", err)
		return a.fail(err)
	}

	a.to(StateStructuredEnrichment)
	result := structured.Result{Image: model.PlaceholderImage}
	if doc, err := structured.Parse(content); err == nil {
		result = structured.Extract(doc, target.String())
	}
	page := fetch.Readable(content, target.String())
	text := page.Text
	if result.Block != "" {
		text = result.Block + "\n\n" + text
	}
	log.Debug("Prepared page text", "structured", result.Recipe != nil, "chars", len(text))

	a.to(StateAIExtracting)
	data, err := e.deps.LLM.ExtractFromText(ctx, key, text)
	if err != nil {
		a.to(StateAIFailed)
		log.Warn("Model extraction failed", "kind", apperr.KindOf(err), "error", err)
		return a.fail(err)
	}

	recipe := data.ToRecipe()
	recipe.URL = target.String()
	recipe.ExtractionMethod = model.MethodURL
	recipe.Image = result.Image
	if recipe.Image == "" {
		recipe.Image = model.PlaceholderImage
	}
	if recipe.Source == "" || recipe.Source == SourceWebsite {
		recipe.Source = siteName(result.SiteName, page.SiteName, target)
	}

	saved, err := e.persist(ctx, recipe)
	if err != nil {
		return a.fail(err)
	}
	a.to(StateDone)
	metrics.ExtractionAttempts.WithLabelValues(a.input, metrics.OutcomeSuccess).Inc()
	log.Info("Extracted recipe from URL", "id", saved.ID, "name", saved.Name)
	return Outcome{Recipe: saved, Trace: a.trace}, nil
}

// ExtractFromPhoto asks the model for the recipe in img. When the model is
// unavailable, or fails and decider authorizes it, the photo is read with the
// offline recognizer and parsed as text instead. That fallback always yields a
// recipe, possibly one with placeholder content.
func (e *Extractor) ExtractFromPhoto(ctx context.Context, img photo.Image, decider FallbackDecider) (Outcome, error) {
	a := newAttempt(model.MethodPhoto)
	log := logger.FromContext(ctx)

	a.to(StateAcquiring)
	if !strings.HasPrefix(img.MimeType, "image/") || len(img.Data) == 0 {
		return a.fail(apperr.New(apperr.UnsupportedFileType))
	}

	key := e.deps.Keys.APIKey()
	online := e.deps.Online.Online(ctx)

	var recipe model.Recipe
	usedFallback := false

	if key != "" && online {
		a.to(StateAIExtracting)
		data, err := e.deps.LLM.ExtractFromImage(ctx, key, img)
		if err == nil {
			recipe = data.ToRecipe()
			if recipe.Source == "" {
				recipe.Source = SourcePhotoUpload
			}
		} else {
			a.to(StateAIFailed)
			log.Warn("Model extraction failed", "kind", apperr.KindOf(err), "error", err)
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return a.fail(err)
			}
			if decider == nil || !decider.AuthorizeFallback(ctx, apperr.UserMessage(err)) {
				return a.fail(err)
			}
			usedFallback = true
		}
	} else {
		log.Info("Model unavailable, reading photo offline", "has_key", key != "", "online", online)
		usedFallback = true
	}

	if usedFallback {
		a.to(StateOCRFallback)
		recipe = textparse.Parse(e.recognize(ctx, img))
	}

	recipe.URL = ""
	recipe.Image = model.PhotoPlaceholderImage()
	recipe.ExtractionMethod = model.MethodPhoto

	saved, err := e.persist(ctx, recipe)
	if err != nil {
		return a.fail(err)
	}
	a.to(StateDone)
	outcome := metrics.OutcomeSuccess
	if usedFallback {
		outcome = metrics.OutcomeFallback
	}
	metrics.ExtractionAttempts.WithLabelValues(a.input, outcome).Inc()
	log.Info("Extracted recipe from photo", "id", saved.ID, "name", saved.Name, "fallback", usedFallback)
	return Outcome{Recipe: saved, UsedFallback: usedFallback, Trace: a.trace}, nil
}

func (e *Extractor) recognize(ctx context.Context, img photo.Image) string {
	if e.deps.Recognizer == nil {
		return ""
	}
	text, err := e.deps.Recognizer.Recognize(ctx, img)
	if err != nil {
		logger.FromContext(ctx).Warn("Text recognition failed", "error", err)
		return ""
	}
	return text
}

func (e *Extractor) persist(ctx context.Context, recipe model.Recipe) (model.Recipe, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	saved, err := e.deps.Store.Add(ctx, recipe)
	if err != nil {
		return model.Recipe{}, fmt.Errorf("failed to save recipe: %w", err)
	}

	all, err := e.deps.Store.GetAll(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to reload recipes", "error", err)
		return saved, nil
	}
	if e.deps.Publish != nil {
		e.deps.Publish(all)
	}
	return saved, nil
}

func checkURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperr.Newf(apperr.Invalid, "%q is not a valid web address", rawURL)
	}
	return u, nil
}

func siteName(structuredName, readableName string, u *url.URL) string {
	if structuredName != "" {
		return structuredName
	}
	if readableName != "" {
		return readableName
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
