package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pageza/recipebox/internal/apperr"
	"github.com/pageza/recipebox/internal/logger"
	"github.com/pageza/recipebox/internal/metrics"
	"github.com/pageza/recipebox/internal/model"
	"github.com/pageza/recipebox/internal/photo"
)

const (
	DefaultPrepTime = "15 min"
	DefaultCookTime = "30 min"
	DefaultServings = 4

	SourcePhotoUpload = "Photo Upload"
	SourceWebsite     = "Website"
)

// RecipeData represents the structure of a recipe as returned by the model
type RecipeData struct {
	Name         string       `json:"name" validate:"required"`
	Cuisine      string       `json:"cuisine" validate:"required,cuisine"`
	PrepTime     string       `json:"prepTime"`
	CookTime     string       `json:"cookTime"`
	Servings     ServingsType `json:"servings"`
	Difficulty   string       `json:"difficulty" validate:"oneof=Easy Medium Hard"`
	Tags         []string     `json:"tags"`
	Ingredients  []string     `json:"ingredients" validate:"required,min=1,dive,required"`
	Instructions []string     `json:"instructions" validate:"required,min=1,dive,required"`
	Source       string       `json:"source"`
	URL          string       `json:"url"`
}

// requiredKeys must be present in every model reply.
var requiredKeys = []string{"name", "cuisine", "servings", "difficulty", "ingredients", "instructions"}

// ServingsType can handle both string and number values for servings
type ServingsType struct {
	Value int
}

var leadingInt = regexp.MustCompile(`\d+`)

func (s *ServingsType) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as number first
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		s.Value = int(num)
		return nil
	}

	// Try to unmarshal as string such as "4" or "4-6 people"
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if m := leadingInt.FindString(str); m != "" {
			s.Value, _ = strconv.Atoi(m)
		}
		return nil
	}

	if string(data) == "null" {
		return nil
	}

	return fmt.Errorf("invalid servings format")
}

// ToRecipe converts the reply into a recipe record, applying defaults for
// fields the model could not determine.
func (d *RecipeData) ToRecipe() model.Recipe {
	r := model.Recipe{
		Name:         d.Name,
		Source:       d.Source,
		URL:          d.URL,
		Cuisine:      d.Cuisine,
		Tags:         model.StringArray(d.Tags),
		PrepTime:     d.PrepTime,
		CookTime:     d.CookTime,
		Servings:     d.Servings.Value,
		Difficulty:   d.Difficulty,
		Ingredients:  model.StringArray(d.Ingredients),
		Instructions: model.StringArray(d.Instructions),
	}
	if strings.TrimSpace(r.PrepTime) == "" {
		r.PrepTime = DefaultPrepTime
	}
	if strings.TrimSpace(r.CookTime) == "" {
		r.CookTime = DefaultCookTime
	}
	if r.Servings <= 0 {
		r.Servings = DefaultServings
	}
	model.Normalize(&r)
	return r
}

// Part is one element of a generateContent request.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData carries a base64 encoded image.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Content groups the parts of one turn.
type Content struct {
	Parts []Part `json:"parts"`
}

// GenerationConfig tunes sampling.
type GenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

// Request represents a request to the Gemini generateContent API
type Request struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Details []struct {
			Reason string `json:"reason"`
		} `json:"details"`
	} `json:"error"`
}

var safetyFinishReasons = map[string]bool{
	"SAFETY":             true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
	"IMAGE_SAFETY":       true,
}

// LLMService handles interactions with the Gemini API
type LLMService struct {
	apiURL string
	model  string
	client *http.Client
}

// NewLLMService creates a new LLMService instance. apiURL is the models
// collection URL, e.g. https://generativelanguage.googleapis.com/v1beta/models.
func NewLLMService(apiURL, modelName string, timeout time.Duration) *LLMService {
	return &LLMService{
		apiURL: strings.TrimRight(apiURL, "/"),
		model:  modelName,
		client: &http.Client{Timeout: timeout},
	}
}

// BuildPrompt returns the fixed extraction instruction.
func BuildPrompt(isImage bool) string {
	source := SourceWebsite
	if isImage {
		source = SourcePhotoUpload
	}
	return fmt.Sprintf(`Extract recipe information and return ONLY a JSON object with this exact structure:

{
  "name": "Recipe name",
  "cuisine": "%s",
  "prepTime": "X min",
  "cookTime": "X min",
  "servings": number,
  "difficulty": "Easy|Medium|Hard",
  "tags": ["tag1", "tag2"],
  "ingredients": ["ingredient 1", "ingredient 2"],
  "instructions": ["step 1", "step 2"],
  "source": "%s",
  "url": ""
}

Important:
- Return ONLY valid JSON, no explanations
- Copy ingredient and instruction text EXACTLY as written, including quantities; do not summarize, paraphrase or merge steps
- If structured recipe data is provided, use its values verbatim
- Break instructions into clear steps in their original order
- Add 2-4 relevant tags like: Vegetarian, Healthy, Quick, etc.
- If a value cannot be determined use prepTime "%s", cookTime "%s" and servings %d`,
		strings.Join(model.Cuisines, "|"), source, DefaultPrepTime, DefaultCookTime, DefaultServings)
}

// ExtractFromText asks the model to extract a recipe from page content.
func (s *LLMService) ExtractFromText(ctx context.Context, apiKey, content string) (*RecipeData, error) {
	parts := []Part{{Text: BuildPrompt(false) + "\n\nContent:\n" + content}}
	return s.extract(ctx, apiKey, "text", parts)
}

// ExtractFromImage asks the model to extract a recipe from a photo.
func (s *LLMService) ExtractFromImage(ctx context.Context, apiKey string, img photo.Image) (*RecipeData, error) {
	parts := []Part{
		{Text: BuildPrompt(true)},
		{InlineData: &InlineData{
			MimeType: img.MimeType,
			Data:     base64.StdEncoding.EncodeToString(img.Data),
		}},
	}
	return s.extract(ctx, apiKey, "image", parts)
}

func (s *LLMService) extract(ctx context.Context, apiKey, input string, parts []Part) (*RecipeData, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, apperr.New(apperr.CredentialMissing)
	}

	start := time.Now()
	text, err := s.generate(ctx, apiKey, parts)
	metrics.ModelRequestDuration.WithLabelValues(input).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	return ParseRecipeResponse(text)
}

func (s *LLMService) generate(ctx context.Context, apiKey string, parts []Part) (string, error) {
	reqBody := Request{
		Contents: []Content{{Parts: parts}},
		GenerationConfig: &GenerationConfig{
			Temperature:      0.1, // extraction, not generation
			ResponseMIMEType: "application/json",
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", s.apiURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", apperr.Wrap(apperr.NetworkUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Wrap(apperr.NetworkUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.FromContext(ctx).Warn("Model request failed", "status", resp.StatusCode)
		return "", classifyAPIError(resp.StatusCode, body)
	}

	var result generateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperr.Wrap(apperr.MalformedModelResponse, fmt.Errorf("failed to decode response: %w", err))
	}

	if result.PromptFeedback != nil && result.PromptFeedback.BlockReason != "" {
		return "", apperr.Wrap(apperr.ContentSafetyRejected, fmt.Errorf("prompt blocked: %s", result.PromptFeedback.BlockReason))
	}
	if len(result.Candidates) == 0 {
		return "", apperr.Wrap(apperr.ExtractionFailed, errors.New("no response from API"))
	}

	cand := result.Candidates[0]
	if safetyFinishReasons[cand.FinishReason] {
		return "", apperr.Wrap(apperr.ContentSafetyRejected, fmt.Errorf("response blocked: %s", cand.FinishReason))
	}

	var text strings.Builder
	for _, p := range cand.Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", apperr.Wrap(apperr.MalformedModelResponse, errors.New("empty response"))
	}
	return text.String(), nil
}

func classifyAPIError(status int, body []byte) error {
	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	cause := fmt.Errorf("API request failed with status %d: %s", status, apiErr.Error.Message)

	invalidKey := strings.Contains(strings.ToLower(apiErr.Error.Message), "api key")
	for _, d := range apiErr.Error.Details {
		if d.Reason == "API_KEY_INVALID" {
			invalidKey = true
		}
	}

	switch {
	case status == http.StatusUnauthorized, status == http.StatusBadRequest && invalidKey:
		return apperr.Wrap(apperr.CredentialInvalid, cause)
	case status == http.StatusForbidden:
		return apperr.Wrap(apperr.PermissionDenied, cause)
	case status == http.StatusTooManyRequests:
		return &apperr.Error{Kind: apperr.ExtractionFailed, Message: "The extraction service is busy or your quota is exhausted. Please try again later.", Err: cause}
	default:
		return apperr.Wrap(apperr.ExtractionFailed, cause)
	}
}

var codeFence = regexp.MustCompile("```(?:json)?\\s*")

// ParseRecipeResponse strips code fences from the model reply and validates it
// against the recipe schema. Any violation is a MalformedModelResponse.
func ParseRecipeResponse(text string) (*RecipeData, error) {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))

	var keys map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &keys); err != nil {
		return nil, apperr.Wrap(apperr.MalformedModelResponse, fmt.Errorf("reply is not a JSON object: %w", err))
	}
	var missing []string
	for _, k := range requiredKeys {
		if _, ok := keys[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Wrap(apperr.MalformedModelResponse, fmt.Errorf("missing keys: %s", strings.Join(missing, ", ")))
	}

	var data RecipeData
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, apperr.Wrap(apperr.MalformedModelResponse, fmt.Errorf("unexpected field type: %w", err))
	}

	data.Cuisine = model.CanonicalCuisine(data.Cuisine)
	data.Difficulty = model.CanonicalDifficulty(data.Difficulty)
	if err := model.Validator().Struct(&data); err != nil {
		return nil, apperr.Wrap(apperr.MalformedModelResponse, err)
	}
	return &data, nil
}
