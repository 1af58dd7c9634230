// Package narrative asks a language model to describe the current map for the
// game master to read aloud. Output is advisory and never replicated.
package narrative

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/DoyleJ11/hexmap/internal/world"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Fallback is returned in place of a description whenever generation fails.
const Fallback = "The oracle is silent for now. Check that the narrative API key is configured."

const systemPrompt = "You are a dark and detailed tabletop RPG narrator."

type Narrator interface {
	Narrate(ctx context.Context, grid world.GridMap, tokens []world.Token) string
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAI narrates through a chat completion endpoint.
type OpenAI struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func NewOpenAI(cfg Config, log *zap.Logger, opts ...option.RequestOption) *OpenAI {
	base := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{
		client: openai.NewClient(append(base, opts...)...),
		model:  cfg.Model,
		log:    log,
	}
}

// Narrate never fails: any error is logged and answered with Fallback.
func (o *OpenAI) Narrate(ctx context.Context, grid world.GridMap, tokens []world.Token) string {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Summarize(grid, tokens)),
		},
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		o.log.Warn("narrative generation failed", zap.Error(err))
		return Fallback
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return Fallback
	}
	return resp.Choices[0].Message.Content
}

// Summarize builds the prompt describing the explored area, its terrain mix
// and where the tokens stand.
func Summarize(grid world.GridMap, tokens []world.Token) string {
	width, height := 1, 1
	if len(grid) > 0 {
		first := true
		var minCol, maxCol, minRow, maxRow int
		for c := range grid {
			if first {
				minCol, maxCol, minRow, maxRow = c.Col, c.Col, c.Row, c.Row
				first = false
				continue
			}
			minCol, maxCol = min(minCol, c.Col), max(maxCol, c.Col)
			minRow, maxRow = min(minRow, c.Row), max(maxRow, c.Row)
		}
		width, height = maxCol-minCol+1, maxRow-minRow+1
	}

	counts := make(map[world.Terrain]int)
	for _, t := range grid {
		if t != world.TerrainVoid {
			counts[t]++
		}
	}
	title := cases.Title(language.English)
	var terrain []string
	for _, t := range world.Terrains {
		if n := counts[t]; n > 0 {
			terrain = append(terrain, fmt.Sprintf("%s: %d hexes", title.String(strings.ToLower(string(t))), n))
		}
	}
	terrainSummary := strings.Join(terrain, ", ")
	if terrainSummary == "" {
		terrainSummary = "still a blank canvas or only a background image"
	}

	var placed []string
	for _, tok := range tokens {
		placed = append(placed, fmt.Sprintf("%s at (%d,%d)", tok.Name, tok.X, tok.Y))
	}
	slices.Sort(placed)
	tokenSummary := strings.Join(placed, ", ")
	if tokenSummary == "" {
		tokenSummary = "no characters placed yet"
	}

	var b strings.Builder
	b.WriteString("Act as an expert fantasy RPG dungeon master.\n\n")
	b.WriteString("I am designing a tactical map on a hex grid.\n")
	fmt.Fprintf(&b, "Approximate explored area: %dx%d hexes.\n", width, height)
	fmt.Fprintf(&b, "Painted terrain: %s.\n", terrainSummary)
	fmt.Fprintf(&b, "Characters present: %s.\n\n", tokenSummary)
	b.WriteString("Write an immersive, atmospheric description of this place to read to my players.\n")
	b.WriteString("1. Describe the scene visually: light, colour, depth.\n")
	b.WriteString("2. Describe what it feels like: smells, sounds, temperature.\n")
	b.WriteString("3. Suggest a tactical threat or a secret hidden in the terrain.\n\n")
	b.WriteString("If the map is empty, describe a misty void full of latent potential.\n")
	b.WriteString("Keep it evocative but short, at most three brief paragraphs.\n")
	return b.String()
}
