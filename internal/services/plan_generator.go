package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/muscles"
	"github.com/yungbote/cyclecoach-backend/internal/modules/training/volume"
	apperr "github.com/yungbote/cyclecoach-backend/internal/pkg/errors"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
	"github.com/yungbote/cyclecoach-backend/internal/platform/openai"
)

const maxCycleDays = 28

// PlanDocument is the minimal plan shape a generator must return.
type PlanDocument struct {
	Name      string            `json:"name"`
	CycleDays int               `json:"cycle_days"`
	Sessions  []SessionDocument `json:"sessions"`
}

type SessionDocument struct {
	Day          int                `json:"day"`
	Name         string             `json:"name"`
	TargetVolume map[string]float64 `json:"target_volume,omitempty"`
	Exercises    []types.Exercise   `json:"exercises"`
}

type WorkoutDocument struct {
	Name      string           `json:"name"`
	Exercises []types.Exercise `json:"exercises"`
}

// GenerationRequest is what a generator sees of a job.
type GenerationRequest struct {
	UserID       uuid.UUID
	Kind         string
	OwnerContext string
	Input        map[string]any
	// Set for workout generation: the plan session the workout realises.
	Session *types.CycleSession
}

// PhaseFunc receives coarse progress from a generator.
type PhaseFunc func(phase string, percent int)

type Generator interface {
	GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error)
	GenerateWorkout(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*WorkoutDocument, error)
}

// Validate normalises the document in place and rejects shapes the timeline
// cannot render.
func (d *PlanDocument) Validate() error {
	if d == nil {
		return fmt.Errorf("empty plan document")
	}
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		d.Name = "Training cycle"
	}
	if d.CycleDays < 1 || d.CycleDays > maxCycleDays {
		return fmt.Errorf("cycle_days %d out of range 1..%d", d.CycleDays, maxCycleDays)
	}
	seen := map[int]bool{}
	for i := range d.Sessions {
		s := &d.Sessions[i]
		if s.Day < 1 || s.Day > d.CycleDays {
			return fmt.Errorf("session day %d out of range 1..%d", s.Day, d.CycleDays)
		}
		if seen[s.Day] {
			return fmt.Errorf("duplicate session for day %d", s.Day)
		}
		seen[s.Day] = true
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			s.Name = fmt.Sprintf("Day %d", s.Day)
		}
	}
	sort.Slice(d.Sessions, func(i, j int) bool { return d.Sessions[i].Day < d.Sessions[j].Day })
	return nil
}

// fillTargets derives target volume from the prescribed sets wherever the
// generator left it out.
func fillTargets(doc *PlanDocument, attr volume.Attributor) {
	for i := range doc.Sessions {
		s := &doc.Sessions[i]
		if len(s.TargetVolume) > 0 {
			continue
		}
		counts := map[string]int{}
		for _, ex := range s.Exercises {
			counts[volume.NormalizeExerciseName(ex.Name)] += ex.Sets
		}
		s.TargetVolume = volume.ActualVolume(s.Exercises, counts, attr)
	}
}

func cycleDaysFromInput(input map[string]any, def int) int {
	switch v := input["cycle_days"].(type) {
	case float64:
		if int(v) >= 1 && int(v) <= maxCycleDays {
			return int(v)
		}
	case int:
		if v >= 1 && v <= maxCycleDays {
			return v
		}
	}
	return def
}

func notify(onPhase PhaseFunc, phase string, pct int) {
	if onPhase != nil {
		onPhase(phase, pct)
	}
}

// =========================
// Template generator
// =========================

type templateGenerator struct {
	attr volume.Attributor
}

// NewTemplateGenerator returns a deterministic push/pull/legs/rest generator used
// when no model is configured.
func NewTemplateGenerator(attr volume.Attributor) Generator {
	return &templateGenerator{attr: attr}
}

var templateSessions = []SessionDocument{
	{
		Name: "Push",
		Exercises: []types.Exercise{
			{Name: "Barbell Bench Press", Sets: 4, Reps: "6-8", PrimaryMuscles: []string{muscles.Chest}, SecondaryMuscles: []string{muscles.Triceps, muscles.Shoulders}},
			{Name: "Incline Dumbbell Press", Sets: 3, Reps: "8-10"},
			{Name: "Overhead Press", Sets: 3, Reps: "6-8"},
			{Name: "Triceps Pushdown", Sets: 3, Reps: "10-12"},
		},
	},
	{
		Name: "Pull",
		Exercises: []types.Exercise{
			{Name: "Barbell Row", Sets: 4, Reps: "6-8"},
			{Name: "Lat Pulldown", Sets: 3, Reps: "8-10"},
			{Name: "Face Pull", Sets: 3, Reps: "12-15"},
			{Name: "Dumbbell Curl", Sets: 3, Reps: "10-12"},
		},
	},
	{
		Name: "Legs",
		Exercises: []types.Exercise{
			{Name: "Back Squat", Sets: 4, Reps: "5-8"},
			{Name: "Romanian Deadlift", Sets: 3, Reps: "8-10"},
			{Name: "Leg Press", Sets: 3, Reps: "10-12"},
			{Name: "Standing Calf Raise", Sets: 4, Reps: "12-15"},
		},
	},
}

func (g *templateGenerator) GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error) {
	notify(onPhase, "drafting", 25)
	cycleDays := cycleDaysFromInput(req.Input, 4)
	doc := &PlanDocument{Name: "Push / Pull / Legs", CycleDays: cycleDays}
	for day := 1; day <= cycleDays; day++ {
		slot := (day - 1) % 4
		if slot == 3 {
			continue
		}
		tpl := templateSessions[slot]
		exs := make([]types.Exercise, len(tpl.Exercises))
		copy(exs, tpl.Exercises)
		doc.Sessions = append(doc.Sessions, SessionDocument{Day: day, Name: tpl.Name, Exercises: exs})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	notify(onPhase, "validating", 70)
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	fillTargets(doc, g.attr)
	return doc, nil
}

func (g *templateGenerator) GenerateWorkout(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*WorkoutDocument, error) {
	if req.Session == nil {
		return nil, fmt.Errorf("no session for requested day: %w", apperr.ErrInvalidArgument)
	}
	notify(onPhase, "drafting", 40)
	exs := make([]types.Exercise, len(req.Session.Exercises))
	copy(exs, req.Session.Exercises)
	return &WorkoutDocument{Name: req.Session.Name, Exercises: exs}, ctx.Err()
}

// =========================
// OpenAI generator
// =========================

type openAIGenerator struct {
	log    *logger.Logger
	client openai.Client
	attr   volume.Attributor
}

func NewOpenAIGenerator(baseLog *logger.Logger, client openai.Client, attr volume.Attributor) Generator {
	return &openAIGenerator{
		log:    baseLog.With("service", "OpenAIGenerator"),
		client: client,
		attr:   attr,
	}
}

const planSystemPrompt = `You are a strength coach. Design a repeating training cycle.
Return sessions only for training days; omitted days are rest days.
Use common exercise names. Reps may be a range such as "8-10".`

const workoutSystemPrompt = `You are a strength coach. Write one workout that realises the given session.
Keep the session's intent and muscle focus. Reps may be a range such as "8-10".`

func exerciseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "sets", "reps", "primary_muscles", "secondary_muscles"},
		"properties": map[string]any{
			"name":              map[string]any{"type": "string"},
			"sets":              map[string]any{"type": "integer"},
			"reps":              map[string]any{"type": "string"},
			"primary_muscles":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"secondary_muscles": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}

func planSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "cycle_days", "sessions"},
		"properties": map[string]any{
			"name":       map[string]any{"type": "string"},
			"cycle_days": map[string]any{"type": "integer"},
			"sessions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"day", "name", "exercises"},
					"properties": map[string]any{
						"day":       map[string]any{"type": "integer"},
						"name":      map[string]any{"type": "string"},
						"exercises": map[string]any{"type": "array", "items": exerciseSchema()},
					},
				},
			},
		},
	}
}

func workoutSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"name", "exercises"},
		"properties": map[string]any{
			"name":      map[string]any{"type": "string"},
			"exercises": map[string]any{"type": "array", "items": exerciseSchema()},
		},
	}
}

func (g *openAIGenerator) GeneratePlan(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*PlanDocument, error) {
	notify(onPhase, "drafting", 20)
	userPrompt, _ := json.Marshal(map[string]any{
		"owner_context": req.OwnerContext,
		"preferences":   req.Input,
	})
	obj, err := g.client.GenerateJSON(ctx, planSystemPrompt, string(userPrompt), "cycle_plan", planSchema())
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	notify(onPhase, "validating", 70)
	var doc PlanDocument
	if err := remarshal(obj, &doc); err != nil {
		return nil, apperr.Upstream(fmt.Errorf("decode plan document: %w", err))
	}
	if err := doc.Validate(); err != nil {
		return nil, apperr.Upstream(fmt.Errorf("invalid plan document: %w", err))
	}
	fillTargets(&doc, g.attr)
	g.log.Debug("Plan generated", "user_id", req.UserID, "cycle_days", doc.CycleDays, "sessions", len(doc.Sessions))
	return &doc, nil
}

func (g *openAIGenerator) GenerateWorkout(ctx context.Context, req GenerationRequest, onPhase PhaseFunc) (*WorkoutDocument, error) {
	if req.Session == nil {
		return nil, fmt.Errorf("no session for requested day: %w", apperr.ErrInvalidArgument)
	}
	notify(onPhase, "drafting", 30)
	userPrompt, _ := json.Marshal(map[string]any{
		"session_name":  req.Session.Name,
		"target_volume": req.Session.TargetVolume.Data(),
		"template":      req.Session.Exercises,
		"preferences":   req.Input,
	})
	obj, err := g.client.GenerateJSON(ctx, workoutSystemPrompt, string(userPrompt), "workout", workoutSchema())
	if err != nil {
		return nil, apperr.Upstream(err)
	}
	notify(onPhase, "validating", 70)
	var doc WorkoutDocument
	if err := remarshal(obj, &doc); err != nil {
		return nil, apperr.Upstream(fmt.Errorf("decode workout document: %w", err))
	}
	if len(doc.Exercises) == 0 {
		return nil, apperr.Upstream(fmt.Errorf("workout has no exercises"))
	}
	if strings.TrimSpace(doc.Name) == "" {
		doc.Name = req.Session.Name
	}
	return &doc, nil
}

func remarshal(in any, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
