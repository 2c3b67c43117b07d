package muscles

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/cyclecoach-backend/internal/domain"
	"github.com/yungbote/cyclecoach-backend/internal/platform/logger"
)

const musclePatternsEnv = "MUSCLE_PATTERNS_YAML"

//go:embed muscle_patterns.yaml
var musclePatternsFS embed.FS

// Canonical muscle groups used by target and actual volume maps.
const (
	Chest         = "chest"
	ChestUpper    = "chest_upper"
	Back          = "back"
	Lats          = "lats"
	Traps         = "traps"
	Shoulders     = "shoulders"
	ShouldersRear = "shoulders_rear"
	Biceps        = "biceps"
	Triceps       = "triceps"
	Forearms      = "forearms"
	Quads         = "quads"
	Hamstrings    = "hamstrings"
	Glutes        = "glutes"
	Calves        = "calves"
	Abs           = "abs"
	LowerBack     = "lower_back"
)

// Attribution is the muscles an exercise trains.
type Attribution struct {
	Primary   []string `json:"primary"`
	Secondary []string `json:"secondary"`
}

func (a Attribution) Empty() bool {
	return len(a.Primary) == 0 && len(a.Secondary) == 0
}

type yamlTable struct {
	Table    string            `yaml:"table"`
	Version  int               `yaml:"version"`
	Aliases  map[string]string `yaml:"aliases"`
	Rules    []yamlRule        `yaml:"rules"`
	Fallback []yamlFallback    `yaml:"fallback"`
}

type yamlRule struct {
	Group     string   `yaml:"group"`
	Patterns  []string `yaml:"patterns"`
	Exclude   []string `yaml:"exclude"`
	Primary   []string `yaml:"primary"`
	Secondary []string `yaml:"secondary"`
}

type yamlFallback struct {
	Keyword string   `yaml:"keyword"`
	Muscles []string `yaml:"muscles"`
}

type rule struct {
	group     string
	patterns  []string
	exclude   []string
	primary   []string
	secondary []string
}

type fallbackRule struct {
	keyword string
	muscles []string
}

// Resolver attributes exercises to canonical muscles: structured metadata first,
// then ordered name patterns, then a coarse keyword fallback.
type Resolver struct {
	rules    []rule
	fallback []fallbackRule
	aliases  map[string]string
}

// used when the YAML table is missing or invalid
var fallbackTable = yamlTable{
	Table:   "muscle_patterns",
	Version: 1,
	Aliases: map[string]string{"pecs": Chest, "delts": Shoulders, "quadriceps": Quads, "core": Abs},
	Rules: []yamlRule{
		{Group: "chest", Patterns: []string{"incline bench", "incline press"}, Primary: []string{ChestUpper}, Secondary: []string{Shoulders, Triceps}},
		{Group: "chest", Patterns: []string{"bench press", "chest press", "push up", "dip"}, Primary: []string{Chest}, Secondary: []string{Triceps}},
		{Group: "back", Patterns: []string{"pulldown", "pull up", "chin up"}, Primary: []string{Lats}, Secondary: []string{Biceps}},
		{Group: "back", Patterns: []string{"row"}, Exclude: []string{"upright row"}, Primary: []string{Back}, Secondary: []string{Biceps}},
		{Group: "shoulders", Patterns: []string{"overhead press", "shoulder press", "lateral raise"}, Primary: []string{Shoulders}},
		{Group: "biceps", Patterns: []string{"curl"}, Exclude: []string{"leg curl"}, Primary: []string{Biceps}},
		{Group: "triceps", Patterns: []string{"tricep", "pushdown", "skull crusher"}, Primary: []string{Triceps}},
		{Group: "hamstrings", Patterns: []string{"leg curl", "romanian deadlift", "rdl"}, Primary: []string{Hamstrings}},
		{Group: "quads", Patterns: []string{"squat", "leg press", "lunge", "leg extension"}, Primary: []string{Quads}, Secondary: []string{Glutes}},
		{Group: "calves", Patterns: []string{"calf"}, Primary: []string{Calves}},
		{Group: "core", Patterns: []string{"crunch", "plank"}, Primary: []string{Abs}},
	},
	Fallback: []yamlFallback{
		{Keyword: "push", Muscles: []string{Chest}},
		{Keyword: "pull", Muscles: []string{Back}},
		{Keyword: "leg", Muscles: []string{Quads}},
	},
}

var (
	defaultOnce     sync.Once
	defaultResolver *Resolver
)

// Default returns the process-wide resolver built from MUSCLE_PATTERNS_YAML or the
// embedded table.
func Default(log *logger.Logger) *Resolver {
	defaultOnce.Do(func() {
		r, err := loadResolver()
		if err != nil {
			if log != nil {
				log.Warn("muscles: pattern table load failed; using fallback", "error", err)
			}
			r = mustFromTable(fallbackTable)
		}
		defaultResolver = r
	})
	return defaultResolver
}

func loadResolver() (*Resolver, error) {
	data, err := readPatternTable()
	if err != nil {
		return nil, err
	}
	return NewResolver(data)
}

func readPatternTable() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(musclePatternsEnv)); path != "" {
		return os.ReadFile(path)
	}
	return musclePatternsFS.ReadFile("muscle_patterns.yaml")
}

// NewResolver parses and validates a YAML pattern table.
func NewResolver(data []byte) (*Resolver, error) {
	var t yamlTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if err := validateTable(&t); err != nil {
		return nil, err
	}
	return fromTable(t), nil
}

func validateTable(t *yamlTable) error {
	if t == nil {
		return errors.New("missing table")
	}
	if strings.TrimSpace(t.Table) != "muscle_patterns" {
		return fmt.Errorf("unexpected table: %s", t.Table)
	}
	if len(t.Rules) == 0 {
		return errors.New("no rules defined")
	}
	for i, r := range t.Rules {
		if strings.TrimSpace(r.Group) == "" {
			return fmt.Errorf("rule %d: group is required", i)
		}
		if len(r.Patterns) == 0 {
			return fmt.Errorf("rule %d (%s): no patterns", i, r.Group)
		}
		if len(r.Primary) == 0 && len(r.Secondary) == 0 {
			return fmt.Errorf("rule %d (%s): no muscles", i, r.Group)
		}
	}
	return nil
}

func mustFromTable(t yamlTable) *Resolver {
	if err := validateTable(&t); err != nil {
		panic(err)
	}
	return fromTable(t)
}

func fromTable(t yamlTable) *Resolver {
	r := &Resolver{aliases: map[string]string{}}
	for k, v := range t.Aliases {
		r.aliases[canonicalKey(k)] = canonicalKey(v)
	}
	for _, yr := range t.Rules {
		r.rules = append(r.rules, rule{
			group:     strings.TrimSpace(yr.Group),
			patterns:  normalizeAll(yr.Patterns),
			exclude:   normalizeAll(yr.Exclude),
			primary:   r.canonicalAll(yr.Primary),
			secondary: r.canonicalAll(yr.Secondary),
		})
	}
	for _, f := range t.Fallback {
		kw := normalizeName(f.Keyword)
		if kw == "" {
			continue
		}
		r.fallback = append(r.fallback, fallbackRule{keyword: kw, muscles: r.canonicalAll(f.Muscles)})
	}
	return r
}

// Resolve attributes one exercise. An empty Attribution means the exercise is
// left out of volume totals.
func (r *Resolver) Resolve(ex types.Exercise) Attribution {
	if len(ex.PrimaryMuscles) > 0 || len(ex.SecondaryMuscles) > 0 {
		return Attribution{
			Primary:   r.canonicalAll(ex.PrimaryMuscles),
			Secondary: r.canonicalAll(ex.SecondaryMuscles),
		}
	}
	return r.ResolveName(ex.Name)
}

// ResolveName applies the pattern table to a display name.
func (r *Resolver) ResolveName(name string) Attribution {
	norm := normalizeName(name)
	if norm == "" {
		return Attribution{}
	}
	padded := " " + norm

	var out Attribution
	matchedGroups := map[string]bool{}
	for _, rl := range r.rules {
		if matchedGroups[rl.group] {
			continue
		}
		if !matchesAny(padded, rl.patterns) || matchesAny(padded, rl.exclude) {
			continue
		}
		matchedGroups[rl.group] = true
		out.Primary = appendUnique(out.Primary, rl.primary...)
		out.Secondary = appendUnique(out.Secondary, rl.secondary...)
	}
	if !out.Empty() {
		out.Secondary = without(out.Secondary, out.Primary)
		return out
	}

	for _, f := range r.fallback {
		if strings.Contains(norm, f.keyword) {
			return Attribution{Primary: append([]string(nil), f.muscles...)}
		}
	}
	return Attribution{}
}

// matchesAny reports whether any pattern starts at a word boundary of padded.
func matchesAny(padded string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(padded, " "+p) {
			return true
		}
	}
	return false
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := normalizeName(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func canonicalKey(s string) string {
	return strings.ReplaceAll(normalizeName(s), " ", "_")
}

// Canonical maps a free-form muscle label onto its canonical name.
func (r *Resolver) Canonical(muscle string) string {
	k := canonicalKey(muscle)
	if v, ok := r.aliases[k]; ok {
		return v
	}
	return k
}

func (r *Resolver) canonicalAll(in []string) []string {
	var out []string
	for _, m := range in {
		if c := r.Canonical(m); c != "" {
			out = appendUnique(out, c)
		}
	}
	return out
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		dup := false
		for _, d := range dst {
			if d == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

func without(in, drop []string) []string {
	if len(in) == 0 {
		return in
	}
	out := in[:0]
	for _, v := range in {
		keep := true
		for _, d := range drop {
			if v == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, v)
		}
	}
	return out
}
