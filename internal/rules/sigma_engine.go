package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"authwatch/pkg/models"
)

var techniqueTagRegex = regexp.MustCompile(`^attack\.t\d{4}(?:\.\d{3})?$`)

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

type compiledSigmaRule struct {
	eval  *sigmaevaluator.RuleEvaluator
	label models.RuleTag
}

// SigmaEngine evaluates Sigma rules against individual sshd authentication
// events. Only single-event rules with a linux/sshd (or unspecified)
// logsource are kept; aggregations and keyword searches are skipped.
type SigmaEngine struct {
	rules []compiledSigmaRule
}

// NewSigmaEngine loads Sigma rules from a file or directory.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	files, err := ruleFiles(path)
	if err != nil {
		return nil, SigmaLoadStats{}, err
	}

	sources := make([][]byte, 0, len(files))
	var unreadable int
	for _, f := range files {
		raw, err := os.ReadFile(f)
		if err != nil {
			unreadable++
			continue
		}
		sources = append(sources, raw)
	}

	engine, stats := CompileSigmaRules(sources)
	stats.TotalFiles = len(files)
	stats.SkippedInvalid += unreadable
	return engine, stats, nil
}

// CompileSigmaRules compiles rule documents that are already in memory.
func CompileSigmaRules(sources [][]byte) (*SigmaEngine, SigmaLoadStats) {
	stats := SigmaLoadStats{TotalFiles: len(sources)}
	engine := &SigmaEngine{rules: make([]compiledSigmaRule, 0, len(sources))}
	for _, raw := range sources {
		rule, err := sigma.ParseRule(raw)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		if !isAuthCompatible(rule) {
			stats.SkippedDatasource++
			continue
		}
		if !isSimpleSingleEventRule(rule) {
			stats.SkippedComplex++
			continue
		}
		engine.rules = append(engine.rules, compiledSigmaRule{
			eval:  sigmaevaluator.ForRule(rule),
			label: ruleTagFromRule(rule),
		})
		stats.Loaded++
	}
	return engine, stats
}

// Len returns the number of compiled rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Apply evaluates all loaded rules and returns the tags of matching ones.
func (e *SigmaEngine) Apply(event *models.Event) []models.RuleTag {
	if e == nil || event == nil || len(e.rules) == 0 {
		return nil
	}

	fields := sigmaEventFrom(event)
	var out []models.RuleTag
	for _, rule := range e.rules {
		res, err := rule.eval.Matches(context.Background(), fields)
		if err != nil || !res.Match {
			continue
		}
		out = append(out, rule.label)
	}
	return out
}

func ruleFiles(path string) ([]string, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule path: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("stat rule path: %w", err)
	}
	if !info.IsDir() {
		if !isYAMLFile(resolved) {
			return nil, fmt.Errorf("rule file must end with .yml or .yaml: %s", resolved)
		}
		return []string{resolved}, nil
	}

	var files []string
	err = filepath.WalkDir(resolved, func(filePath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() && isYAMLFile(filePath) {
			files = append(files, filePath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk rule directory: %w", err)
	}
	return files, nil
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func isAuthCompatible(rule sigma.Rule) bool {
	product := strings.ToLower(strings.TrimSpace(rule.Logsource.Product))
	service := strings.ToLower(strings.TrimSpace(rule.Logsource.Service))

	if product != "" && product != "linux" {
		return false
	}
	switch service {
	case "", "sshd", "auth":
		return true
	}
	return false
}

func isSimpleSingleEventRule(rule sigma.Rule) bool {
	if rule.Detection.Timeframe > 0 {
		return false
	}
	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil || !isSimpleSearchExpression(cond.Search) {
			return false
		}
	}
	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 || len(search.EventMatchers) == 0 {
			return false
		}
	}
	return true
}

func isSimpleSearchExpression(expr sigma.SearchExpr) bool {
	switch e := expr.(type) {
	case sigma.SearchIdentifier:
		return true
	case sigma.And:
		for _, child := range e {
			if !isSimpleSearchExpression(child) {
				return false
			}
		}
		return true
	case sigma.Or:
		for _, child := range e {
			if !isSimpleSearchExpression(child) {
				return false
			}
		}
		return true
	case sigma.Not:
		return isSimpleSearchExpression(e.Expr)
	default:
		return false
	}
}

func sigmaEventFrom(event *models.Event) map[string]interface{} {
	return map[string]interface{}{
		"process":         "sshd",
		"status":          string(event.Status),
		"user":            event.Username,
		"src_ip":          event.SourceIP,
		"src_port":        event.Port,
		"pid":             event.PID,
		"auth_method":     "password",
		"is_failed_login": event.IsFailedLogin,
		"is_internal_ip":  event.IsInternalIP,
		"hour":            event.Hour,
		"weekday":         event.Weekday.String(),
	}
}

func ruleTagFromRule(rule sigma.Rule) models.RuleTag {
	id := strings.TrimSpace(rule.ID)
	if id == "" {
		id = strings.TrimSpace(rule.Title)
	}

	level := strings.ToLower(strings.TrimSpace(rule.Level))
	if level == "" {
		level = "medium"
	}

	tactic, technique := parseAttackTags(rule.Tags)
	return models.RuleTag{
		ID:        id,
		Name:      strings.TrimSpace(rule.Title),
		Severity:  level,
		Tactic:    tactic,
		Technique: technique,
	}
}

func parseAttackTags(tags []string) (string, string) {
	var tactic string
	var technique string

	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if !strings.HasPrefix(tag, "attack.") {
			continue
		}
		suffix := strings.TrimPrefix(tag, "attack.")
		if technique == "" && techniqueTagRegex.MatchString(tag) {
			technique = strings.ToUpper(strings.ReplaceAll(suffix, ".", "/"))
			continue
		}
		if tactic == "" && !strings.HasPrefix(suffix, "t") {
			tactic = strings.ReplaceAll(suffix, "_", "-")
		}
	}

	return tactic, technique
}
