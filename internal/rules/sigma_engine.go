package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	sigma "github.com/bradleyjkemp/sigma-go"
	sigmaevaluator "github.com/bradleyjkemp/sigma-go/evaluator"

	"sentinel/pkg/models"
)

var networkCategories = map[string]bool{
	"network_connection": true,
	"firewall":           true,
	"dns":                true,
	"proxy":              true,
	"ids":                true,
}

var networkProducts = map[string]bool{
	"suricata": true,
	"snort":    true,
	"zeek":     true,
	"network":  true,
}

// SigmaLoadStats tracks the number of loaded and skipped rules.
type SigmaLoadStats struct {
	TotalFiles        int
	Loaded            int
	SkippedComplex    int
	SkippedDatasource int
	SkippedInvalid    int
}

type compiledSigmaRule struct {
	id       string
	title    string
	severity models.Severity
	eval     *sigmaevaluator.RuleEvaluator
}

// SigmaEngine evaluates Sigma rules against single network events.
type SigmaEngine struct {
	rules []compiledSigmaRule
	ctx   context.Context
}

// NewSigmaEngine loads Sigma rules from a file or directory and compiles evaluators.
// Rules for other log sources or needing correlation are skipped and counted in stats.
func NewSigmaEngine(path string) (*SigmaEngine, SigmaLoadStats, error) {
	var stats SigmaLoadStats

	files, err := ruleFiles(path)
	if err != nil {
		return nil, stats, err
	}

	stats.TotalFiles = len(files)
	compiled := make([]compiledSigmaRule, 0, len(files))
	for _, ruleFile := range files {
		rule, err := parseSigmaRuleFile(ruleFile)
		if err != nil {
			stats.SkippedInvalid++
			continue
		}
		if !isNetworkCompatible(rule) {
			stats.SkippedDatasource++
			continue
		}
		if ok, _ := isSimpleSingleEventRule(rule); !ok {
			stats.SkippedComplex++
			continue
		}

		id := strings.TrimSpace(rule.ID)
		title := strings.TrimSpace(rule.Title)
		if id == "" {
			id = title
		}
		compiled = append(compiled, compiledSigmaRule{
			id:       id,
			title:    title,
			severity: severityFromLevel(rule.Level),
			eval:     sigmaevaluator.ForRule(rule),
		})
		stats.Loaded++
	}

	return &SigmaEngine{rules: compiled, ctx: context.Background()}, stats, nil
}

// Len returns the number of loaded rules.
func (e *SigmaEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Tag classifies alert with the first matching rule. Alerts that already
// carry a signature are left alone.
func (e *SigmaEngine) Tag(alert *models.Alert) bool {
	if e == nil || alert == nil || alert.Signature != "" || len(e.rules) == 0 {
		return false
	}

	eventMap := sigmaEventFrom(alert)
	for _, rule := range e.rules {
		res, err := rule.eval.Matches(e.ctx, eventMap)
		if err != nil || !res.Match {
			continue
		}
		alert.Signature = rule.title
		alert.RuleID = rule.id
		alert.Severity = models.SeverityOf(rule.severity)
		return true
	}
	return false
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

	files := make([]string, 0, 64)
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

func parseSigmaRuleFile(path string) (sigma.Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return sigma.Rule{}, fmt.Errorf("read sigma rule %s: %w", path, err)
	}
	rule, err := sigma.ParseRule(raw)
	if err != nil {
		return sigma.Rule{}, fmt.Errorf("parse sigma rule %s: %w", path, err)
	}
	return rule, nil
}

func isYAMLFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yml") || strings.HasSuffix(lower, ".yaml")
}

func isNetworkCompatible(rule sigma.Rule) bool {
	product := strings.ToLower(strings.TrimSpace(rule.Logsource.Product))
	category := strings.ToLower(strings.TrimSpace(rule.Logsource.Category))
	service := strings.ToLower(strings.TrimSpace(rule.Logsource.Service))

	if product != "" && !networkProducts[product] {
		return false
	}
	if category != "" && !networkCategories[category] {
		return false
	}
	if product == "" && category == "" && service != "" {
		return false
	}
	return true
}

func isSimpleSingleEventRule(rule sigma.Rule) (bool, string) {
	if rule.Detection.Timeframe > 0 {
		return false, "timeframe is not supported"
	}

	for _, cond := range rule.Detection.Conditions {
		if cond.Aggregation != nil {
			return false, "aggregation condition is not supported"
		}
		if !isSimpleSearchExpression(cond.Search) {
			return false, "complex condition expression is not supported"
		}
	}

	for _, search := range rule.Detection.Searches {
		if len(search.Keywords) > 0 {
			return false, "keyword search is not supported"
		}
		if len(search.EventMatchers) == 0 {
			return false, "search has no event matchers"
		}
	}

	return true, ""
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

// sigmaEventFrom exposes the raw event flattened to dotted keys, overlaid
// with the canonical fields under both snake_case and Sigma's CamelCase names.
func sigmaEventFrom(alert *models.Alert) map[string]interface{} {
	buf := make(map[string]interface{}, len(alert.Raw)+16)
	flatten("", alert.Raw, buf)

	set := func(value string, keys ...string) {
		if value == "" {
			return
		}
		for _, k := range keys {
			buf[k] = value
		}
	}
	set(alert.SourceAddress, "src_ip", "SourceIp")
	set(alert.DestinationAddress, "dest_ip", "DestinationIp")
	set(alert.Protocol, "proto", "Protocol")
	set(alert.EventKind, "event_type")
	if p, ok := models.Port(alert.SourcePort); ok {
		set(strconv.Itoa(p), "src_port", "SourcePort")
	}
	if p, ok := models.Port(alert.DestinationPort); ok {
		set(strconv.Itoa(p), "dest_port", "DestinationPort")
	}
	return buf
}

func flatten(prefix string, in map[string]interface{}, out map[string]interface{}) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch nested := v.(type) {
		case map[string]interface{}:
			flatten(key, nested, out)
			continue
		case models.RawEvent:
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

func severityFromLevel(level string) models.Severity {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "critical", "high":
		return models.SeverityHigh
	case "low", "informational":
		return models.SeverityLow
	default:
		return models.SeverityMedium
	}
}
