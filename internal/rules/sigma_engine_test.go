package rules

import (
	"os"
	"path/filepath"
	"testing"

	"sentinel/pkg/models"
)

const telnetRule = `title: Inbound Telnet Session
id: 7c1d2a52-0001-4d9e-9d35-2a0c1f4b1e01
level: high
logsource:
  category: network_connection
detection:
  selection:
    dest_port: '23'
    proto: 'TCP'
  condition: selection
`

const dnsRule = `title: Suspicious DNS Query
id: 7c1d2a52-0002-4d9e-9d35-2a0c1f4b1e02
level: low
logsource:
  product: zeek
  category: dns
detection:
  selection:
    dns.rrname|endswith: '.onion'
  condition: selection
`

const windowsRule = `title: Process Creation
id: 7c1d2a52-0003-4d9e-9d35-2a0c1f4b1e03
level: high
logsource:
  product: windows
  category: process_creation
detection:
  selection:
    Image|endswith: '\cmd.exe'
  condition: selection
`

const correlatedRule = `title: Port Scan
id: 7c1d2a52-0004-4d9e-9d35-2a0c1f4b1e04
level: medium
logsource:
  category: firewall
detection:
  selection:
    action: 'blocked'
  timeframe: 1m
  condition: selection | count(dest_port) by src_ip > 10
`

func writeRules(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"telnet.yml":     telnetRule,
		"dns.yaml":       dnsRule,
		"windows.yml":    windowsRule,
		"correlated.yml": correlatedRule,
		"broken.yml":     "title: [unterminated",
		"README.md":      "not a rule",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write rule %s: %v", name, err)
		}
	}
	return dir
}

func intp(v int) *int { return &v }

func TestNewSigmaEngineSkipsUnsupportedRules(t *testing.T) {
	engine, stats, err := NewSigmaEngine(writeRules(t))
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	if stats.TotalFiles != 5 {
		t.Fatalf("expected 5 yaml files, got %d", stats.TotalFiles)
	}
	if stats.Loaded != 2 || engine.Len() != 2 {
		t.Fatalf("expected 2 loaded rules, got %+v", stats)
	}
	if stats.SkippedDatasource != 1 || stats.SkippedInvalid+stats.SkippedComplex != 2 {
		t.Fatalf("unexpected skip stats %+v", stats)
	}
}

func TestTagClassifiesUnsignedActivity(t *testing.T) {
	engine, _, err := NewSigmaEngine(writeRules(t))
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	a := &models.Alert{
		SourceAddress:      "198.51.100.7",
		DestinationAddress: "10.0.0.5",
		DestinationPort:    intp(23),
		Protocol:           "TCP",
		Raw:                models.RawEvent{"event_type": "flow"},
	}
	if !engine.Tag(a) {
		t.Fatalf("expected telnet rule to match")
	}
	if a.Signature != "Inbound Telnet Session" || a.RuleID == "" {
		t.Fatalf("unexpected tag %+v", a)
	}
	if a.Severity == nil || *a.Severity != models.SeverityHigh {
		t.Fatalf("expected high severity, got %v", a.Severity)
	}
}

func TestTagMatchesNestedRawFields(t *testing.T) {
	engine, _, err := NewSigmaEngine(writeRules(t))
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	a := &models.Alert{
		Protocol: "UDP",
		Raw: models.RawEvent{
			"event_type": "dns",
			"dns":        map[string]interface{}{"rrname": "hidden.onion"},
		},
	}
	if !engine.Tag(a) {
		t.Fatalf("expected dns rule to match")
	}
	if a.Severity == nil || *a.Severity != models.SeverityLow {
		t.Fatalf("expected low severity, got %v", a.Severity)
	}
}

func TestTagLeavesSignedAlertsAlone(t *testing.T) {
	engine, _, err := NewSigmaEngine(writeRules(t))
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}

	a := &models.Alert{
		Signature:       "ET SCAN",
		Severity:        models.SeverityOf(models.SeverityMedium),
		DestinationPort: intp(23),
		Protocol:        "TCP",
		Raw:             models.RawEvent{},
	}
	if engine.Tag(a) {
		t.Fatalf("signed alert must not be retagged")
	}
	if a.Signature != "ET SCAN" || *a.Severity != models.SeverityMedium {
		t.Fatalf("alert was modified: %+v", a)
	}
}

func TestNewSigmaEngineRejectsNonYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.txt")
	if err := os.WriteFile(path, []byte(telnetRule), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewSigmaEngine(path); err == nil {
		t.Fatalf("expected error for non-yaml rule file")
	}
}

func TestSeverityFromLevel(t *testing.T) {
	cases := map[string]models.Severity{
		"critical":      models.SeverityHigh,
		"High":          models.SeverityHigh,
		"medium":        models.SeverityMedium,
		"":              models.SeverityMedium,
		"low":           models.SeverityLow,
		"informational": models.SeverityLow,
	}
	for level, want := range cases {
		if got := severityFromLevel(level); got != want {
			t.Fatalf("level %q: expected %v, got %v", level, want, got)
		}
	}
}
