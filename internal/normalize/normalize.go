// Package normalize turns IDS events of any shape (Suricata EVE, Snort,
// already-normalized dashboard records) into canonical alerts.
//
// Normalization is total: every input yields an alert, because partial or
// malformed security data must still reach the operator.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"sentinel/pkg/models"
)

// Snort records nest the alert object either at "alert" or at
// "Event.alert"; both are consulted before the flat Event fields.
var (
	sourceAddressPaths      = []string{"src_ip", "src_addr", "src_host", "alert.ip_source", "Event.alert.ip_source", "Event.ip_source"}
	destinationAddressPaths = []string{"dest_ip", "dst_ip", "dst_addr", "dst_host", "alert.ip_destination", "Event.alert.ip_destination", "Event.ip_dest"}
	sourcePortPaths         = []string{"src_port", "alert.src_port", "Event.alert.src_port", "Event.src_port"}
	destinationPortPaths    = []string{"dest_port", "dst_port", "alert.dest_port", "Event.alert.dest_port", "Event.dest_port"}
	protocolPaths           = []string{"protocol", "proto", "alert.protocol", "alert.ip_proto", "Event.alert.protocol", "Event.alert.ip_proto", "Event.ip_proto"}
	signaturePaths          = []string{"signature", "alert.signature", "Event.alert.signature", "msg", "rule", "class"}
	signatureIDPaths        = []string{"signature_id", "alert.signature_id", "Event.alert.signature_id", "sid", "alert.sig_id", "Event.alert.sig_id", "Event.signature_id"}
	severityPaths           = []string{"severity", "alert.severity", "alert.priority", "Event.alert.severity", "Event.alert.priority", "priority", "Event.priority_id"}
	actionPaths             = []string{"action", "alert.action", "alert.packet_action", "Event.alert.packet_action", "Event.packet_action"}
	timestampPaths          = []string{"timestamp", "time", "alert.timestamp", "Event.alert.timestamp", "Event.event_second"}
	eventKindPaths          = []string{"type", "event_type", "original.event_type"}
)

// IANA protocol numbers seen in unified2 records.
var protocolNumbers = map[string]string{
	"1":  "ICMP",
	"6":  "TCP",
	"17": "UDP",
	"58": "ICMP",
}

// Normalize converts one raw event into an Alert. now is used when the event
// carries no usable timestamp.
func Normalize(raw models.RawEvent, now time.Time) *models.Alert {
	if raw == nil {
		raw = models.RawEvent{}
	}

	alert := &models.Alert{Raw: raw}
	if original, ok := raw.Object("original"); ok {
		alert.Raw = original
	}

	if ts, ok := timestampOf(raw); ok {
		alert.Timestamp = ts
	} else {
		alert.Timestamp = now
		alert.TimestampInferred = true
	}

	alert.SourceAddress = raw.FirstString(sourceAddressPaths...)
	alert.DestinationAddress = raw.FirstString(destinationAddressPaths...)
	alert.SourcePort = portOf(raw, sourcePortPaths)
	alert.DestinationPort = portOf(raw, destinationPortPaths)

	if alert.SourceAddress == "" || alert.SourcePort == nil {
		if host, port, ok := splitAddrPort(raw.FirstString("src_ap")); ok {
			if alert.SourceAddress == "" {
				alert.SourceAddress = host
			}
			if alert.SourcePort == nil {
				alert.SourcePort = port
			}
		}
	}
	if alert.DestinationAddress == "" || alert.DestinationPort == nil {
		if host, port, ok := splitAddrPort(raw.FirstString("dst_ap")); ok {
			if alert.DestinationAddress == "" {
				alert.DestinationAddress = host
			}
			if alert.DestinationPort == nil {
				alert.DestinationPort = port
			}
		}
	}

	alert.Protocol = protocolOf(raw)
	alert.Signature = raw.FirstString(signaturePaths...)
	alert.SignatureID = raw.FirstString(signatureIDPaths...)
	alert.Action = raw.FirstString(actionPaths...)
	alert.Severity = severityOf(raw)
	alert.EventKind = raw.FirstString(eventKindPaths...)
	return alert
}

// NormalizeAll normalizes a batch, preserving its order.
func NormalizeAll(raws []models.RawEvent, now time.Time) []*models.Alert {
	out := make([]*models.Alert, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw, now))
	}
	return out
}

// ParsePayload decodes a pushed message. Empty, malformed, and non-object
// payloads report false.
func ParsePayload(payload []byte) (models.RawEvent, bool) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil, false
	}
	var raw models.RawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, false
	}
	if len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

func protocolOf(raw models.RawEvent) string {
	proto := strings.ToUpper(raw.FirstString(protocolPaths...))
	if name, ok := protocolNumbers[proto]; ok {
		return name
	}
	if proto == "IPV6-ICMP" || proto == "ICMPV6" {
		return "ICMP"
	}
	return proto
}

func severityOf(raw models.RawEvent) *models.Severity {
	for _, path := range severityPaths {
		v, ok := raw.Lookup(path)
		if !ok {
			continue
		}
		n, ok := toInt(v)
		if !ok || n <= 0 {
			continue
		}
		return models.SeverityOf(models.Severity(n))
	}
	return nil
}

func portOf(raw models.RawEvent, paths []string) *int {
	for _, path := range paths {
		v, ok := raw.Lookup(path)
		if !ok {
			continue
		}
		n, ok := toInt(v)
		if !ok || n < 0 || n > 65535 {
			continue
		}
		return &n
	}
	return nil
}

// splitAddrPort splits Snort's "addr:port" form. IPv6 addresses keep their
// colons; only the last one separates the port.
func splitAddrPort(value string) (string, *int, bool) {
	idx := strings.LastIndex(value, ":")
	if idx <= 0 {
		return "", nil, false
	}
	host := strings.Trim(value[:idx], "[]")
	n, err := strconv.Atoi(value[idx+1:])
	if err != nil || n < 0 || n > 65535 {
		return host, nil, host != ""
	}
	return host, &n, true
}

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != float64(int64(val)) {
			return 0, false
		}
		return int(val), true
	case json.Number:
		n, err := val.Int64()
		return int(n), err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		return n, err == nil
	default:
		return 0, false
	}
}
