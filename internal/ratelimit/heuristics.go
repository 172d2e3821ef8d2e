package ratelimit

import "strings"

// maxURLLength is the threshold beyond which a request URL is considered
// suspicious on its own.
const maxURLLength = 2048

// attackSubstrings is a curated list of path/query fragments associated
// with common scanning and injection probes.
var attackSubstrings = []string{
	"../",
	"..\\",
	"/etc/passwd",
	"<script",
	"union select",
	"' or '1'='1",
	"; drop table",
	"/wp-admin",
	"/.env",
	"/.git/",
	"${jndi:",
	"xp_cmdshell",
}

// scannerUserAgents is a curated allowlist of substrings identifying known
// scanners and bots that should be treated as suspicious rather than
// served normally.
var scannerUserAgents = []string{
	"sqlmap",
	"nikto",
	"nmap",
	"masscan",
	"nessus",
	"acunetix",
	"dirbuster",
	"gobuster",
	"zgrab",
}

// IsSuspicious reports whether the request path+query, or its user-agent,
// trips the heuristics that mark a request as grounds for an immediate
// rejection and a 30-minute block.
func IsSuspicious(rawPathAndQuery, userAgent string) bool {
	if len(rawPathAndQuery) > maxURLLength {
		return true
	}

	lowered := strings.ToLower(rawPathAndQuery)
	for _, substr := range attackSubstrings {
		if strings.Contains(lowered, substr) {
			return true
		}
	}

	loweredUA := strings.ToLower(userAgent)
	for _, substr := range scannerUserAgents {
		if strings.Contains(loweredUA, substr) {
			return true
		}
	}

	return false
}
