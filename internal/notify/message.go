package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mysqft/leadcapture/internal/core"
)

// Discord rejects messages with more content than this.
const discordContentLimit = 2000

const (
	DigestSubject = "Daily Lead Report"
	digestIntro   = "Attached is today's lead report."
)

// orderedKeys lists the lead's fields in the tenant's accepted-field order,
// followed by any remaining keys sorted.
func orderedKeys(tenant *core.Tenant, fields core.Fields) []string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range tenant.Fields {
		if _, ok := fields[f]; ok && !seen[f] {
			keys = append(keys, f)
			seen[f] = true
		}
	}
	var rest []string
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// ChatMessage renders a new lead for the chat channel.
func ChatMessage(tenant *core.Tenant, fields core.Fields, today time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📩 **New Lead for %s**", tenant.Name)
	for _, k := range orderedKeys(tenant, fields) {
		fmt.Fprintf(&b, "\n%s: %s", k, fields[k])
	}

	if days := tenant.DaysLeft(today); core.ExpiryWarning(days) {
		fmt.Fprintf(&b, "\n\n⚠️ **Plan expires in %d day(s)**, please renew.", days)
	}

	return truncate(b.String(), discordContentLimit)
}

// DigestBody is the plain-text body of the daily report email.
func DigestBody(tenant *core.Tenant, today time.Time) string {
	body := digestIntro

	if days := tenant.DaysLeft(today); core.ExpiryWarning(days) {
		body += fmt.Sprintf("\n\n⚠️ IMPORTANT:\nYour plan expires in %d day(s).\n"+
			"Please renew your plan to avoid service interruption.", days)
	}

	return body
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit-1]) + "…"
}
