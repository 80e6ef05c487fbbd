package computer

import "strings"

// Policy restricts which actions may run. Deny wins over Allow; an empty
// Allow list permits everything not denied.
type Policy struct {
	Allow []string `mapstructure:"allow" json:"allow,omitempty"`
	Deny  []string `mapstructure:"deny" json:"deny,omitempty"`
}

// Permits reports whether action may run under p.
func (p Policy) Permits(action Action) bool {
	name := strings.ToLower(strings.TrimSpace(string(action)))
	for _, deny := range p.Deny {
		if name == strings.ToLower(strings.TrimSpace(deny)) {
			return false
		}
	}
	if len(p.Allow) == 0 {
		return true
	}
	for _, allow := range p.Allow {
		if name == strings.ToLower(strings.TrimSpace(allow)) {
			return true
		}
	}
	return false
}
