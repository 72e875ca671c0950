package rules

import "strings"

type Settings struct {
	ImpactThreshold string
	Disabled        map[string]bool
}

var rsettings = Settings{
	ImpactThreshold: Low,
	Disabled:        map[string]bool{},
}

func SetSettings(s Settings) {
	// fill defaults
	if s.ImpactThreshold == "" {
		s.ImpactThreshold = rsettings.ImpactThreshold
	}
	if s.Disabled == nil {
		s.Disabled = map[string]bool{}
	}
	rsettings = s
}

func impactRank(impact string) int {
	switch strings.ToUpper(strings.TrimSpace(impact)) {
	case High:
		return 3
	case Medium:
		return 2
	case Low:
		return 1
	default:
		return 0 // INFO or unknown
	}
}

func impactOK(impact string) bool {
	return impactRank(impact) >= impactRank(rsettings.ImpactThreshold)
}
