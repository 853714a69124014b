package dispatch

import (
	"fmt"
	"strings"

	"ai-research-be/pkg/research/rerrors"
)

// Mode names a research strategy.
type Mode string

const (
	// ModeBasic is direct web research with the self-stopping loop.
	ModeBasic Mode = "Basic"
	// ModeLocalDocs researches against the local-document tool server.
	ModeLocalDocs Mode = "LocalDocs"
	// ModeLocalDocsPlusStats adds the statistical-dataset tool server.
	ModeLocalDocsPlusStats Mode = "LocalDocsPlusStats"
	// ModeMultiAgent decomposes the query and runs parallel researchers.
	ModeMultiAgent Mode = "MultiAgent"
)

// EstimateAlias maps a mode to the display name its pre-flight estimate row
// is keyed by.
func (m Mode) EstimateAlias() string {
	switch m {
	case ModeBasic:
		return "Basic Research"
	case ModeLocalDocs:
		return "MCP Research"
	case ModeLocalDocsPlusStats:
		return "Enhanced MCP Research"
	case ModeMultiAgent:
		return "Full Research"
	}
	return "Basic Research"
}

// ParseMode resolves user-facing mode names: the enum names, the short
// command forms (basic/mcp/enhanced/full) and the estimate display names.
// A "scoped-" prefix requests the scope-first wrapper.
func ParseMode(s string) (mode Mode, scoped bool, err error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(name, "scoped-") {
		scoped = true
		name = strings.TrimPrefix(name, "scoped-")
	}

	switch name {
	case "basic", "basic research":
		return ModeBasic, scoped, nil
	case "localdocs", "mcp", "mcp research":
		return ModeLocalDocs, scoped, nil
	case "localdocsplusstats", "enhanced", "enhanced-mcp", "enhanced mcp research":
		return ModeLocalDocsPlusStats, scoped, nil
	case "multiagent", "full", "full research":
		return ModeMultiAgent, scoped, nil
	}
	return "", false, fmt.Errorf("%w: %s", rerrors.ErrUnknownMode, s)
}
