package tool

import "fmt"

// FilesystemServer configures the local-document MCP server rooted at dir.
func FilesystemServer(dir string) ServerConfig {
	return ServerConfig{
		Name:    "filesystem",
		Command: "npx",
		Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", dir},
	}
}

// DataCommonsServer configures the public statistical-dataset MCP server.
// Callers gate this on the API key being present.
func DataCommonsServer(apiKey string) ServerConfig {
	return ServerConfig{
		Name:    "datacommons",
		Command: "uvx",
		Args:    []string{"datacommons-mcp@latest", "serve", "stdio"},
		Env:     []string{fmt.Sprintf("DC_API_KEY=%s", apiKey)},
	}
}
